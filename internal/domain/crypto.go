package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CryptoOrderState string

const (
	CryptoOrderPending    CryptoOrderState = "PENDING"
	CryptoOrderConfirmed  CryptoOrderState = "CONFIRMED"
	CryptoOrderReconciled CryptoOrderState = "RECONCILED"
	CryptoOrderCanceled   CryptoOrderState = "CANCELED"
)

// CryptoOrder is an internal intent to buy (positive amount) or sell (negative amount) a crypto asset.
type CryptoOrder struct {
	ID                 uuid.UUID
	System             string
	BaseCurrencyID     int64
	Amount             decimal.Decimal
	State              CryptoOrderState
	ConversionID       string
	CryptoRemittanceID *uuid.UUID
}

func (o *CryptoOrder) TransitionTo(state CryptoOrderState) error {
	if err := cryptoOrderTransitions.check(o.State, state); err != nil {
		return err
	}
	o.State = state
	return nil
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SideOf returns BUY for positive amounts and SELL otherwise.
func SideOf(amount decimal.Decimal) Side {
	if amount.IsPositive() {
		return SideBuy
	}
	return SideSell
}

type OrderType string

const OrderTypeMarket OrderType = "MARKET"

type CryptoRemittanceStatus string

const (
	CryptoRemittancePending  CryptoRemittanceStatus = "PENDING"
	CryptoRemittanceWaiting  CryptoRemittanceStatus = "WAITING"
	CryptoRemittanceFilled   CryptoRemittanceStatus = "FILLED"
	CryptoRemittanceCanceled CryptoRemittanceStatus = "CANCELED"
	CryptoRemittanceError    CryptoRemittanceStatus = "ERROR"
)

// CryptoRemittance is an order placed with a crypto liquidity provider.
type CryptoRemittance struct {
	ID               uuid.UUID
	ProviderOrderID  string
	ProviderName     string
	Market           string
	Side             Side
	Type             OrderType
	Amount           decimal.Decimal
	Price            decimal.Decimal
	ExecutedPrice    decimal.Decimal
	ExecutedQuantity decimal.Decimal
	Status           CryptoRemittanceStatus
	CreatedAt        time.Time
}

func (r *CryptoRemittance) TransitionTo(status CryptoRemittanceStatus) error {
	if err := cryptoRemittanceTransitions.check(r.Status, status); err != nil {
		return err
	}
	r.Status = status
	return nil
}

// CryptoMarket is provider-reported metadata of a tradable pair.
type CryptoMarket struct {
	Name                   string
	Base                   string
	Quote                  string
	MinSize                decimal.Decimal
	MaxSize                decimal.Decimal
	SizeIncrement          decimal.Decimal
	PriceIncrement         decimal.Decimal
	PriceSignificantDigits int
	RequireValidUntil      bool
	Active                 bool
}

type PlacementRequest struct {
	ClientOrderID uuid.UUID
	Side          Side
	Type          OrderType
	Quantity      decimal.Decimal
	Market        string
	ValidUntil    *time.Time
}

type PlacementResult struct {
	ProviderOrderID  string
	Status           CryptoRemittanceStatus
	ExecutedPrice    decimal.Decimal
	ExecutedQuantity decimal.Decimal
}
