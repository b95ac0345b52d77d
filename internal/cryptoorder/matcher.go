package cryptoorder

import (
	"context"
	"errors"
	"fmt"
	"otcsettle/internal/adapters"
	"otcsettle/internal/config"
	"otcsettle/internal/domain"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultValidUntil = 10 * time.Second

type Matcher struct {
	orders      adapters.CryptoOrderRepository
	remittances adapters.CryptoRemittanceRepository
	quotations  adapters.QuotationSource
	gateways    adapters.GatewayLookup
	providers   adapters.ProviderRepository
	events      adapters.EventEmitter
	clock       clockwork.Clock
	cfg         config.Matcher
}

// SyncPendingCryptoOrders nets the pending orders of a crypto currency and places the net amount
// with the provider that quoted it. Orders that are not placed stay PENDING for the next run.
// The placement and the orders it settles are persisted together, and a retry of the same order set
// reuses the same client order id.
func (m *Matcher) SyncPendingCryptoOrders(ctx context.Context, base *domain.Currency) error {
	if base == nil {
		return fmt.Errorf("%w: base currency is required", domain.ErrInvalidParameter)
	}
	log := logrus.WithField("currency", base.Code)
	if !base.IsCrypto() {
		log.Info("Currency is not a crypto currency, nothing to match")
		return nil
	}

	// STEP 1: collecting pending orders of the allowed systems
	orders, err := m.orders.FindPendingByCurrency(ctx, base.ID, m.cfg.AllowedSystems)
	if err != nil {
		return fmt.Errorf("failed to get pending crypto orders: %w", err)
	}
	if len(orders) == 0 {
		log.Info("No pending crypto orders this time")
		return nil
	}

	// STEP 2: orders that cancel each other out never reach the provider
	net := netAmount(orders)
	if net.IsZero() {
		return m.reconcile(ctx, orders, log)
	}

	// STEP 3: a missing quotation means the currency is not tradable right now
	quotation, ok := m.quotations.GetQuotation(ctx, base.Code, m.cfg.QuoteCurrency)
	if !ok || !strings.EqualFold(quotation.Base, base.Code) {
		log.Info("No quotation available, orders stay pending")
		return nil
	}

	// STEP 4: resolving gateway, provider and market of the quoting provider
	gw, ok := m.gateways.Lookup(quotation.Provider)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrGatewayNotFound, quotation.Provider)
	}
	provider, err := m.providers.GetByName(ctx, gw.ProviderName())
	if err != nil {
		return fmt.Errorf("failed to get provider %q: %w", gw.ProviderName(), err)
	}
	if provider == nil {
		return fmt.Errorf("%w: %q", domain.ErrProviderNotFound, gw.ProviderName())
	}
	market, err := gw.GetCryptoMarketByBaseAndQuote(ctx, base.Code, m.cfg.QuoteCurrency)
	if err != nil {
		return fmt.Errorf("failed to get market %s/%s: %w", base.Code, m.cfg.QuoteCurrency, err)
	}
	if market == nil {
		return fmt.Errorf("%w: %s/%s on %s", domain.ErrMarketNotFound, base.Code, m.cfg.QuoteCurrency, gw.ProviderName())
	}

	quantity := net.Abs()
	if quantity.LessThan(market.MinSize) {
		log.WithFields(logrus.Fields{
			"net":      net.String(),
			"min_size": market.MinSize.String(),
		}).Info("Net amount is below the market minimum size, orders stay pending")
		return nil
	}

	// STEP 5: placing the net amount
	side := domain.SideOf(net)
	req := domain.PlacementRequest{
		ClientOrderID: settlementID(orders),
		Side:          side,
		Type:          domain.OrderTypeMarket,
		Quantity:      quantity,
		Market:        market.Name,
	}
	if market.RequireValidUntil {
		validUntil := m.clock.Now().Add(m.validUntil())
		req.ValidUntil = &validUntil
	}

	res, err := gw.CreateCryptoRemittance(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrOfflineGateway) {
			return fmt.Errorf("%w: %v", domain.ErrOfflineGateway, err)
		}
		return fmt.Errorf("failed to place crypto remittance: %w", err)
	}
	if !isPlaced(res) {
		status := domain.CryptoRemittanceStatus("")
		if res != nil {
			status = res.Status
		}
		return fmt.Errorf("%w: %s returned status %q for %s %s", domain.ErrRemittanceNotPlaced, gw.ProviderName(), status, side, quantity)
	}

	// STEP 6: recording the placement and confirming the orders behind it
	remittance := &domain.CryptoRemittance{
		ID:               req.ClientOrderID,
		ProviderOrderID:  res.ProviderOrderID,
		ProviderName:     gw.ProviderName(),
		Market:           market.Name,
		Side:             side,
		Type:             domain.OrderTypeMarket,
		Amount:           quantity,
		Price:            quotation.PriceFor(side),
		ExecutedPrice:    res.ExecutedPrice,
		ExecutedQuantity: res.ExecutedQuantity,
		Status:           res.Status,
		CreatedAt:        m.clock.Now(),
	}
	confirmed, err := settled(orders, domain.CryptoOrderConfirmed, &remittance.ID)
	if err != nil {
		return err
	}
	if err = m.remittances.CreateWithOrders(ctx, remittance, confirmed); err != nil {
		return fmt.Errorf("failed to save crypto remittance %s: %w", remittance.ID, err)
	}

	orderEvent := domain.EventPendingCryptoOrder
	if remittance.Status == domain.CryptoRemittanceFilled {
		orderEvent = domain.EventConfirmedCryptoOrder
	}
	for _, o := range confirmed {
		m.events.Emit(ctx, domain.Event{
			Name:       orderEvent,
			EntityID:   o.ID.String(),
			State:      string(o.State),
			Attributes: map[string]string{"crypto_remittance_id": remittance.ID.String()},
			OccurredAt: m.clock.Now(),
		})
	}
	if name, ok := domain.CryptoRemittanceEvent(remittance.Status); ok {
		m.events.Emit(ctx, domain.Event{
			Name:       name,
			EntityID:   remittance.ID.String(),
			State:      string(remittance.Status),
			OccurredAt: m.clock.Now(),
		})
	}

	log.WithFields(logrus.Fields{
		"crypto_remittance_id": remittance.ID,
		"provider":             remittance.ProviderName,
		"side":                 side,
		"quantity":             quantity.String(),
		"status":               remittance.Status,
		"orders":               len(orders),
	}).Info("Crypto remittance placed")
	return nil
}

func (m *Matcher) reconcile(ctx context.Context, orders []domain.CryptoOrder, log *logrus.Entry) error {
	reconciled, err := settled(orders, domain.CryptoOrderReconciled, nil)
	if err != nil {
		return err
	}
	if err = m.orders.SettlePending(ctx, reconciled); err != nil {
		return fmt.Errorf("failed to reconcile crypto orders: %w", err)
	}
	log.Infof("%d crypto orders net to zero and were reconciled", len(orders))
	return nil
}

// settled returns copies of orders moved to state; the originals stay untouched until persisted.
func settled(orders []domain.CryptoOrder, state domain.CryptoOrderState, remittanceID *uuid.UUID) ([]domain.CryptoOrder, error) {
	out := make([]domain.CryptoOrder, len(orders))
	for i, o := range orders {
		if err := o.TransitionTo(state); err != nil {
			return nil, fmt.Errorf("crypto order %s: %w", o.ID, err)
		}
		o.CryptoRemittanceID = remittanceID
		out[i] = o
	}
	return out, nil
}

// settlementID derives the client order id from the order set, so the provider sees the same id
// when a placement is retried for orders that were never confirmed.
func settlementID(orders []domain.CryptoOrder) uuid.UUID {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID.String())
	}
	slices.Sort(ids)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(ids, ",")))
}

func (m *Matcher) validUntil() time.Duration {
	if m.cfg.ValidUntilSec > 0 {
		return time.Duration(m.cfg.ValidUntilSec) * time.Second
	}
	return defaultValidUntil
}

func netAmount(orders []domain.CryptoOrder) decimal.Decimal {
	net := decimal.Zero
	for _, o := range orders {
		net = net.Add(o.Amount)
	}
	return net
}

// isPlaced accepts a live or filled order; a fill without quantity is a provider inconsistency.
func isPlaced(res *domain.PlacementResult) bool {
	if res == nil {
		return false
	}
	switch res.Status {
	case domain.CryptoRemittancePending, domain.CryptoRemittanceWaiting:
		return true
	case domain.CryptoRemittanceFilled:
		return res.ExecutedQuantity.IsPositive()
	}
	return false
}

func NewMatcher(
	orders adapters.CryptoOrderRepository,
	remittances adapters.CryptoRemittanceRepository,
	quotations adapters.QuotationSource,
	gateways adapters.GatewayLookup,
	providers adapters.ProviderRepository,
	events adapters.EventEmitter,
	clock clockwork.Clock,
	cfg config.Matcher,
) *Matcher {
	return &Matcher{
		orders:      orders,
		remittances: remittances,
		quotations:  quotations,
		gateways:    gateways,
		providers:   providers,
		events:      events,
		clock:       clock,
		cfg:         cfg,
	}
}
