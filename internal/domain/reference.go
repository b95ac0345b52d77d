package domain

import "time"

type CurrencyType string

const (
	CurrencyCrypto CurrencyType = "CRYPTO"
	CurrencyFiat   CurrencyType = "FIAT"
)

type Currency struct {
	ID      int64
	Code    string
	Type    CurrencyType
	Country string
}

func (c *Currency) IsCrypto() bool { return c.Type == CurrencyCrypto }

type Provider struct {
	ID     int64
	Name   string
	Active bool
}

type Holiday struct {
	Date    time.Time
	Country string
	Name    string
}

type FeatureState string

const (
	FeatureActive   FeatureState = "ACTIVE"
	FeatureInactive FeatureState = "INACTIVE"
)

// FeatureCreateExchangeQuotation gates the remittance dispatch job.
const FeatureCreateExchangeQuotation = "CREATE_EXCHANGE_QUOTATION"

type FeatureSetting struct {
	Name  string
	State FeatureState
}

func (f *FeatureSetting) IsActive() bool { return f != nil && f.State == FeatureActive }
