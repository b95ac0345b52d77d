package adapters

import (
	"context"
	"otcsettle/internal/domain"
	"time"

	"github.com/google/uuid"
)

type CryptoOrderRepository interface {
	FindPendingByCurrency(ctx context.Context, currencyID int64, systems []string) ([]domain.CryptoOrder, error)
	Create(ctx context.Context, order *domain.CryptoOrder) error
	Update(ctx context.Context, order *domain.CryptoOrder) error
	SettlePending(ctx context.Context, orders []domain.CryptoOrder) error
}

type CryptoRemittanceRepository interface {
	Create(ctx context.Context, remittance *domain.CryptoRemittance) error
	Update(ctx context.Context, remittance *domain.CryptoRemittance) error
	CreateWithOrders(ctx context.Context, remittance *domain.CryptoRemittance, orders []domain.CryptoOrder) error
}

type Page struct {
	Limit  int
	Offset int
}

type RemittanceRepository interface {
	// GetAllByStatus returns one page ordered by creation time; an empty page ends the scan.
	GetAllByStatus(ctx context.Context, status domain.RemittanceStatus, page Page) ([]domain.Remittance, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Remittance, error)
	Create(ctx context.Context, remittance *domain.Remittance) error
	Update(ctx context.Context, remittance *domain.Remittance) error
}

type RemittanceOrderRepository interface {
	GetByRemittanceID(ctx context.Context, remittanceID uuid.UUID) ([]domain.RemittanceOrderRemittance, error)
	Create(ctx context.Context, link *domain.RemittanceOrderRemittance) error
	Update(ctx context.Context, link *domain.RemittanceOrderRemittance) error
}

type RemittanceGroupCache interface {
	// GetByKey returns nil without error when the key has no group yet.
	GetByKey(ctx context.Context, key domain.GroupKey) (*domain.RemittanceCurrentGroup, error)
	CreateOrUpdate(ctx context.Context, group *domain.RemittanceCurrentGroup) error
}

// Locker serialises work on a key across job runs and instances.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type CurrencyService interface {
	GetCurrencyByID(ctx context.Context, id int64) (*domain.Currency, error)
	GetCurrencyByCode(ctx context.Context, code string) (*domain.Currency, error)
}

type ProviderRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Provider, error)
}

type HolidayService interface {
	GetHolidayByDate(ctx context.Context, date time.Time, country string) (*domain.Holiday, error)
}

type FeatureFlagService interface {
	GetFeatureSettingByName(ctx context.Context, name string) (*domain.FeatureSetting, error)
}

// EventEmitter is fire-and-forget; delivery failures are the emitter's concern.
type EventEmitter interface {
	Emit(ctx context.Context, event domain.Event)
}

type QuotationSource interface {
	GetQuotation(ctx context.Context, base, quote string) (domain.Quotation, bool)
}

type MarketGateway interface {
	ProviderName() string
	GetCryptoMarketByBaseAndQuote(ctx context.Context, base, quote string) (*domain.CryptoMarket, error)
	CreateCryptoRemittance(ctx context.Context, req domain.PlacementRequest) (*domain.PlacementResult, error)
	GetCryptoRemittanceByID(ctx context.Context, id string) (*domain.PlacementResult, error)
}

// RemittanceCanceler is implemented by gateways whose provider supports order cancellation.
type RemittanceCanceler interface {
	CancelCryptoRemittance(ctx context.Context, id string) error
}

type GatewayLookup interface {
	Lookup(providerName string) (MarketGateway, bool)
}
