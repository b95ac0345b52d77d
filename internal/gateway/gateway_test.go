package gateway

import (
	"context"
	"testing"

	"otcsettle/internal/domain"
	"otcsettle/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
	name string
}

func (m *MockGateway) ProviderName() string { return m.name }

func (m *MockGateway) GetCryptoMarketByBaseAndQuote(ctx context.Context, base, quote string) (*domain.CryptoMarket, error) {
	args := m.Called(ctx, base, quote)
	market, _ := args.Get(0).(*domain.CryptoMarket)
	return market, args.Error(1)
}

func (m *MockGateway) CreateCryptoRemittance(ctx context.Context, req domain.PlacementRequest) (*domain.PlacementResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*domain.PlacementResult)
	return res, args.Error(1)
}

func (m *MockGateway) GetCryptoRemittanceByID(ctx context.Context, id string) (*domain.PlacementResult, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*domain.PlacementResult)
	return res, args.Error(1)
}

type MockFeed struct{ mock.Mock }

func (m *MockFeed) Quotation(base, quote string) (domain.Quotation, bool) {
	args := m.Called(base, quote)
	q, _ := args.Get(0).(domain.Quotation)
	return q, args.Bool(1)
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	a := &MockGateway{name: "lpdesk"}
	b := &MockGateway{name: "backup"}

	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	got, ok := r.Lookup("backup")
	require.True(t, ok)
	require.Same(t, b, got)

	_, ok = r.Lookup("unknown")
	require.False(t, ok)

	all := r.All()
	require.Len(t, all, 2)
	require.Same(t, a, all[0])
	require.Same(t, b, all[1])
}

func TestRegistry_DuplicateNameRejected_FirstWins(t *testing.T) {
	r := NewRegistry()
	first := &MockGateway{name: "lpdesk"}
	second := &MockGateway{name: "lpdesk"}

	require.NoError(t, r.Register(first))
	err := r.Register(second)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"lpdesk" is already registered`)

	got, ok := r.Lookup("lpdesk")
	require.True(t, ok)
	require.Same(t, first, got)
	require.Len(t, r.All(), 1)
}

func TestRegistry_EmptyNameRejected(t *testing.T) {
	require.Error(t, NewRegistry().Register(&MockGateway{}))
}

func TestQuotationService_FirstFeedWithQuotationWins(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	empty := new(MockFeed)
	empty.On("Quotation", "BTC", "USD").Return(domain.Quotation{}, false)
	live := new(MockFeed)
	q := domain.Quotation{Instrument: "BTC/USD", Base: "BTC", Quote: "USD", Buy: decimal.NewFromInt(65000), Provider: "backup"}
	live.On("Quotation", "BTC", "USD").Return(q, true)
	unused := new(MockFeed)

	svc := NewQuotationService([]QuotationFeed{empty, live, unused}, m)

	got, ok := svc.GetQuotation(context.Background(), "BTC", "USD")
	require.True(t, ok)
	require.Equal(t, "backup", got.Provider)
	unused.AssertNotCalled(t, "Quotation", mock.Anything, mock.Anything)
	require.Equal(t, 1.0, testutil.ToFloat64(m.QuotationLookups.WithLabelValues("hit")))
}

func TestQuotationService_Miss(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	feed := new(MockFeed)
	feed.On("Quotation", "ETH", "USD").Return(domain.Quotation{}, false)

	_, ok := NewQuotationService([]QuotationFeed{feed}, m).GetQuotation(context.Background(), "ETH", "USD")
	require.False(t, ok)
	require.Equal(t, 1.0, testutil.ToFloat64(m.QuotationLookups.WithLabelValues("miss")))
	feed.AssertExpectations(t)
}
