package lpdesk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"otcsettle/internal/adapters/cache"
	"otcsettle/internal/domain"
	"otcsettle/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *cache.RistrettoMarketCache, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	markets, err := cache.NewMarketCache(time.Hour)
	require.NoError(t, err)
	t.Cleanup(markets.Close)

	m := metrics.New(prometheus.NewRegistry())
	return NewGateway("lpdesk", NewClient(srv.URL, "k", time.Second), markets, nil, m), markets, m
}

func TestGateway_RefreshMarketsThenLookup(t *testing.T) {
	gw, _, m := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"name": "BTC/USD", "base": "BTC", "quote": "USD", "min_size": "0.01", "active": true},
			{"name": "XRP/USD", "base": "XRP", "quote": "USD", "min_size": "1", "active": false}
		]`))
	})

	require.NoError(t, gw.RefreshMarkets(context.Background()))
	require.Equal(t, 1.0, testutil.ToFloat64(m.GatewayCalls.WithLabelValues("lpdesk", "list_instruments", "ok")))

	btc, err := gw.GetCryptoMarketByBaseAndQuote(context.Background(), "btc", "usd")
	require.NoError(t, err)
	require.NotNil(t, btc)
	require.Equal(t, "BTC/USD", btc.Name)
	require.True(t, btc.MinSize.Equal(decimal.RequireFromString("0.01")))

	xrp, err := gw.GetCryptoMarketByBaseAndQuote(context.Background(), "XRP", "USD")
	require.NoError(t, err)
	require.Nil(t, xrp)

	missing, err := gw.GetCryptoMarketByBaseAndQuote(context.Background(), "SOL", "USD")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestGateway_RefreshFailureKeepsPreviousList(t *testing.T) {
	var fail atomic.Bool
	gw, markets, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"name": "BTC/USD", "base": "BTC", "quote": "USD", "active": true}]`))
	})

	require.NoError(t, gw.RefreshMarkets(context.Background()))
	fail.Store(true)
	err := gw.RefreshMarkets(context.Background())
	require.ErrorIs(t, err, domain.ErrOfflineGateway)

	_, ok := markets.GetByPair("BTC", "USD")
	require.True(t, ok)
}

func TestGateway_CreateCryptoRemittance_OfflineIsPropagated(t *testing.T) {
	gw, _, m := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusBadGateway)
	})

	_, err := gw.CreateCryptoRemittance(context.Background(), domain.PlacementRequest{
		ClientOrderID: uuid.New(),
		Side:          domain.SideSell,
		Market:        "BTC/USD",
	})
	require.ErrorIs(t, err, domain.ErrOfflineGateway)
	require.Equal(t, 1.0, testutil.ToFloat64(m.GatewayCalls.WithLabelValues("lpdesk", "place_order", "error")))
}

func TestGateway_StatusAndCancel(t *testing.T) {
	gw, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = w.Write([]byte(`{"id": "lp-9", "status": "canceled"}`))
	})

	res, err := gw.GetCryptoRemittanceByID(context.Background(), "lp-9")
	require.NoError(t, err)
	require.Equal(t, domain.CryptoRemittanceCanceled, res.Status)
	require.NoError(t, gw.CancelCryptoRemittance(context.Background(), "lp-9"))
	require.Equal(t, "lpdesk", gw.ProviderName())
}
