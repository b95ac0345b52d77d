package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"otcsettle/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockJobRunner struct{ mock.Mock }

func (m *MockJobRunner) SyncCryptoOrders(ctx context.Context, execID, code string) error {
	return m.Called(ctx, execID, code).Error(0)
}

func (m *MockJobRunner) SyncRemittances(ctx context.Context, execID string) error {
	return m.Called(ctx, execID).Error(0)
}

type MockQuotationReader struct{ mock.Mock }

func (m *MockQuotationReader) GetQuotation(ctx context.Context, base, quote string) (domain.Quotation, bool) {
	args := m.Called(ctx, base, quote)
	q, _ := args.Get(0).(domain.Quotation)
	return q, args.Bool(1)
}

type errorJSON struct {
	Error string `json:"error"`
}

func newTestHandler() (*Handler, *MockJobRunner, *MockQuotationReader) {
	jobs, quotations := new(MockJobRunner), new(MockQuotationReader)
	h := NewHandler(jobs, quotations)
	h.newExecID = func() string { return "exec-1" }
	return h, jobs, quotations
}

func withParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// --- SyncCryptoOrders ---

func TestHandler_SyncCryptoOrders_OK(t *testing.T) {
	h, jobs, _ := newTestHandler()
	jobs.On("SyncCryptoOrders", mock.Anything, "exec-1", "BTC").Return(nil).Once()

	req := withParams(httptest.NewRequest(http.MethodPost, "/jobs/crypto-orders/btc", nil), "currency", " btc")
	rr := httptest.NewRecorder()
	h.SyncCryptoOrders(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body JobRunResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "exec-1", body.ExecID)
	jobs.AssertExpectations(t)
}

func TestHandler_SyncCryptoOrders_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid", err: domain.ErrInvalidParameter, wantStatus: http.StatusBadRequest},
		{name: "currency", err: domain.ErrCurrencyNotFound, wantStatus: http.StatusNotFound},
		{name: "provider", err: fmt.Errorf("%w: %q", domain.ErrProviderNotFound, "lpdesk"), wantStatus: http.StatusNotFound},
		{name: "market", err: domain.ErrMarketNotFound, wantStatus: http.StatusNotFound},
		{name: "gateway", err: domain.ErrGatewayNotFound, wantStatus: http.StatusNotFound},
		{name: "offline", err: fmt.Errorf("failed to place: %w", domain.ErrOfflineGateway), wantStatus: http.StatusServiceUnavailable},
		{name: "not placed", err: domain.ErrRemittanceNotPlaced, wantStatus: http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, jobs, _ := newTestHandler()
			jobs.On("SyncCryptoOrders", mock.Anything, "exec-1", "BTC").Return(tc.err).Once()

			req := withParams(httptest.NewRequest(http.MethodPost, "/jobs/crypto-orders/BTC", nil), "currency", "BTC")
			rr := httptest.NewRecorder()
			h.SyncCryptoOrders(rr, req)

			require.Equal(t, tc.wantStatus, rr.Code)
			var ej errorJSON
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ej))
			require.Equal(t, tc.err.Error(), ej.Error)
		})
	}
}

func TestHandler_SyncCryptoOrders_InternalErrorIsHidden(t *testing.T) {
	h, jobs, _ := newTestHandler()
	jobs.On("SyncCryptoOrders", mock.Anything, "exec-1", "BTC").Return(errors.New("pq: password authentication failed")).Once()

	req := withParams(httptest.NewRequest(http.MethodPost, "/jobs/crypto-orders/BTC", nil), "currency", "BTC")
	rr := httptest.NewRecorder()
	h.SyncCryptoOrders(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "password")
}

func TestHandler_SyncCryptoOrders_MissingCurrency(t *testing.T) {
	h, jobs, _ := newTestHandler()

	req := withParams(httptest.NewRequest(http.MethodPost, "/jobs/crypto-orders/", nil), "currency", " ")
	rr := httptest.NewRecorder()
	h.SyncCryptoOrders(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	jobs.AssertNotCalled(t, "SyncCryptoOrders", mock.Anything, mock.Anything, mock.Anything)
}

// --- SyncRemittances ---

func TestHandler_SyncRemittances(t *testing.T) {
	h, jobs, _ := newTestHandler()
	jobs.On("SyncRemittances", mock.Anything, "exec-1").Return(nil).Once()

	rr := httptest.NewRecorder()
	h.SyncRemittances(rr, httptest.NewRequest(http.MethodPost, "/jobs/remittances", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	jobs.AssertExpectations(t)
}

func TestHandler_SyncRemittances_CurrencyMissing(t *testing.T) {
	h, jobs, _ := newTestHandler()
	jobs.On("SyncRemittances", mock.Anything, "exec-1").Return(fmt.Errorf("failed to process remittance: %w", domain.ErrCurrencyNotFound)).Once()

	rr := httptest.NewRecorder()
	h.SyncRemittances(rr, httptest.NewRequest(http.MethodPost, "/jobs/remittances", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
}

// --- GetQuotation ---

func TestHandler_GetQuotation(t *testing.T) {
	h, _, quotations := newTestHandler()
	quotations.On("GetQuotation", mock.Anything, "BTC", "USD").Return(domain.Quotation{
		Instrument:  "BTCUSD.SPOT",
		Base:        "BTC",
		Quote:       "USD",
		Buy:         decimal.RequireFromString("65010.5"),
		Sell:        decimal.RequireFromString("64990.25"),
		TimestampMs: 1_760_450_400_000,
		Provider:    "LPDESK",
	}, true)

	req := withParams(httptest.NewRequest(http.MethodGet, "/quotations/btc/usd", nil), "base", "btc", "quote", "usd")
	rr := httptest.NewRecorder()
	h.GetQuotation(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body GetQuotationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "BTCUSD.SPOT", body.Instrument)
	require.Equal(t, "65010.5", body.Buy)
	require.Equal(t, "64990.25", body.Sell)
	require.Equal(t, int64(1_760_450_400_000), body.Timestamp.UnixMilli())
}

func TestHandler_GetQuotation_Miss(t *testing.T) {
	h, _, quotations := newTestHandler()
	quotations.On("GetQuotation", mock.Anything, "ETH", "USD").Return(domain.Quotation{}, false)

	req := withParams(httptest.NewRequest(http.MethodGet, "/quotations/eth/usd", nil), "base", "eth", "quote", "usd")
	rr := httptest.NewRecorder()
	h.GetQuotation(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}
