package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"otcsettle/internal/domain"

	"github.com/google/uuid"
)

type JobRunner interface {
	SyncCryptoOrders(ctx context.Context, execID, code string) error
	SyncRemittances(ctx context.Context, execID string) error
}

type QuotationReader interface {
	GetQuotation(ctx context.Context, base, quote string) (domain.Quotation, bool)
}

type Handler struct {
	jobs       JobRunner
	quotations QuotationReader
	newExecID  func() string
}

func NewHandler(jobs JobRunner, quotations QuotationReader) *Handler {
	return &Handler{jobs: jobs, quotations: quotations, newExecID: uuid.NewString}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, statusCode int, errorMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorMsg,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// jobErrorStatus maps a failed job run to the status reported to the operator.
func jobErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCurrencyNotFound),
		errors.Is(err, domain.ErrProviderNotFound),
		errors.Is(err, domain.ErrMarketNotFound),
		errors.Is(err, domain.ErrGatewayNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOfflineGateway):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrRemittanceNotPlaced):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
