package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type GetQuotationResponse struct {
	Instrument string    `json:"instrument" example:"BTCUSD.SPOT"`
	Base       string    `json:"base" example:"BTC"`
	Quote      string    `json:"quote" example:"USD"`
	Buy        string    `json:"buy" example:"65010.5"`
	Sell       string    `json:"sell" example:"64990.25"`
	Provider   string    `json:"provider" example:"LPDESK"`
	Timestamp  time.Time `json:"timestamp" example:"2026-01-02T15:04:05Z"`
}

// GetQuotation godoc
// @Summary Get live quotation
// @Description Latest cached bid/ask for a pair. Requesting a pair also makes the streaming feed subscribe to it
// @Tags Quotations
// @Produce json
// @Param base path string true "Base currency" example(BTC)
// @Param quote path string true "Quote currency" example(USD)
// @Success 200 {object} GetQuotationResponse
// @Failure 404 {object} errorResponse "no live quotation"
// @Router /quotations/{base}/{quote} [get]
func (h *Handler) GetQuotation(w http.ResponseWriter, r *http.Request) {
	base := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "base")))
	quote := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "quote")))
	if base == "" || quote == "" {
		writeError(w, http.StatusBadRequest, "base and quote are required")
		return
	}

	q, ok := h.quotations.GetQuotation(r.Context(), base, quote)
	if !ok {
		writeError(w, http.StatusNotFound, "no live quotation")
		return
	}
	writeJSON(w, http.StatusOK, GetQuotationResponse{
		Instrument: q.Instrument,
		Base:       q.Base,
		Quote:      q.Quote,
		Buy:        q.Buy.String(),
		Sell:       q.Sell.String(),
		Provider:   q.Provider,
		Timestamp:  time.UnixMilli(q.TimestampMs).UTC(),
	})
}
