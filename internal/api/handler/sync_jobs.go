package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type JobRunResponse struct {
	ExecID string `json:"exec_id" example:"77b5d9f5-0569-47e3-aee2-f659d59fbd97"`
}

// SyncCryptoOrders godoc
// @Summary Run crypto order matching
// @Description Nets the pending crypto orders of a base currency and places the net amount with the quoting provider
// @Tags Jobs
// @Produce json
// @Param currency path string true "Crypto currency code" example(BTC)
// @Success 200 {object} JobRunResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse "currency, provider, market or gateway not found"
// @Failure 409 {object} errorResponse "remittance not placed"
// @Failure 503 {object} errorResponse "gateway offline"
// @Failure 500 {object} errorResponse
// @Router /jobs/crypto-orders/{currency} [post]
func (h *Handler) SyncCryptoOrders(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "currency")))
	if code == "" {
		writeError(w, http.StatusBadRequest, "currency is required")
		return
	}

	execID := h.newExecID()
	if err := h.jobs.SyncCryptoOrders(r.Context(), execID, code); err != nil {
		status := jobErrorStatus(err)
		if status == http.StatusInternalServerError {
			logrus.WithError(err).WithFields(logrus.Fields{"handler": "SyncCryptoOrders", "currency": code, "exec_id": execID}).Error("crypto orders sync failed")
			writeError(w, status, "ups, couldn't sync crypto orders this time")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, JobRunResponse{ExecID: execID})
}

// SyncRemittances godoc
// @Summary Run remittance grouping
// @Description Nets open fiat remittances and dispatches the remainder to the PSP
// @Tags Jobs
// @Produce json
// @Success 200 {object} JobRunResponse
// @Failure 404 {object} errorResponse "currency not found"
// @Failure 500 {object} errorResponse
// @Router /jobs/remittances [post]
func (h *Handler) SyncRemittances(w http.ResponseWriter, r *http.Request) {
	execID := h.newExecID()
	if err := h.jobs.SyncRemittances(r.Context(), execID); err != nil {
		status := jobErrorStatus(err)
		if status == http.StatusInternalServerError {
			logrus.WithError(err).WithFields(logrus.Fields{"handler": "SyncRemittances", "exec_id": execID}).Error("remittances sync failed")
			writeError(w, status, "ups, couldn't sync remittances this time")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, JobRunResponse{ExecID: execID})
}
