package api

import (
	_ "otcsettle/docs"
	"otcsettle/internal/api/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swagger "github.com/swaggo/http-swagger"
)

func NewRouter(h *handler.Handler, gatherer prometheus.Gatherer) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))

	// Swagger UI
	router.Get("/swagger/*", swagger.WrapHandler)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	router.Post("/api/v1/jobs/crypto-orders/{currency:[A-Za-z0-9]{2,10}}", h.SyncCryptoOrders)
	router.Post("/api/v1/jobs/remittances", h.SyncRemittances)
	router.Get("/api/v1/quotations/{base:[A-Za-z0-9]{2,10}}/{quote:[A-Za-z0-9]{2,10}}", h.GetQuotation)
	return router
}
