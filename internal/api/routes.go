package api

import (
	"github.com/gorilla/mux"
	"github.com/trogers1052/quote-refresh-service/internal/metrics"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/scheduler/status", handler.GetStatus).Methods("GET")
	api.HandleFunc("/scheduler/run", handler.RunScheduler).Methods("POST")
	api.HandleFunc("/quotes/{symbol}", handler.GetQuote).Methods("GET")

	return r
}
