package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Collection
	mux.HandleFunc("/api/stock/", s.app.StockHandler.GetStockHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/healthz", s.app.APIHandler.HealthHandler)

	// Prometheus scrape endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Catch-all 404
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
