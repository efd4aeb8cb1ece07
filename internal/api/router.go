package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", s.handleHealth)

		// Automation settings
		r.Route("/automation", func(r chi.Router) {
			r.Get("/", s.handleGetAutomation)
			r.Put("/", s.handleUpdateAutomation)
			r.Post("/run-check", s.handleRunCheck)
		})

		// Device endpoints
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Post("/control", s.handleControlDevice)
				r.Get("/history", s.handleDeviceHistory)
			})
		})

		// Sensor ingestion (HTTP fallback for gateways without MQTT)
		r.Post("/sensors/readings", s.handleSensorReading)
	})

	// WebSocket
	r.Get("/ws", s.handleWebSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"devices": s.store.Len(),
		"clients": s.hub.ClientCount(),
	})
}
