package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds all subsystem probes of one /health request.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handleListItems)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetItem)
				r.Get("/widget", s.handleGetWidget)
				r.Get("/datapoints", s.handleListDatapoints)
				r.Get("/datapoints/{type}", s.handleGetDatapoint)
			})
		})

		r.Get("/addresses/{address}/items", s.handleListeningItems)
		r.Get("/groups/{name}/members", s.handleGroupMembers)

		r.Post("/reload", s.handleReload)
		r.Get("/reloads", s.handleListReloads)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the size of the published model and the state of
// every registered subsystem. Any failing subsystem turns the status to
// "degraded" and the response code to 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	res := s.provider.Current()
	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"source":     s.provider.Source(),
		"loaded":     res != nil,
		"items":      res.Len(),
		"datapoints": res.DatapointCount(),
		"checks":     checks,
	})
}
