package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the public API. Everything under /v1/runs requires an
// operator token; /auth/token, /healthz and /metrics are open.
func NewRouter(runs *RunHandler, authHandler *AuthHandler, validator TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/auth/token", authHandler.handleToken)

	r.Route("/v1/runs", func(r chi.Router) {
		r.Use(RequireOperator(validator, logger))
		r.Post("/", runs.handleStartRun)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", runs.handleGetRun)
			r.Post("/decision", runs.handleDecision)
			r.Get("/evidence", runs.handleEvidence)
			r.Get("/assessment", runs.handleAssessment)
			r.Get("/audit", runs.handleTrail)
			r.Get("/report", runs.handleReport)
		})
	})
	return r
}
