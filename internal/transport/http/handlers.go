// Package httptransport is the thin HTTP layer. Handlers delegate to the
// screening controller and friends; no business logic lives here.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"crosscheck/internal/audit"
	"crosscheck/internal/domain"
	"crosscheck/internal/report"
	"crosscheck/internal/risk"
	"crosscheck/internal/screening"
	id "crosscheck/pkg/domain"
	"crosscheck/pkg/platform/sentinel"
)

// Screening is the controller surface the transport uses.
type Screening interface {
	StartRun(ctx context.Context, identity domain.ClientIdentity) (screening.RunView, error)
	Decide(ctx context.Context, runID id.RunID, decision screening.OperatorDecision) (screening.RunView, error)
	Get(ctx context.Context, runID id.RunID) (screening.RunView, error)
	Evidence(ctx context.Context, runID id.RunID) ([]domain.EvidenceEntry, error)
	Assessment(ctx context.Context, runID id.RunID) (risk.Assessment, error)
}

// Trail lists a run's audit entries.
type Trail interface {
	List(ctx context.Context, runID id.RunID) ([]audit.Entry, error)
}

// RunHandler serves the screening API.
type RunHandler struct {
	screening Screening
	trail     Trail
	reports   report.Generator
	logger    *slog.Logger
}

func NewRunHandler(s Screening, trail Trail, reports report.Generator, logger *slog.Logger) *RunHandler {
	return &RunHandler{screening: s, trail: trail, reports: reports, logger: logger}
}

func (h *RunHandler) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var identity domain.ClientIdentity
	if err := json.NewDecoder(r.Body).Decode(&identity); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}
	if err := identity.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	view, err := h.screening.StartRun(r.Context(), identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}

func (h *RunHandler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	view, err := h.screening.Get(r.Context(), runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *RunHandler) handleDecision(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	var decision screening.OperatorDecision
	if err := json.NewDecoder(r.Body).Decode(&decision); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}
	if err := decision.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	view, err := h.screening.Decide(r.Context(), runID, decision)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *RunHandler) handleEvidence(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	entries, err := h.screening.Evidence(r.Context(), runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "evidence": entries})
}

func (h *RunHandler) handleAssessment(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	assessment, err := h.screening.Assessment(r.Context(), runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (h *RunHandler) handleTrail(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	entries, err := h.trail.List(r.Context(), runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "trail": entries})
}

func (h *RunHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	view, err := h.screening.Get(ctx, runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	assessment, err := h.screening.Assessment(ctx, runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	evidence, err := h.screening.Evidence(ctx, runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	trail, err := h.trail.List(ctx, runID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, err := h.reports.Generate(ctx, view.Identity, evidence, assessment, trail)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *RunHandler) runID(w http.ResponseWriter, r *http.Request) (id.RunID, bool) {
	runID, err := id.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", "malformed run id")
		return id.RunID{}, false
	}
	return runID, true
}

// KeyVerifier checks an operator API key against the configured hash.
type KeyVerifier func(key string) error

// TokenIssuer signs an access token for an operator.
type TokenIssuer interface {
	Issue(operator string) (string, error)
}

// AuthHandler exchanges operator keys for bearer tokens.
type AuthHandler struct {
	tokens    TokenIssuer
	verifyKey KeyVerifier
	tokenTTL  time.Duration
	logger    *slog.Logger
}

func NewAuthHandler(tokens TokenIssuer, verifyKey KeyVerifier, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, verifyKey: verifyKey, tokenTTL: tokenTTL, logger: logger}
}

func (h *AuthHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Operator string `json:"operator"`
		Key      string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Operator == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_input", "operator and key required")
		return
	}
	if err := h.verifyKey(req.Key); err != nil {
		h.logger.WarnContext(r.Context(), "operator key rejected", "operator", req.Operator)
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid operator key")
		return
	}
	token, err := h.tokens.Issue(req.Operator)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokenTTL.Seconds()),
	})
}

func (h *RunHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, sentinel.ErrInvalidState), errors.Is(err, sentinel.ErrRunFinished):
		writeJSONError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, sentinel.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, code, desc string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": desc})
}
