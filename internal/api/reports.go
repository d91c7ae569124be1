// Package api implements the HTTP handlers for the report workflow.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/verity-labs/chorus/internal/core"
	"github.com/verity-labs/chorus/internal/logging"
	"github.com/verity-labs/chorus/internal/service"
)

// Limits bound client-supplied analyst counts.
type Limits struct {
	DefaultMaxAnalysts int
	MaxAnalystsLimit   int
}

// Handler serves the report routes.
type Handler struct {
	svc    *service.ReportService
	logger *logging.Logger
	limits Limits
}

// NewHandler creates the report handler.
func NewHandler(svc *service.ReportService, logger *logging.Logger, limits Limits) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if limits.DefaultMaxAnalysts < 1 {
		limits.DefaultMaxAnalysts = 3
	}
	if limits.MaxAnalystsLimit < limits.DefaultMaxAnalysts {
		limits.MaxAnalystsLimit = limits.DefaultMaxAnalysts
	}
	return &Handler{svc: svc, logger: logger, limits: limits}
}

// Routes mounts the report endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/reports/start", h.start)
	r.Post("/reports/{sessionID}/feedback", h.feedback)
	r.Get("/reports/{sessionID}/status", h.status)
	r.Get("/reports/download/{fileName}", h.download)
	return r
}

type startRequest struct {
	Topic       string `json:"topic"`
	MaxAnalysts int    `json:"max_analysts"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, core.ErrValidation(core.CodeInvalidState, "invalid JSON body"))
		return
	}

	if req.MaxAnalysts == 0 {
		req.MaxAnalysts = h.limits.DefaultMaxAnalysts
	}
	if req.MaxAnalysts < 1 || req.MaxAnalysts > h.limits.MaxAnalystsLimit {
		writeError(w, h.logger, core.ErrValidation(core.CodeInvalidAnalysts,
			fmt.Sprintf("max_analysts must be between 1 and %d", h.limits.MaxAnalystsLimit)))
		return
	}

	status, err := h.svc.StartReportGeneration(r.Context(), strings.TrimSpace(req.Topic), req.MaxAnalysts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, status)
}

func (h *Handler) feedback(w http.ResponseWriter, r *http.Request) {
	id := core.SessionID(chi.URLParam(r, "sessionID"))

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, core.ErrValidation(core.CodeInvalidState, "invalid JSON body"))
		return
	}

	status, err := h.svc.SubmitFeedback(r.Context(), id, req.Feedback)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	id := core.SessionID(chi.URLParam(r, "sessionID"))

	status, err := h.svc.GetReportStatus(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "fileName")

	path, err := h.svc.FetchArtifact(r.Context(), name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}
