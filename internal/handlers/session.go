package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"homefinder-backend/internal/middleware"
	"homefinder-backend/internal/models"
	"homefinder-backend/internal/services"
	"homefinder-backend/internal/session"
	"homefinder-backend/internal/worker"
)

type SessionHandler struct {
	manager *session.Manager
	machine *session.Machine
	pool    *worker.Pool
	auth    *middleware.SessionAuth
}

func NewSessionHandler(manager *session.Manager, machine *session.Machine, pool *worker.Pool, auth *middleware.SessionAuth) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		machine: machine,
		pool:    pool,
		auth:    auth,
	}
}

// Create starts a new conversation session and hands the widget its
// token and greeting.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.manager.Create()

	token, err := h.auth.GenerateToken(s.ID)
	if err != nil {
		h.manager.Remove(s.ID)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	snap := s.Snapshot()
	writeJSON(w, http.StatusCreated, models.CreateSessionResponse{
		SessionID:   snap.SessionID,
		Token:       token,
		Greeting:    snap.History[0],
		Placeholder: services.InputPlaceholder,
		History:     snap.History,
	})
}

// PostMessage feeds one user message through the state machine and, if
// the session just entered scraping mode, queues the scrape job.
func (h *SessionHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req models.PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	result := h.machine.SubmitMessage(r.Context(), s, req.Message)
	if result.StartScrape {
		if !h.pool.Enqueue(s.ID) {
			writeJSON(w, http.StatusServiceUnavailable, errorResp("QUEUE_FULL", "Too many scrapes in flight. Please try again shortly.", r))
			return
		}
	}

	writeJSON(w, http.StatusOK, models.PostMessageResponse{
		Messages:      result.Messages,
		Mode:          string(result.Mode),
		Notice:        result.Notice,
		AnalysisReady: s.Snapshot().AnalysisReady,
	})
}

// GetState returns the full renderable session state.
func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, s.Snapshot())
}

// GetAnalysis returns the listing analysis once the scrape completes.
// An optional max_price query recomputes the budget KPI on the fly.
func (h *SessionHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var maxPrice *float64
	if raw := r.URL.Query().Get("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "max_price must be a non-negative number", r))
			return
		}
		maxPrice = &v
	}

	analysis, ready := h.machine.AnalysisWithBudget(s, maxPrice)
	if !ready {
		writeJSON(w, http.StatusConflict, errorResp("NOT_READY", "Analysis is not ready for this session yet", r))
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// sessionFromRequest resolves the {id} path param, checks it against
// the authenticated session and looks it up.
func (h *SessionHandler) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return nil, false
	}

	if middleware.GetSessionID(r.Context()) != id {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	s, ok := h.manager.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found or expired", r))
		return nil, false
	}
	return s, true
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}
