package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/simao-ai/rural-platform/internal/handoff"
	"github.com/simao-ai/rural-platform/pkg/logging"
)

// HandoffAdminHandler exposes the agent-facing queue operations.
type HandoffAdminHandler struct {
	engine *handoff.Engine
	log    *logging.Logger
}

func NewHandoffAdminHandler(engine *handoff.Engine, log *logging.Logger) *HandoffAdminHandler {
	if engine == nil {
		panic("handlers: handoff engine is required")
	}
	if log == nil {
		log = logging.Default()
	}
	return &HandoffAdminHandler{engine: engine, log: log}
}

// AssignRequest claims the next pending request for an agent.
type AssignRequest struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name,omitempty"`
}

// Assign pops the highest priority pending request.
// POST /admin/handoffs/assign
func (h *HandoffAdminHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.AgentID) == "" {
		jsonError(w, "agent_id is required", http.StatusBadRequest)
		return
	}

	assigned, err := h.engine.Assign(r.Context(), req.AgentID, req.AgentName)
	if errors.Is(err, handoff.ErrNotFound) {
		jsonError(w, "no pending requests", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("assign failed", "agent_id", req.AgentID, "error", err)
		jsonError(w, "assign failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, assigned)
}

// Get returns one request by id.
// GET /admin/handoffs/{requestID}
func (h *HandoffAdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// Start marks a request as actively being handled.
// POST /admin/handoffs/{requestID}/start
func (h *HandoffAdminHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Start)
}

// Complete closes a request.
// POST /admin/handoffs/{requestID}/complete
func (h *HandoffAdminHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Complete)
}

// Cancel withdraws a pending or assigned request.
// POST /admin/handoffs/{requestID}/cancel
func (h *HandoffAdminHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Cancel)
}

// Pending lists queued request ids grouped by priority.
// GET /admin/handoffs/pending
func (h *HandoffAdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]string, 4)
	for _, p := range []handoff.Priority{handoff.PriorityUrgent, handoff.PriorityHigh, handoff.PriorityMedium, handoff.PriorityLow} {
		ids, err := h.engine.Pending(r.Context(), p)
		if err != nil {
			h.log.Error("pending list failed", "priority", p, "error", err)
			jsonError(w, "listing failed", http.StatusInternalServerError)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		out[string(p)] = ids
	}
	respondJSON(w, http.StatusOK, out)
}

// Stats reports queue health.
// GET /admin/handoffs/stats
func (h *HandoffAdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.QueueStats(r.Context())
	if err != nil {
		h.log.Error("stats failed", "error", err)
		jsonError(w, "stats failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *HandoffAdminHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (*handoff.Request, error)) {
	id := chi.URLParam(r, "requestID")
	if id == "" {
		jsonError(w, "missing request id", http.StatusBadRequest)
		return
	}
	req, err := op(r.Context(), id)
	switch {
	case errors.Is(err, handoff.ErrNotFound):
		jsonError(w, "request not found", http.StatusNotFound)
	case errors.Is(err, handoff.ErrInvalidTransition):
		jsonError(w, err.Error(), http.StatusConflict)
	case err != nil:
		h.log.Error("status transition failed", "request_id", id, "error", err)
		jsonError(w, "transition failed", http.StatusInternalServerError)
	default:
		respondJSON(w, http.StatusOK, req)
	}
}

func (h *HandoffAdminHandler) load(w http.ResponseWriter, r *http.Request) (*handoff.Request, bool) {
	id := chi.URLParam(r, "requestID")
	if id == "" {
		jsonError(w, "missing request id", http.StatusBadRequest)
		return nil, false
	}
	req, err := h.engine.Get(r.Context(), id)
	if errors.Is(err, handoff.ErrNotFound) {
		jsonError(w, "request not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.log.Error("load request failed", "request_id", id, "error", err)
		jsonError(w, "load failed", http.StatusInternalServerError)
		return nil, false
	}
	return req, true
}
