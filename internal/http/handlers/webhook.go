package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/simao-ai/rural-platform/internal/conversation"
	"github.com/simao-ai/rural-platform/pkg/logging"
)

// InboundDispatcher is the queue-backed entrypoint into the conversation
// pipeline.
type InboundDispatcher interface {
	Dispatch(ctx context.Context, contactID, leadRef, text string) (conversation.OutboundAction, error)
}

// WebhookHandler receives inbound messages from the messaging gateway.
type WebhookHandler struct {
	dispatcher InboundDispatcher
	log        *logging.Logger
}

func NewWebhookHandler(dispatcher InboundDispatcher, log *logging.Logger) *WebhookHandler {
	if dispatcher == nil {
		panic("handlers: dispatcher is required")
	}
	if log == nil {
		log = logging.Default()
	}
	return &WebhookHandler{dispatcher: dispatcher, log: log}
}

// InboundMessageRequest is the gateway payload for one producer message.
// LeadRef is the CRM lead the gateway matched to the contact, when known.
type InboundMessageRequest struct {
	ContactID string `json:"contact_id"`
	LeadRef   string `json:"lead_ref,omitempty"`
	Text      string `json:"text"`
}

// HandleMessage processes one inbound message synchronously and returns the
// outbound action for the gateway to act on.
// POST /webhooks/messages
func (h *WebhookHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req InboundMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ContactID) == "" {
		jsonError(w, "contact_id is required", http.StatusBadRequest)
		return
	}

	action, err := h.dispatcher.Dispatch(r.Context(), req.ContactID, req.LeadRef, req.Text)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			jsonError(w, "request cancelled", http.StatusRequestTimeout)
			return
		}
		h.log.Error("dispatch failed", "contact_id", req.ContactID, "error", err)
		jsonError(w, "processing failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, action)
}

// HealthCheck reports liveness.
// GET /health
func (h *WebhookHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
