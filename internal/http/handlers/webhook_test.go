package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simao-ai/rural-platform/internal/conversation"
)

type stubDispatcher struct {
	action conversation.OutboundAction
	err    error

	lastContact string
	lastLead    string
	lastText    string
}

func (d *stubDispatcher) Dispatch(_ context.Context, contactID, leadRef, text string) (conversation.OutboundAction, error) {
	d.lastContact = contactID
	d.lastLead = leadRef
	d.lastText = text
	return d.action, d.err
}

func postMessage(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/messages", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)
	return w
}

func TestHandleMessageReturnsAction(t *testing.T) {
	d := &stubDispatcher{action: conversation.OutboundAction{
		Type: conversation.ActionReply,
		Text: "Oi! Como posso ajudar com sua criação?",
	}}
	h := NewWebhookHandler(d, nil)

	w := postMessage(t, h, `{"contact_id":"5511999990000","lead_ref":"lead-42","text":"oi"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var got conversation.OutboundAction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, conversation.ActionReply, got.Type)
	assert.Equal(t, d.action.Text, got.Text)
	assert.Equal(t, "5511999990000", d.lastContact)
	assert.Equal(t, "lead-42", d.lastLead)
	assert.Equal(t, "oi", d.lastText)
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	h := NewWebhookHandler(&stubDispatcher{}, nil)

	w := postMessage(t, h, `{"contact_id": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postMessage(t, h, `{"text":"oi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postMessage(t, h, `{"contact_id":"   ","text":"oi"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessageTimeout(t *testing.T) {
	d := &stubDispatcher{err: context.DeadlineExceeded}
	h := NewWebhookHandler(d, nil)

	w := postMessage(t, h, `{"contact_id":"c1","text":"oi"}`)
	assert.Equal(t, http.StatusRequestTimeout, w.Code)
}

func TestHandleMessageDispatchError(t *testing.T) {
	d := &stubDispatcher{err: assert.AnError}
	h := NewWebhookHandler(d, nil)

	w := postMessage(t, h, `{"contact_id":"c1","text":"oi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthCheck(t *testing.T) {
	h := NewWebhookHandler(&stubDispatcher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.HealthCheck(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
