package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simao-ai/rural-platform/internal/handoff"
)

type fakeEmail struct {
	sent []EmailMessage
	err  error
}

func (f *fakeEmail) Send(_ context.Context, msg EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeSMS struct {
	sent []string
	err  error
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, body)
	return nil
}

func sampleRequest(priority handoff.Priority) *handoff.Request {
	return &handoff.Request{
		ID:        "req-1",
		ContactID: "5511999990000",
		Reason:    handoff.ReasonClientRequest,
		Priority:  priority,
		Status:    handoff.StatusPending,
		Snapshot: handoff.Snapshot{
			State:            "negotiation",
			InteractionCount: 7,
			LastMessage:      "quero falar com atendente",
			CollectedData:    map[string]string{"especie": "tilápia"},
		},
	}
}

func TestNotifyHandoffEmail(t *testing.T) {
	email := &fakeEmail{}
	svc := NewService(email, nil, "equipe@example.com", "", nil)

	err := svc.NotifyHandoff(context.Background(), sampleRequest(handoff.PriorityHigh))
	require.NoError(t, err)
	require.Len(t, email.sent, 1)

	msg := email.sent[0]
	assert.Equal(t, "equipe@example.com", msg.To)
	assert.Contains(t, msg.Subject, "HIGH")
	assert.Contains(t, msg.Body, "5511999990000")
	assert.Contains(t, msg.Body, "tilápia")
	assert.Contains(t, msg.Body, "quero falar com atendente")
}

func TestNotifyHandoffUrgentAddsSMS(t *testing.T) {
	email := &fakeEmail{}
	sms := &fakeSMS{}
	svc := NewService(email, sms, "equipe@example.com", "+5511977776666", nil)

	err := svc.NotifyHandoff(context.Background(), sampleRequest(handoff.PriorityUrgent))
	require.NoError(t, err)
	assert.Len(t, email.sent, 1)
	require.Len(t, sms.sent, 1)
	assert.Contains(t, sms.sent[0], "URGENTE")

	// Non-urgent priorities stay email-only.
	sms.sent = nil
	require.NoError(t, svc.NotifyHandoff(context.Background(), sampleRequest(handoff.PriorityMedium)))
	assert.Empty(t, sms.sent)
}

func TestNotifyHandoffCollectsFailures(t *testing.T) {
	email := &fakeEmail{err: errors.New("smtp down")}
	svc := NewService(email, nil, "equipe@example.com", "", nil)

	err := svc.NotifyHandoff(context.Background(), sampleRequest(handoff.PriorityHigh))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestNotifyHandoffNoChannelsConfigured(t *testing.T) {
	svc := NewService(nil, nil, "", "", nil)
	assert.NoError(t, svc.NotifyHandoff(context.Background(), sampleRequest(handoff.PriorityHigh)))
}
