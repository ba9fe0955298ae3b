package conversation

import (
	"context"

	"github.com/simao-ai/rural-platform/internal/handoff"
)

// ActionType says what the channel layer should do with an inbound message's
// outcome.
type ActionType string

const (
	// ActionReply sends the text back to the contact.
	ActionReply ActionType = "reply"
	// ActionRequestConfirmation asks the contact to confirm a low
	// confidence spelling correction before it is acted on.
	ActionRequestConfirmation ActionType = "request_confirmation"
	// ActionEscalate acknowledges the contact and parks the conversation
	// for a human agent.
	ActionEscalate ActionType = "escalate"
	// ActionSilence suppresses any automated reply, a person owns the
	// thread.
	ActionSilence ActionType = "silence"
)

// OutboundAction is the single result of processing one inbound message.
// Exactly one is produced for every input, whatever happened inside.
type OutboundAction struct {
	Type ActionType `json:"type"`
	// Text to deliver for reply, confirmation and escalate actions.
	Text string `json:"text,omitempty"`
	// PendingCorrected is the corrected rendition awaiting the contact's
	// confirmation. Never written to conversation slots until confirmed.
	PendingCorrected string `json:"pending_corrected,omitempty"`
	// Handoff is set on escalate actions.
	Handoff *handoff.Request `json:"handoff,omitempty"`
}

// Messenger delivers outbound text to the contact's channel.
type Messenger interface {
	Send(ctx context.Context, contactID, text string) error
}
