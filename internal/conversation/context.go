package conversation

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Context is everything remembered about one contact's conversation. It is
// serialized as JSON into the state store and carried into LLM prompts.
type Context struct {
	ContactID         string            `json:"contact_id"`
	LeadRef           string            `json:"lead_ref,omitempty"`
	State             State             `json:"state"`
	PriorState        State             `json:"prior_state,omitempty"`
	CollectedData     map[string]string `json:"collected_data,omitempty"`
	InteractionCount  int               `json:"interaction_count"`
	LastSlotAt        int               `json:"last_slot_at"`
	LastMessageAt     time.Time         `json:"last_message_at"`
	AwaitingInfo      string            `json:"awaiting_info,omitempty"`
	PendingCorrected  string            `json:"pending_corrected,omitempty"`
	TransferRequested bool              `json:"transfer_requested"`
	IsHumanAgent      bool              `json:"is_human_agent"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// NewContext starts a fresh conversation for a contact. leadRef links the
// conversation to a CRM lead and may be empty when the gateway has not
// matched one yet.
func NewContext(contactID, leadRef string) *Context {
	now := time.Now().UTC()
	return &Context{
		ContactID:     contactID,
		LeadRef:       leadRef,
		State:         StateInitial,
		CollectedData: map[string]string{},
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// RecordInteraction counts one inbound message and refreshes the activity
// timestamp. Always called, even when downstream processing fails.
func (c *Context) RecordInteraction() {
	c.InteractionCount++
	c.LastMessageAt = time.Now().UTC()
}

// SetSlot stores a qualification fact and moves the progress watermark so
// stall detection knows the conversation is still advancing.
func (c *Context) SetSlot(key, value string) {
	if c.CollectedData == nil {
		c.CollectedData = map[string]string{}
	}
	c.CollectedData[key] = value
	c.LastSlotAt = c.InteractionCount
}

// HasRecentProgress reports whether a qualification fact was collected within
// the last window interactions.
func (c *Context) HasRecentProgress(window int) bool {
	if len(c.CollectedData) == 0 {
		return false
	}
	return c.InteractionCount-c.LastSlotAt <= window
}

// IsExpired reports whether the conversation went quiet long enough to be
// treated as a brand new one on the next message.
func (c *Context) IsExpired(idleAfter time.Duration) bool {
	return time.Since(c.LastMessageAt) > idleAfter
}

// Summary renders the context for an LLM system prompt: current stage, what
// is already known and whether a human asked to step in.
func (c *Context) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Etapa da conversa: %s. Interações: %d.", c.State, c.InteractionCount)
	if len(c.CollectedData) > 0 {
		keys := make([]string, 0, len(c.CollectedData))
		for k := range c.CollectedData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" Informações coletadas:")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s;", k, c.CollectedData[k])
		}
	}
	if c.AwaitingInfo != "" {
		fmt.Fprintf(&b, " Aguardando resposta sobre: %s.", c.AwaitingInfo)
	}
	if c.TransferRequested {
		b.WriteString(" Cliente pediu atendimento humano.")
	}
	return b.String()
}
