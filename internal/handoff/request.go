package handoff

import "time"

// Status is the lifecycle stage of a transfer request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the request is finished one way or the other.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Reason records why the conversation left the bot.
type Reason string

const (
	ReasonClientRequest  Reason = "client_request"
	ReasonComplexInquiry Reason = "complex_inquiry"
	ReasonBotLimitation  Reason = "bot_limitation"
	ReasonTechnicalIssue Reason = "technical_issue"
	ReasonSalesClosing   Reason = "sales_closing"
	ReasonComplaint      Reason = "complaint"
)

// Priority orders the agent queues. Agents drain urgent first.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// priorityOrder is the drain order for assignment.
var priorityOrder = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// Snapshot captures the conversation at the moment of escalation so the
// agent does not start from zero.
type Snapshot struct {
	State            string            `json:"state,omitempty"`
	CollectedData    map[string]string `json:"collected_data,omitempty"`
	InteractionCount int               `json:"interaction_count"`
	LastMessage      string            `json:"last_message,omitempty"`
	Summary          string            `json:"summary,omitempty"`
}

// Request is one escalation from bot to human.
type Request struct {
	ID         string    `json:"id"`
	ContactID  string    `json:"contact_id"`
	LeadRef    string    `json:"lead_ref,omitempty"`
	Reason     Reason    `json:"reason"`
	Priority   Priority  `json:"priority"`
	Status     Status    `json:"status"`
	AgentID    string    `json:"agent_id,omitempty"`
	AgentName  string    `json:"agent_name,omitempty"`
	Snapshot   Snapshot  `json:"snapshot"`
	CreatedAt  time.Time `json:"created_at"`
	AssignedAt time.Time `json:"assigned_at,omitempty"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
}

// Stats summarizes queue health for the admin endpoints.
type Stats struct {
	QueueLengths  map[Priority]int64 `json:"queue_lengths"`
	ByReason      map[Reason]int64   `json:"by_reason,omitempty"`
	Created       int64              `json:"created"`
	Completed     int64              `json:"completed"`
	Cancelled     int64              `json:"cancelled"`
	MeanWaitSecs  float64            `json:"mean_wait_seconds"`
	AssignedTotal int64              `json:"assigned_total"`
}
