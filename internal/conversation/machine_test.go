package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"initial to greeting", StateInitial, StateGreeting, true},
		{"greeting to qualification", StateGreeting, StateBasicQualification, true},
		{"qualification to farm details", StateBasicQualification, StateFarmDetails, true},
		{"qualification to transfer", StateBasicQualification, StateHumanTransfer, true},
		{"farm details skips to budget", StateFarmDetails, StateBudget, true},
		{"budget to negotiation", StateBudget, StateNegotiation, true},
		{"negotiation to transfer", StateNegotiation, StateHumanTransfer, true},
		{"closing to post sale", StateClosing, StatePostSale, true},
		{"transfer to finished", StateHumanTransfer, StateFinished, true},
		{"no skipping ahead", StateGreeting, StateBudget, false},
		{"no going backwards", StateBudget, StateGreeting, false},
		{"finished is terminal", StateFinished, StateGreeting, false},
		{"self transition rejected", StateBudget, StateBudget, false},
		{"any state can park", StateNegotiation, StateAwaitingResponse, true},
		{"any state can idle", StateGreeting, StateIdle, true},
		{"finished cannot park", StateFinished, StateIdle, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransitionRejectsSilently(t *testing.T) {
	m := NewMachine(nil)
	c := NewContext("5511999990000", "")

	assert.False(t, m.Transition(c, StateBudget))
	assert.Equal(t, StateInitial, c.State)

	assert.True(t, m.Transition(c, StateGreeting))
	assert.Equal(t, StateGreeting, c.State)
}

func TestParkingAndResume(t *testing.T) {
	m := NewMachine(nil)
	c := NewContext("5511999990000", "")
	c.State = StateNegotiation

	m.SetAwaitingInfo(c, "forma de pagamento")
	assert.Equal(t, StateAwaitingResponse, c.State)
	assert.Equal(t, StateNegotiation, c.PriorState)
	assert.Equal(t, "forma de pagamento", c.AwaitingInfo)

	m.ClearAwaitingInfo(c)
	assert.Equal(t, StateNegotiation, c.State)
	assert.Empty(t, c.AwaitingInfo)
	assert.Empty(t, c.PriorState)
}

func TestParkedWithoutPriorRejectsEmptyTarget(t *testing.T) {
	m := NewMachine(nil)
	c := NewContext("5511999990000", "")
	c.State = StateAwaitingResponse

	assert.False(t, m.Transition(c, State("")))
	assert.Equal(t, StateAwaitingResponse, c.State)

	assert.False(t, m.Transition(c, StateBudget))
	assert.Equal(t, StateAwaitingResponse, c.State)

	assert.True(t, m.Transition(c, StateGreeting))
	assert.Equal(t, StateGreeting, c.State)
}

func TestResumeWithoutPriorFallsBackToGreeting(t *testing.T) {
	m := NewMachine(nil)
	c := NewContext("5511999990000", "")
	c.State = StateIdle

	m.Resume(c)
	assert.Equal(t, StateGreeting, c.State)
}

func TestShouldQualify(t *testing.T) {
	m := NewMachine(nil)
	c := NewContext("5511999990000", "")
	c.State = StateFarmDetails

	c.InteractionCount = 2
	assert.False(t, m.ShouldQualify(c))

	c.InteractionCount = 3
	assert.True(t, m.ShouldQualify(c))

	c.State = StateGreeting
	assert.False(t, m.ShouldQualify(c))
}

func TestRequestHumanTransfer(t *testing.T) {
	m := NewMachine(nil)

	c := NewContext("a", "")
	c.State = StateNegotiation
	m.RequestHumanTransfer(c)
	assert.True(t, c.TransferRequested)
	assert.Equal(t, StateHumanTransfer, c.State)

	// Not adjacent to transfer, the flag is still recorded.
	c2 := NewContext("b", "")
	c2.State = StateFarmDetails
	m.RequestHumanTransfer(c2)
	assert.True(t, c2.TransferRequested)
	assert.Equal(t, StateFarmDetails, c2.State)
}

func TestContextProgressTracking(t *testing.T) {
	c := NewContext("5511999990000", "")
	assert.False(t, c.HasRecentProgress(5))

	c.InteractionCount = 4
	c.SetSlot("especie", "tilápia")
	assert.True(t, c.HasRecentProgress(5))

	c.InteractionCount = 10
	assert.False(t, c.HasRecentProgress(5))
}

func TestContextExpiry(t *testing.T) {
	c := NewContext("5511999990000", "")
	assert.False(t, c.IsExpired(24*time.Hour))

	c.LastMessageAt = time.Now().Add(-25 * time.Hour)
	assert.True(t, c.IsExpired(24*time.Hour))
}

func TestContextSummary(t *testing.T) {
	c := NewContext("5511999990000", "")
	c.State = StateSpeciesInterest
	c.InteractionCount = 4
	c.SetSlot("especie", "tambaqui")
	c.TransferRequested = true

	s := c.Summary()
	assert.Contains(t, s, "species_interest")
	assert.Contains(t, s, "especie=tambaqui")
	assert.Contains(t, s, "atendimento humano")
}
