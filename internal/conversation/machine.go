package conversation

import "github.com/simao-ai/rural-platform/pkg/logging"

// State names the stage of the sales conversation.
type State string

const (
	StateInitial            State = "initial"
	StateGreeting           State = "greeting"
	StateBasicQualification State = "basic_qualification"
	StateFarmDetails        State = "farm_details"
	StateSpeciesInterest    State = "species_interest"
	StateBudget             State = "budget"
	StateNegotiation        State = "negotiation"
	StateClosing            State = "closing"
	StatePostSale           State = "post_sale"
	StateFinished           State = "finished"
	StateHumanTransfer      State = "human_transfer"
	StateAwaitingResponse   State = "awaiting_response"
	StateIdle               State = "idle"
)

// stateFlow is the forward adjacency of the sales funnel. The parking states
// awaiting_response and idle are handled separately: any live state can enter
// them and they resume to the prior state or restart at greeting.
var stateFlow = map[State][]State{
	StateInitial:            {StateGreeting},
	StateGreeting:           {StateBasicQualification},
	StateBasicQualification: {StateFarmDetails, StateHumanTransfer},
	StateFarmDetails:        {StateSpeciesInterest, StateBudget},
	StateSpeciesInterest:    {StateBudget},
	StateBudget:             {StateNegotiation, StateClosing},
	StateNegotiation:        {StateClosing, StateHumanTransfer},
	StateClosing:            {StatePostSale},
	StatePostSale:           {StateFinished},
	StateHumanTransfer:      {StateFinished},
	StateFinished:           {},
}

// stateQuestions are the follow-up prompts the assistant uses to move each
// stage forward.
var stateQuestions = map[State][]string{
	StateGreeting:           {"Como posso te ajudar hoje?", "Você já cria peixe ou está começando agora?"},
	StateBasicQualification: {"Me conta um pouco da sua criação: onde fica e há quanto tempo você cria?"},
	StateFarmDetails:        {"Quantos viveiros você tem e de que tamanho?", "Qual a qualidade da água por aí?"},
	StateSpeciesInterest:    {"Qual espécie te interessa mais: tilápia, tambaqui, pintado?"},
	StateBudget:             {"Quantos alevinos você está pensando em comprar?", "Qual valor você tem em mente para investir?"},
	StateNegotiation:        {"Posso montar uma proposta com entrega para sua região?"},
	StateClosing:            {"Fechamos então? Confirmo seu pedido?"},
	StatePostSale:           {"Chegou tudo certo? Os alevinos estão se adaptando bem?"},
}

// Machine applies funnel transitions to a Context. Invalid transitions are
// rejected silently and logged, the context is never corrupted by one.
type Machine struct {
	log *logging.Logger
}

func NewMachine(log *logging.Logger) *Machine {
	if log == nil {
		log = logging.Default()
	}
	return &Machine{log: log}
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to State) bool {
	if from == to {
		return false
	}
	if to == StateAwaitingResponse || to == StateIdle {
		return from != StateFinished && from != StateAwaitingResponse && from != StateIdle
	}
	if from == StateAwaitingResponse || from == StateIdle {
		// Resuming to the prior state needs the context, Transition
		// handles that case. Standalone, only greeting is safe.
		return to == StateGreeting
	}
	for _, next := range stateFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the context to the target state when legal. Returns false
// and leaves the context untouched otherwise. Parking transitions remember
// the prior state so the conversation can resume where it left off.
func (m *Machine) Transition(ctx *Context, to State) bool {
	from := ctx.State
	if from == StateAwaitingResponse || from == StateIdle {
		resume := to == ctx.PriorState && ctx.PriorState != ""
		if to != StateGreeting && !resume {
			m.log.Warn("rejected state transition", "contact_id", ctx.ContactID, "from", from, "to", to)
			return false
		}
		ctx.State = to
		ctx.PriorState = ""
		return true
	}
	if !CanTransition(from, to) {
		m.log.Warn("rejected state transition", "contact_id", ctx.ContactID, "from", from, "to", to)
		return false
	}
	if to == StateAwaitingResponse || to == StateIdle {
		ctx.PriorState = from
	}
	ctx.State = to
	return true
}

// Resume brings a parked conversation back, preferring the state it was
// parked from and falling back to greeting.
func (m *Machine) Resume(ctx *Context) {
	if ctx.State != StateAwaitingResponse && ctx.State != StateIdle {
		return
	}
	target := ctx.PriorState
	if target == "" {
		target = StateGreeting
	}
	ctx.State = target
	ctx.PriorState = ""
}

// NextPrompts returns the stage questions for the context's current state.
func (m *Machine) NextPrompts(ctx *Context) []string {
	return stateQuestions[ctx.State]
}

// ShouldQualify reports whether the conversation is deep enough in the funnel
// to start asking qualification questions.
func (m *Machine) ShouldQualify(ctx *Context) bool {
	switch ctx.State {
	case StateFarmDetails, StateSpeciesInterest, StateBudget:
		return ctx.InteractionCount >= 3
	}
	return false
}

// SetAwaitingInfo parks the conversation until the producer answers a
// specific question.
func (m *Machine) SetAwaitingInfo(ctx *Context, topic string) {
	if ctx.State != StateAwaitingResponse && ctx.State != StateIdle {
		ctx.PriorState = ctx.State
	}
	ctx.State = StateAwaitingResponse
	ctx.AwaitingInfo = topic
}

// ClearAwaitingInfo resumes a parked conversation once the answer arrived.
func (m *Machine) ClearAwaitingInfo(ctx *Context) {
	ctx.AwaitingInfo = ""
	m.Resume(ctx)
}

// RequestHumanTransfer marks the context and moves it into the transfer
// state when the funnel allows it.
func (m *Machine) RequestHumanTransfer(ctx *Context) {
	ctx.TransferRequested = true
	if ctx.State == StateAwaitingResponse || ctx.State == StateIdle {
		m.Resume(ctx)
	}
	if CanTransition(ctx.State, StateHumanTransfer) {
		ctx.State = StateHumanTransfer
	}
}

// SetHumanAgent flags that a person took over the thread. The bot stays
// silent while the flag is set.
func (m *Machine) SetHumanAgent(ctx *Context, active bool) {
	ctx.IsHumanAgent = active
	if active {
		ctx.TransferRequested = false
	}
}
