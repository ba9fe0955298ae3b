package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/simao-ai/rural-platform/internal/handoff"
	"github.com/simao-ai/rural-platform/internal/observability/metrics"
	"github.com/simao-ai/rural-platform/internal/rural"
	"github.com/simao-ai/rural-platform/pkg/logging"
)

const systemPrompt = "Você é o Simão, assistente virtual de uma empresa de piscicultura que vende " +
	"alevinos e acompanha criadores de peixe no interior do Brasil. Converse como no WhatsApp: " +
	"mensagens curtas, tom caloroso e respeitoso, linguagem simples. Responda sempre em português. " +
	"Nunca invente preços, prazos ou dados técnicos que você não recebeu no contexto. " +
	"Quando não souber, diga que vai confirmar com a equipe."

var fallbackReplies = []string{
	"Opa, me atrapalhei aqui por um instante. Pode repetir pra mim, por favor?",
	"Desculpa a demora! Deu uma instabilidade aqui do meu lado. Me conta de novo o que você precisa?",
	"Eita, falhou aqui comigo. Mas estou contigo, pode mandar de novo que eu respondo.",
}

const emptyMessageReply = "Recebi sua mensagem, mas não consegui ler o conteúdo. Pode escrever de novo pra mim?"

const waitingForAgentReply = "Nossa equipe já foi avisada e logo alguém fala com você. " +
	"Enquanto isso, pode ir me contando mais detalhes que eu repasso."

// Species the funnel tracks as an interest slot.
var speciesTerms = map[string]struct{}{
	"tilápia": {}, "tambaqui": {}, "pirarucu": {}, "pintado": {},
	"pacu": {}, "tucunaré": {}, "dourado": {}, "bagre": {}, "traíra": {},
}

// OrchestratorConfig carries the optional knobs; zero values get defaults.
type OrchestratorConfig struct {
	LLMTimeout time.Duration
	IdleExpiry time.Duration
	ModelID    string
	Metrics    *metrics.ConversationMetrics
	Logger     *logging.Logger
}

// Orchestrator runs the full inbound pipeline: correction, classification,
// state tracking, escalation and reply generation. Messages from the same
// contact are processed strictly one at a time.
type Orchestrator struct {
	store      StateStore
	machine    *Machine
	normalizer *rural.Normalizer
	corrector  *rural.Corrector
	classifier *rural.Classifier
	llm        LLMClient
	engine     *handoff.Engine
	metrics    *metrics.ConversationMetrics
	log        *logging.Logger

	llmTimeout time.Duration
	idleExpiry time.Duration
	modelID    string

	locks sync.Map
}

// NewOrchestrator wires the pipeline. The handoff engine may be nil, which
// disables escalation entirely, everything else is required.
func NewOrchestrator(store StateStore, llm LLMClient, engine *handoff.Engine, cfg OrchestratorConfig) *Orchestrator {
	if store == nil {
		panic("conversation: state store is required")
	}
	if llm == nil {
		panic("conversation: llm client is required")
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 30 * time.Second
	}
	if cfg.IdleExpiry <= 0 {
		cfg.IdleExpiry = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	dict := rural.NewDictionary()
	return &Orchestrator{
		store:      store,
		machine:    NewMachine(cfg.Logger),
		normalizer: rural.NewNormalizer(dict),
		corrector:  rural.NewCorrector(dict),
		classifier: rural.NewClassifier(dict),
		llm:        llm,
		engine:     engine,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		llmTimeout: cfg.LLMTimeout,
		idleExpiry: cfg.IdleExpiry,
		modelID:    cfg.ModelID,
	}
}

// ProcessInboundMessage turns one inbound message into exactly one outbound
// action. It never panics outward and never returns an error for processing
// failures, those degrade to a warm fallback reply. The interaction counter
// is persisted even when everything downstream fails.
func (o *Orchestrator) ProcessInboundMessage(ctx context.Context, contactID, leadRef, text string) (action OutboundAction, err error) {
	mu := o.lockFor(contactID)
	mu.Lock()
	defer mu.Unlock()

	defer func() {
		o.metrics.ObserveInbound(string(action.Type))
	}()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("panic while processing message", "contact_id", contactID, "panic", fmt.Sprint(r))
			action, err = OutboundAction{Type: ActionReply, Text: fallbackReplies[0]}, nil
		}
	}()

	convo, _ := o.store.Get(ctx, contactID)
	if convo == nil || convo.IsExpired(o.idleExpiry) {
		convo = NewContext(contactID, leadRef)
	}
	if convo.LeadRef == "" && leadRef != "" {
		convo.LeadRef = leadRef
	}
	convo.RecordInteraction()
	defer func() {
		saveCtx := context.WithoutCancel(ctx)
		if saveErr := o.store.Save(saveCtx, convo); saveErr != nil {
			o.log.Warn("conversation state not saved", "contact_id", contactID, "error", saveErr)
		}
	}()

	if convo.IsHumanAgent {
		return OutboundAction{Type: ActionSilence}, nil
	}

	if strings.TrimSpace(text) == "" {
		return OutboundAction{Type: ActionReply, Text: emptyMessageReply}, nil
	}

	// A pending confirmation consumes this message: an affirmative answer
	// promotes the corrected text, anything else proceeds with the reply
	// as typed.
	if convo.PendingCorrected != "" {
		pending := convo.PendingCorrected
		convo.PendingCorrected = ""
		answer := o.classifier.Classify(o.normalizer.Normalize(text))
		if answer.HasIntent(rural.IntentConfirmation) {
			text = pending
		}
	}

	normalized := o.normalizer.Normalize(text)
	corrected := o.corrector.CorrectMessage(normalized, false)
	o.metrics.AddCorrections(len(corrected.Corrections))

	if corrected.NeedsConfirmation {
		convo.PendingCorrected = corrected.Corrected
		return OutboundAction{
			Type:             ActionRequestConfirmation,
			Text:             rural.ClarificationPrompt(corrected),
			PendingCorrected: corrected.Corrected,
		}, nil
	}

	message := corrected.Corrected
	cls := o.classifier.Classify(message)

	if o.engine != nil {
		if convo.State == StateHumanTransfer {
			if active, _ := o.engine.HasActive(ctx, contactID); active {
				return OutboundAction{Type: ActionReply, Text: waitingForAgentReply}, nil
			}
		}

		decision := handoff.ShouldTransfer(message, cls.Urgency, convo.InteractionCount, convo.HasRecentProgress(5))
		if !decision.Transfer && convo.State == StateClosing && cls.HasIntent(rural.IntentConfirmation) {
			// The producer agreed to close: a person finalizes payment
			// and delivery terms.
			decision = handoff.Decision{Transfer: true, Reason: handoff.ReasonSalesClosing, Priority: handoff.PriorityHigh}
		}
		if decision.Transfer {
			return o.escalate(ctx, convo, message, decision)
		}
	}

	if convo.AwaitingInfo != "" {
		o.machine.ClearAwaitingInfo(convo)
	}
	o.advanceFunnel(convo, cls)

	reply := o.generateReply(ctx, convo, message, cls)
	return OutboundAction{Type: ActionReply, Text: reply}, nil
}

func (o *Orchestrator) escalate(ctx context.Context, convo *Context, message string, decision handoff.Decision) (OutboundAction, error) {
	o.machine.RequestHumanTransfer(convo)

	snap := handoff.Snapshot{
		State:            string(convo.State),
		CollectedData:    convo.CollectedData,
		InteractionCount: convo.InteractionCount,
		LastMessage:      message,
		Summary:          convo.Summary(),
	}
	req, created, err := o.engine.CreateRequest(ctx, convo.ContactID, convo.LeadRef, decision.Reason, decision.Priority, snap)
	if err != nil {
		o.log.Error("escalation failed, replying instead", "contact_id", convo.ContactID, "error", err)
		return OutboundAction{Type: ActionReply, Text: fallbackReplies[1]}, nil
	}
	if created {
		o.metrics.ObserveEscalation(string(req.Reason), string(req.Priority))
	}
	return OutboundAction{
		Type:    ActionEscalate,
		Text:    handoff.Greeting(req.Priority),
		Handoff: req,
	}, nil
}

// advanceFunnel nudges the sales state machine along based on what the
// message showed. All moves go through Transition, an illegal nudge is a
// no-op.
func (o *Orchestrator) advanceFunnel(convo *Context, cls rural.Classification) {
	if convo.State == StateInitial {
		o.machine.Transition(convo, StateGreeting)
	}
	if convo.State == StateGreeting && !greetingOnly(cls) {
		o.machine.Transition(convo, StateBasicQualification)
	}
	if convo.State == StateBasicQualification && len(cls.TechnicalTerms) > 0 {
		o.machine.Transition(convo, StateFarmDetails)
	}

	for _, term := range cls.TechnicalTerms {
		if _, ok := speciesTerms[term]; ok {
			convo.SetSlot("especie", term)
			if convo.State == StateFarmDetails {
				o.machine.Transition(convo, StateSpeciesInterest)
			}
			break
		}
	}

	if cls.HasIntent(rural.IntentPurchase) {
		switch convo.State {
		case StateFarmDetails, StateSpeciesInterest:
			o.machine.Transition(convo, StateBudget)
		}
	}
	if cls.HasIntent(rural.IntentFarewell) && convo.State == StatePostSale {
		o.machine.Transition(convo, StateFinished)
	}
}

func greetingOnly(cls rural.Classification) bool {
	return len(cls.Intents) == 1 && cls.Intents[0] == rural.IntentGreeting && len(cls.TechnicalTerms) == 0
}

func (o *Orchestrator) generateReply(ctx context.Context, convo *Context, message string, cls rural.Classification) string {
	llmCtx, cancel := context.WithTimeout(ctx, o.llmTimeout)
	defer cancel()

	system := []string{systemPrompt, convo.Summary(), classificationHints(cls)}
	if prompts := o.machine.NextPrompts(convo); len(prompts) > 0 {
		system = append(system, "Se fizer sentido na conversa, conduza para: "+strings.Join(prompts, " / "))
	}

	start := time.Now()
	resp, err := o.llm.Complete(llmCtx, LLMRequest{
		Model:       o.modelID,
		System:      system,
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: message}},
		MaxTokens:   512,
		Temperature: 0.7,
	})
	o.metrics.ObserveLLMLatency(time.Since(start).Seconds())

	if err != nil || strings.TrimSpace(resp.Text) == "" {
		o.log.Error("reply generation failed, using fallback",
			"contact_id", convo.ContactID,
			"message", truncate(message, 120),
			"error", err)
		return fallbackReplies[convo.InteractionCount%len(fallbackReplies)]
	}
	return resp.Text
}

func classificationHints(cls rural.Classification) string {
	var parts []string
	if len(cls.Intents) > 0 {
		intents := make([]string, len(cls.Intents))
		for i, in := range cls.Intents {
			intents[i] = string(in)
		}
		parts = append(parts, "intenção: "+strings.Join(intents, ", "))
	}
	parts = append(parts, "urgência: "+string(cls.Urgency))
	if len(cls.TechnicalTerms) > 0 {
		parts = append(parts, "termos técnicos: "+strings.Join(cls.TechnicalTerms, ", "))
	}
	if len(cls.Emotions) > 0 {
		emotions := make([]string, len(cls.Emotions))
		for i, e := range cls.Emotions {
			emotions[i] = string(e)
		}
		parts = append(parts, "emoção: "+strings.Join(emotions, ", "))
	}
	return "Sinais detectados na mensagem. " + strings.Join(parts, "; ") + "."
}

func (o *Orchestrator) lockFor(contactID string) *sync.Mutex {
	mu, _ := o.locks.LoadOrStore(contactID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
