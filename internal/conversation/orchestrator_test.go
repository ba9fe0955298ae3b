package conversation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simao-ai/rural-platform/internal/handoff"
	"github.com/simao-ai/rural-platform/pkg/logging"
)

type stubLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	last  LLMRequest
}

func (s *stubLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	s.last = req
	s.mu.Unlock()
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.reply}, nil
}

func (s *stubLLM) lastRequest() LLMRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type blockingLLM struct{}

func (blockingLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	<-ctx.Done()
	return LLMResponse{}, ctx.Err()
}

type panickyLLM struct{}

func (panickyLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	panic("model client exploded")
}

func newTestOrchestrator(t *testing.T, llm LLMClient, withEngine bool) (*Orchestrator, *RedisStateStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStateStore(client, time.Hour, nil)
	var engine *handoff.Engine
	if withEngine {
		engine = handoff.NewEngine(client, nil, nil, 0, nil)
	}
	return NewOrchestrator(store, llm, engine, OrchestratorConfig{LLMTimeout: time.Second}), store
}

func TestProcessInboundReply(t *testing.T) {
	llm := &stubLLM{reply: "Oi! Como posso ajudar na sua criação?"}
	o, store := newTestOrchestrator(t, llm, false)
	ctx := context.Background()

	action, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "bom dia")
	require.NoError(t, err)
	assert.Equal(t, ActionReply, action.Type)
	assert.Equal(t, llm.reply, action.Text)

	convo, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	require.NotNil(t, convo)
	assert.Equal(t, 1, convo.InteractionCount)
	assert.Equal(t, StateGreeting, convo.State)
}

func TestProcessInboundEmptyMessage(t *testing.T) {
	o, store := newTestOrchestrator(t, &stubLLM{reply: "oi"}, false)
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\n\t"} {
		action, err := o.ProcessInboundMessage(ctx, "5511999990000", "", text)
		require.NoError(t, err)
		assert.Equal(t, ActionReply, action.Type)
		assert.Equal(t, emptyMessageReply, action.Text)
	}

	convo, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, 3, convo.InteractionCount)
}

func TestProcessInboundHumanAgentStaysSilent(t *testing.T) {
	o, store := newTestOrchestrator(t, &stubLLM{reply: "oi"}, false)
	ctx := context.Background()

	convo := NewContext("5511999990000", "")
	convo.IsHumanAgent = true
	require.NoError(t, store.Save(ctx, convo))

	action, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "e aí, tudo bem?")
	require.NoError(t, err)
	assert.Equal(t, ActionSilence, action.Type)

	got, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, 1, got.InteractionCount)
}

func TestProcessInboundConfirmationFlow(t *testing.T) {
	llm := &stubLLM{reply: "Entendi!"}
	o, store := newTestOrchestrator(t, llm, false)
	ctx := context.Background()

	action, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "kero sabe doenssa tanqui")
	require.NoError(t, err)
	assert.Equal(t, ActionRequestConfirmation, action.Type)
	assert.Contains(t, action.PendingCorrected, "quero")

	convo, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.NotEmpty(t, convo.PendingCorrected)
	// The guessed text never lands in the qualification slots.
	assert.Empty(t, convo.CollectedData)

	action, err = o.ProcessInboundMessage(ctx, "5511999990000", "", "sim")
	require.NoError(t, err)
	assert.Equal(t, ActionReply, action.Type)
	assert.Contains(t, llm.lastRequest().Messages[0].Content, "quero")

	convo, err = store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Empty(t, convo.PendingCorrected)
}

func TestProcessInboundConfirmationRejected(t *testing.T) {
	llm := &stubLLM{reply: "Sem problema!"}
	o, store := newTestOrchestrator(t, llm, false)
	ctx := context.Background()

	_, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "kero sabe doenssa tanqui")
	require.NoError(t, err)

	action, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "esquece, outra coisa")
	require.NoError(t, err)
	assert.Equal(t, ActionReply, action.Type)
	assert.Contains(t, llm.lastRequest().Messages[0].Content, "esquece")

	convo, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Empty(t, convo.PendingCorrected)
}

func TestProcessInboundLLMTimeout(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStateStore(client, time.Hour, nil)

	o := NewOrchestrator(store, blockingLLM{}, nil, OrchestratorConfig{LLMTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	action, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "quanto custa o alevino")
	require.NoError(t, err)
	assert.Equal(t, ActionReply, action.Type)
	assert.Contains(t, fallbackReplies, action.Text)

	// The interaction still counted despite the timeout.
	convo, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, 1, convo.InteractionCount)
}

func TestProcessInboundLLMErrorLogsTruncatedMessage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStateStore(client, time.Hour, nil)

	var buf bytes.Buffer
	log := &logging.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	o := NewOrchestrator(store, &stubLLM{err: errors.New("model unavailable")}, nil, OrchestratorConfig{
		LLMTimeout: time.Second,
		Logger:     log,
	})

	long := strings.TrimSpace(strings.Repeat("quanto custa o alevino de tilápia ", 6))
	action, err := o.ProcessInboundMessage(context.Background(), "5511999990000", "", long)
	require.NoError(t, err)
	assert.Equal(t, ActionReply, action.Type)
	assert.Contains(t, fallbackReplies, action.Text)

	logged := buf.String()
	assert.Contains(t, logged, `"level":"ERROR"`)
	assert.Contains(t, logged, "5511999990000")
	assert.Contains(t, logged, "...")
	assert.NotContains(t, logged, long)
}

func TestProcessInboundPanicRecovery(t *testing.T) {
	o, store := newTestOrchestrator(t, panickyLLM{}, false)
	ctx := context.Background()

	action, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "oi tudo bem")
	require.NoError(t, err)
	assert.Equal(t, ActionReply, action.Type)
	assert.NotEmpty(t, action.Text)

	convo, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, 1, convo.InteractionCount)
}

func TestProcessInboundAdversarialInput(t *testing.T) {
	o, _ := newTestOrchestrator(t, &stubLLM{reply: "oi"}, false)
	ctx := context.Background()

	inputs := []string{
		"🐟🐟🐟",
		"ŁØŘĔM ìpsum ░░░ ▓▓▓",
		"​​​",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	}
	for _, in := range inputs {
		action, err := o.ProcessInboundMessage(ctx, "5511999990000", "", in)
		require.NoError(t, err)
		assert.NotEmpty(t, action.Type)
	}
}

func TestProcessInboundEscalation(t *testing.T) {
	o, store := newTestOrchestrator(t, &stubLLM{reply: "oi"}, true)
	ctx := context.Background()

	action, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "quero falar com atendente, problema grave")
	require.NoError(t, err)
	assert.Equal(t, ActionEscalate, action.Type)
	require.NotNil(t, action.Handoff)
	assert.Equal(t, handoff.ReasonClientRequest, action.Handoff.Reason)
	assert.Equal(t, handoff.PriorityUrgent, action.Handoff.Priority)
	assert.Contains(t, action.Text, "urgente")

	convo, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.True(t, convo.TransferRequested)

	// Escalating again reuses the open request.
	again, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "preciso falar com atendente")
	require.NoError(t, err)
	assert.Equal(t, ActionEscalate, again.Type)
	assert.Equal(t, action.Handoff.ID, again.Handoff.ID)
}

func TestProcessInboundCarriesLeadRefIntoHandoff(t *testing.T) {
	o, store := newTestOrchestrator(t, &stubLLM{reply: "oi"}, true)
	ctx := context.Background()

	_, err := o.ProcessInboundMessage(ctx, "5511999990000", "lead-42", "oi bom dia")
	require.NoError(t, err)

	convo, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, "lead-42", convo.LeadRef)

	// A later message without the ref keeps the stored one.
	action, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "quero falar com atendente agora")
	require.NoError(t, err)
	require.Equal(t, ActionEscalate, action.Type)
	require.NotNil(t, action.Handoff)
	assert.Equal(t, "lead-42", action.Handoff.LeadRef)
	assert.NotEmpty(t, action.Handoff.Snapshot.Summary)
}

func TestProcessInboundClosingConfirmationEscalates(t *testing.T) {
	o, store := newTestOrchestrator(t, &stubLLM{reply: "oi"}, true)
	ctx := context.Background()

	convo := NewContext("5511999990000", "")
	convo.State = StateClosing
	require.NoError(t, store.Save(ctx, convo))

	action, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "sim pode fechar o pedido")
	require.NoError(t, err)
	require.Equal(t, ActionEscalate, action.Type)
	require.NotNil(t, action.Handoff)
	assert.Equal(t, handoff.ReasonSalesClosing, action.Handoff.Reason)
	assert.Equal(t, handoff.PriorityHigh, action.Handoff.Priority)
}

func TestProcessInboundFunnelProgression(t *testing.T) {
	o, store := newTestOrchestrator(t, &stubLLM{reply: "show"}, false)
	ctx := context.Background()
	contact := "5511988887777"

	steps := []struct {
		message   string
		wantState State
	}{
		{"oi bom dia", StateGreeting},
		{"tenho um viveiro de tilápia", StateSpeciesInterest},
		{"quero comprar mais uns alevinos", StateBudget},
	}
	for _, step := range steps {
		_, err := o.ProcessInboundMessage(ctx, contact, "", step.message)
		require.NoError(t, err)
		convo, err := store.Get(ctx, contact)
		require.NoError(t, err)
		assert.Equal(t, step.wantState, convo.State, "after %q", step.message)
	}

	convo, err := store.Get(ctx, contact)
	require.NoError(t, err)
	assert.Equal(t, "tilápia", convo.CollectedData["especie"])
	assert.Equal(t, 3, convo.InteractionCount)
}

func TestProcessInboundExpiredContextResets(t *testing.T) {
	o, store := newTestOrchestrator(t, &stubLLM{reply: "oi"}, false)
	ctx := context.Background()

	stale := NewContext("5511999990000", "")
	stale.State = StateBudget
	stale.InteractionCount = 7
	stale.LastMessageAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.Save(ctx, stale))

	_, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "oi bom dia")
	require.NoError(t, err)

	convo, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, 1, convo.InteractionCount)
	assert.Equal(t, StateGreeting, convo.State)
}

func TestProcessInboundSequentialPerContact(t *testing.T) {
	o, store := newTestOrchestrator(t, &stubLLM{reply: "oi"}, false)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.ProcessInboundMessage(ctx, "5511999990000", "", "quanto custa")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	convo, err := store.Get(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, 10, convo.InteractionCount)
}

var errBoom = errors.New("boom")

func TestProcessInboundLLMErrorFallsBack(t *testing.T) {
	o, _ := newTestOrchestrator(t, &stubLLM{err: errBoom}, false)

	action, err := o.ProcessInboundMessage(context.Background(), "5511999990000", "", "quanto custa o alevino")
	require.NoError(t, err)
	assert.Equal(t, ActionReply, action.Type)
	assert.Contains(t, fallbackReplies, action.Text)
}
