package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/simao-ai/rural-platform/internal/rural"
	"github.com/simao-ai/rural-platform/pkg/logging"
)

var (
	ErrNotFound          = errors.New("handoff: request not found")
	ErrInvalidTransition = errors.New("handoff: invalid status transition")
)

// Notifier tells the agent pool a new request is waiting. Implemented by the
// notify package; failures never block the escalation itself.
type Notifier interface {
	NotifyHandoff(ctx context.Context, req *Request) error
}

// Archiver stores terminal requests outside Redis for later review.
type Archiver interface {
	Archive(ctx context.Context, req *Request) error
}

// Phrases that mean the producer explicitly asked for a person.
var transferPhrases = []string{
	"falar com atendente",
	"falar com uma pessoa",
	"falar com alguém",
	"falar com alguem",
	"falar com gente",
	"falar com humano",
	"atendimento humano",
	"atendente",
	"quero uma pessoa",
	"me liga",
	"pode me ligar",
	"falar com o dono",
	"falar com responsável",
}

// Subjects the bot is not allowed to decide on its own.
var complexityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`financiamento|parcelamento|crédito rural`),
	regexp.MustCompile(`licença|licenciamento|ambiental|outorga`),
	regexp.MustCompile(`consultoria|projeto técnico|assistência técnica`),
	regexp.MustCompile(`contrato|nota fiscal|garantia por escrito`),
	regexp.MustCompile(`\b\d{4,}\s*(alevinos?|peixes?)\b`),
}

// Markers that bump a client request to the urgent queue even when the
// classifier missed them.
var urgentMarkers = []string{"urgente", "problema grave", "socorro", "emergência", "emergencia"}

// An unhappy producer goes straight to a person.
var complaintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`reclama(r|ção|çao|ndo)?\b`),
	regexp.MustCompile(`quero meu dinheiro`),
	regexp.MustCompile(`me devolv`),
	regexp.MustCompile(`propaganda enganosa`),
	regexp.MustCompile(`procon`),
}

// Production emergencies the bot must not try to troubleshoot alone.
var technicalIssuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`mortandade`),
	regexp.MustCompile(`(peixe|alevino)s?.{0,20}morrendo`),
	regexp.MustCompile(`morreu (tudo|todo)`),
	regexp.MustCompile(`doença no viveiro|doenca no viveiro`),
}

// Decision is the outcome of evaluating one message for escalation.
type Decision struct {
	Transfer bool
	Reason   Reason
	Priority Priority
}

// ShouldTransfer checks one normalized message against the escalation rules.
// Rules are ordered, the first hit wins: explicit request, production
// emergency, complaint, complex subject, then a stalled conversation.
func ShouldTransfer(text string, urgency rural.Urgency, interactionCount int, recentProgress bool) Decision {
	lower := strings.ToLower(text)

	for _, phrase := range transferPhrases {
		if strings.Contains(lower, phrase) {
			priority := PriorityHigh
			if urgency == rural.UrgencyHigh || containsAnyMarker(lower) {
				priority = PriorityUrgent
			}
			return Decision{Transfer: true, Reason: ReasonClientRequest, Priority: priority}
		}
	}

	if urgency == rural.UrgencyHigh {
		for _, re := range technicalIssuePatterns {
			if re.MatchString(lower) {
				return Decision{Transfer: true, Reason: ReasonTechnicalIssue, Priority: PriorityUrgent}
			}
		}
	}

	for _, re := range complaintPatterns {
		if re.MatchString(lower) {
			return Decision{Transfer: true, Reason: ReasonComplaint, Priority: PriorityHigh}
		}
	}

	for _, re := range complexityPatterns {
		if re.MatchString(lower) {
			return Decision{Transfer: true, Reason: ReasonComplexInquiry, Priority: PriorityMedium}
		}
	}

	if interactionCount > 10 && !recentProgress {
		return Decision{Transfer: true, Reason: ReasonBotLimitation, Priority: PriorityMedium}
	}

	return Decision{}
}

func containsAnyMarker(lower string) bool {
	for _, m := range urgentMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Greeting is the acknowledgement sent to the producer when their
// conversation is handed to a person.
func Greeting(priority Priority) string {
	if priority == PriorityUrgent {
		return "Entendi que é urgente! Já estou chamando uma pessoa da nossa equipe para falar com você agora mesmo. Só um instante."
	}
	return "Claro! Vou te passar para uma pessoa da nossa equipe. Assim que alguém estiver disponível, continua por aqui mesmo, tá bom?"
}

// Engine manages the escalation queues in Redis. One non-terminal request
// per contact; priority queues drained urgent first, FIFO within a level.
type Engine struct {
	client    *redis.Client
	notifier  Notifier
	archiver  Archiver
	retention time.Duration
	log       *logging.Logger
}

func NewEngine(client *redis.Client, notifier Notifier, archiver Archiver, retention time.Duration, log *logging.Logger) *Engine {
	if client == nil {
		panic("handoff: redis client is required")
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if log == nil {
		log = logging.Default()
	}
	return &Engine{client: client, notifier: notifier, archiver: archiver, retention: retention, log: log}
}

func requestKey(id string) string       { return "handoff:request:" + id }
func queueKey(p Priority) string        { return "handoff:queue:" + string(p) }
func activeKey(contactID string) string { return "handoff:active:" + contactID }

const statsKey = "handoff:stats"

// CreateRequest opens a transfer request for the contact. When a non-terminal
// request already exists it is returned unchanged, so repeated triggers
// cannot pile up duplicates. The second return value reports whether a new
// request was created.
func (e *Engine) CreateRequest(ctx context.Context, contactID, leadRef string, reason Reason, priority Priority, snap Snapshot) (*Request, bool, error) {
	if existingID, err := e.client.Get(ctx, activeKey(contactID)).Result(); err == nil && existingID != "" {
		existing, getErr := e.Get(ctx, existingID)
		if getErr == nil && !existing.Status.Terminal() {
			return existing, false, nil
		}
	} else if err != nil && !errors.Is(err, redis.Nil) {
		return nil, false, fmt.Errorf("handoff: check active request for %s: %w", contactID, err)
	}

	req := &Request{
		ID:        uuid.NewString(),
		ContactID: contactID,
		LeadRef:   leadRef,
		Reason:    reason,
		Priority:  priority,
		Status:    StatusPending,
		Snapshot:  snap,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.save(ctx, req); err != nil {
		return nil, false, err
	}

	pipe := e.client.TxPipeline()
	pipe.LPush(ctx, queueKey(priority), req.ID)
	pipe.Set(ctx, activeKey(contactID), req.ID, e.retention)
	pipe.HIncrBy(ctx, statsKey, "created", 1)
	pipe.HIncrBy(ctx, statsKey, "reason:"+string(reason), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, false, fmt.Errorf("handoff: enqueue request %s: %w", req.ID, err)
	}

	if e.notifier != nil {
		if err := e.notifier.NotifyHandoff(ctx, req); err != nil {
			e.log.Warn("agent pool notification failed", "request_id", req.ID, "error", err)
		}
	}
	return req, true, nil
}

// Assign hands the next pending request to an agent, draining the urgent
// queue first and each queue oldest first. Returns ErrNotFound when every
// queue is empty.
func (e *Engine) Assign(ctx context.Context, agentID, agentName string) (*Request, error) {
	for _, priority := range priorityOrder {
		for {
			id, err := e.client.RPop(ctx, queueKey(priority)).Result()
			if errors.Is(err, redis.Nil) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("handoff: pop %s queue: %w", priority, err)
			}

			req, err := e.Get(ctx, id)
			if err != nil {
				e.log.Warn("dropping stale queue entry", "request_id", id, "error", err)
				continue
			}
			if req.Status != StatusPending {
				continue
			}

			req.Status = StatusAssigned
			req.AgentID = agentID
			req.AgentName = agentName
			req.AssignedAt = time.Now().UTC()
			if err := e.save(ctx, req); err != nil {
				return nil, err
			}

			wait := req.AssignedAt.Sub(req.CreatedAt).Seconds()
			pipe := e.client.TxPipeline()
			pipe.HIncrBy(ctx, statsKey, "assigned", 1)
			pipe.HIncrByFloat(ctx, statsKey, "wait_seconds", wait)
			if _, err := pipe.Exec(ctx); err != nil {
				e.log.Warn("stats update failed", "request_id", req.ID, "error", err)
			}
			return req, nil
		}
	}
	return nil, ErrNotFound
}

// Start marks an assigned request as actively being handled.
func (e *Engine) Start(ctx context.Context, id string) (*Request, error) {
	return e.advance(ctx, id, StatusActive, StatusAssigned)
}

// Complete closes a request after the agent finished with the producer.
func (e *Engine) Complete(ctx context.Context, id string) (*Request, error) {
	return e.advance(ctx, id, StatusCompleted, StatusAssigned, StatusActive)
}

// Cancel withdraws a request that has not been worked yet.
func (e *Engine) Cancel(ctx context.Context, id string) (*Request, error) {
	req, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending && req.Status != StatusAssigned {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, StatusCancelled)
	}
	if req.Status == StatusPending {
		if err := e.client.LRem(ctx, queueKey(req.Priority), 0, req.ID).Err(); err != nil {
			e.log.Warn("queue cleanup failed on cancel", "request_id", req.ID, "error", err)
		}
	}
	req.Status = StatusCancelled
	req.ResolvedAt = time.Now().UTC()
	if err := e.finish(ctx, req, "cancelled"); err != nil {
		return nil, err
	}
	return req, nil
}

// HasActive reports whether the contact already has a live request.
func (e *Engine) HasActive(ctx context.Context, contactID string) (bool, error) {
	id, err := e.client.Get(ctx, activeKey(contactID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("handoff: check active for %s: %w", contactID, err)
	}
	req, err := e.Get(ctx, id)
	if err != nil {
		return false, nil
	}
	return !req.Status.Terminal(), nil
}

// Get loads a request by id.
func (e *Engine) Get(ctx context.Context, id string) (*Request, error) {
	data, err := e.client.Get(ctx, requestKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("handoff: load request %s: %w", id, err)
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("handoff: decode request %s: %w", id, err)
	}
	return &req, nil
}

// Pending lists queued request ids per priority, oldest first.
func (e *Engine) Pending(ctx context.Context, priority Priority) ([]string, error) {
	ids, err := e.client.LRange(ctx, queueKey(priority), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("handoff: list %s queue: %w", priority, err)
	}
	// LPUSH puts newest at the head, reverse for FIFO order.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}

// QueueStats reports queue lengths, lifetime counters and the mean wait
// between creation and assignment.
func (e *Engine) QueueStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{QueueLengths: make(map[Priority]int64, len(priorityOrder))}
	for _, p := range priorityOrder {
		n, err := e.client.LLen(ctx, queueKey(p)).Result()
		if err != nil {
			return nil, fmt.Errorf("handoff: queue length for %s: %w", p, err)
		}
		stats.QueueLengths[p] = n
	}

	raw, err := e.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("handoff: load stats: %w", err)
	}
	stats.Created = parseInt(raw["created"])
	stats.Completed = parseInt(raw["completed"])
	stats.Cancelled = parseInt(raw["cancelled"])
	stats.AssignedTotal = parseInt(raw["assigned"])
	stats.ByReason = make(map[Reason]int64)
	for field, value := range raw {
		if name, ok := strings.CutPrefix(field, "reason:"); ok {
			stats.ByReason[Reason(name)] = parseInt(value)
		}
	}
	if stats.AssignedTotal > 0 {
		waitSum, _ := strconv.ParseFloat(raw["wait_seconds"], 64)
		stats.MeanWaitSecs = waitSum / float64(stats.AssignedTotal)
	}
	return stats, nil
}

func (e *Engine) advance(ctx context.Context, id string, to Status, from ...Status) (*Request, error) {
	req, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, s := range from {
		if req.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, to)
	}

	req.Status = to
	if to == StatusCompleted {
		req.ResolvedAt = time.Now().UTC()
		if err := e.finish(ctx, req, "completed"); err != nil {
			return nil, err
		}
		return req, nil
	}
	if err := e.save(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (e *Engine) finish(ctx context.Context, req *Request, counter string) error {
	if err := e.save(ctx, req); err != nil {
		return err
	}
	pipe := e.client.TxPipeline()
	pipe.Del(ctx, activeKey(req.ContactID))
	pipe.HIncrBy(ctx, statsKey, counter, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("handoff: finalize request %s: %w", req.ID, err)
	}
	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, req); err != nil {
			e.log.Warn("archive failed", "request_id", req.ID, "error", err)
		}
	}
	return nil
}

func (e *Engine) save(ctx context.Context, req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("handoff: encode request %s: %w", req.ID, err)
	}
	if err := e.client.Set(ctx, requestKey(req.ID), data, e.retention).Err(); err != nil {
		return fmt.Errorf("handoff: store request %s: %w", req.ID, err)
	}
	return nil
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
