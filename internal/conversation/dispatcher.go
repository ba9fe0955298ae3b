package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simao-ai/rural-platform/pkg/logging"
)

// ErrDispatcherClosed indicates the dispatcher stopped accepting work.
var ErrDispatcherClosed = errors.New("conversation: dispatcher closed")

const (
	defaultWorkers     = 2
	defaultReceiveWait = 2
	defaultReceiveMax  = 5
	maxReceiveWait     = 20 // SQS limit
	maxReceiveBatch    = 10
)

type dispatcherConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	messenger        Messenger
}

// DispatcherOption configures the queue workers.
type DispatcherOption func(*dispatcherConfig)

func WithWorkerCount(workers int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

func WithReceiveWaitSeconds(seconds int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxReceiveWait {
			seconds = maxReceiveWait
		}
		cfg.receiveWaitSecs = seconds
	}
}

func WithReceiveBatchSize(size int) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatch {
			size = maxReceiveBatch
		}
		cfg.receiveBatchSize = size
	}
}

// WithMessenger delivers actions straight to the contact's channel when no
// caller is blocked on the job. This is how the standalone worker binary
// gets replies out without the HTTP tier.
func WithMessenger(m Messenger) DispatcherOption {
	return func(cfg *dispatcherConfig) {
		cfg.messenger = m
	}
}

type inboundJob struct {
	ID        string `json:"id"`
	ContactID string `json:"contact_id"`
	LeadRef   string `json:"lead_ref,omitempty"`
	Text      string `json:"text"`
}

type dispatchResult struct {
	action OutboundAction
	err    error
}

// Dispatcher routes inbound messages through a queue before the orchestrator
// handles them. The same HTTP handler works against LocalStack SQS in
// development and AWS SQS in production.
type Dispatcher struct {
	orchestrator *Orchestrator
	queue        queueClient
	log          *logging.Logger

	cfg dispatcherConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pending sync.Map // jobID -> chan dispatchResult
}

// NewDispatcher starts the worker pool immediately.
func NewDispatcher(orchestrator *Orchestrator, queue queueClient, log *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if orchestrator == nil {
		panic("conversation: orchestrator cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if log == nil {
		log = logging.Default()
	}

	cfg := dispatcherConfig{
		workers:          defaultWorkers,
		receiveWaitSecs:  defaultReceiveWait,
		receiveBatchSize: defaultReceiveMax,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		orchestrator: orchestrator,
		queue:        queue,
		log:          log,
		cfg:          cfg,
		ctx:          ctx,
		cancel:       cancel,
	}
	for i := 0; i < cfg.workers; i++ {
		d.wg.Add(1)
		go d.runWorker(i + 1)
	}
	return d
}

// Dispatch enqueues an inbound message and blocks until the orchestrator
// produced its outbound action.
func (d *Dispatcher) Dispatch(ctx context.Context, contactID, leadRef, text string) (OutboundAction, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	job := inboundJob{ID: uuid.NewString(), ContactID: contactID, LeadRef: leadRef, Text: text}
	body, err := json.Marshal(job)
	if err != nil {
		return OutboundAction{}, fmt.Errorf("conversation: encode inbound job: %w", err)
	}

	resultCh := make(chan dispatchResult, 1)
	d.pending.Store(job.ID, resultCh)
	defer d.pending.Delete(job.ID)

	if err := d.queue.Send(ctx, string(body)); err != nil {
		return OutboundAction{}, fmt.Errorf("conversation: enqueue inbound job: %w", err)
	}

	select {
	case <-ctx.Done():
		return OutboundAction{}, ctx.Err()
	case res := <-resultCh:
		return res.action, res.err
	}
}

// Shutdown stops the workers and releases any blocked callers.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	d.pending.Range(func(key, value any) bool {
		if ch, ok := value.(chan dispatchResult); ok {
			select {
			case ch <- dispatchResult{err: ErrDispatcherClosed}:
			default:
			}
		}
		d.pending.Delete(key)
		return true
	})
	return nil
}

func (d *Dispatcher) runWorker(workerID int) {
	defer d.wg.Done()
	d.log.Debug("dispatcher worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		select {
		case <-d.ctx.Done():
			d.log.Debug("dispatcher worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := d.queue.Receive(d.ctx, d.cfg.receiveBatchSize, d.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			d.log.Error("receive inbound jobs failed", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			d.handleQueueMessage(msg)
		}
	}
}

func (d *Dispatcher) handleQueueMessage(msg queueMessage) {
	deleteMessage := func() {
		deleteCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.queue.Delete(deleteCtx, msg.ReceiptHandle); err != nil {
			d.log.Error("delete inbound job failed", "error", err)
		}
	}

	var job inboundJob
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		d.log.Error("decode inbound job failed", "error", err)
		deleteMessage()
		return
	}

	action, err := d.orchestrator.ProcessInboundMessage(d.ctx, job.ContactID, job.LeadRef, job.Text)
	deleteMessage()
	d.deliverResult(job.ContactID, job.ID, action, err)
}

func (d *Dispatcher) deliverResult(contactID, jobID string, action OutboundAction, err error) {
	value, ok := d.pending.Load(jobID)
	if !ok {
		if d.cfg.messenger != nil && err == nil && action.Type != ActionSilence && action.Text != "" {
			sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if sendErr := d.cfg.messenger.Send(sendCtx, contactID, action.Text); sendErr != nil {
				d.log.Error("deliver outbound action failed", "contact_id", contactID, "error", sendErr)
			}
			return
		}
		d.log.Debug("no waiting caller for inbound job", "job_id", jobID)
		return
	}
	ch, ok := value.(chan dispatchResult)
	if !ok {
		d.pending.Delete(jobID)
		return
	}
	select {
	case ch <- dispatchResult{action: action, err: err}:
	default:
	}
}
