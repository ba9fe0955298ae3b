package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/simao-ai/rural-platform/pkg/logging"
)

var tracer = otel.Tracer("conversation")

// StateStore persists conversation contexts keyed by contact.
type StateStore interface {
	// Get returns the stored context, or nil when none exists. A backend
	// failure also returns nil so the caller can degrade to a fresh
	// context instead of dropping the message.
	Get(ctx context.Context, contactID string) (*Context, error)
	// Save writes the context and refreshes its TTL.
	Save(ctx context.Context, c *Context) error
	// Delete removes the stored context.
	Delete(ctx context.Context, contactID string) error
}

// RedisStateStore keeps contexts in Redis as JSON with a sliding TTL. Every
// save refreshes the expiry, so active conversations never age out.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logging.Logger
}

// NewRedisStateStore panics on nil client: wiring error, not runtime state.
func NewRedisStateStore(client *redis.Client, ttl time.Duration, log *logging.Logger) *RedisStateStore {
	if client == nil {
		panic("conversation: redis client is required")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if log == nil {
		log = logging.Default()
	}
	return &RedisStateStore{client: client, ttl: ttl, log: log}
}

func stateKey(contactID string) string {
	return "conversation:state:" + contactID
}

func (s *RedisStateStore) Get(ctx context.Context, contactID string) (*Context, error) {
	ctx, span := tracer.Start(ctx, "RedisStateStore.Get")
	defer span.End()
	span.SetAttributes(attribute.String("contact.id", contactID))

	data, err := s.client.Get(ctx, stateKey(contactID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.log.Warn("state store unavailable, continuing without context", "contact_id", contactID, "error", err)
		return nil, nil
	}

	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		s.log.Warn("discarding corrupt conversation state", "contact_id", contactID, "error", err)
		return nil, nil
	}
	return &c, nil
}

func (s *RedisStateStore) Save(ctx context.Context, c *Context) error {
	ctx, span := tracer.Start(ctx, "RedisStateStore.Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("contact.id", c.ContactID),
		attribute.String("conversation.state", string(c.State)),
	)

	c.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("conversation: marshal state for %s: %w", c.ContactID, err)
	}
	if err := s.client.Set(ctx, stateKey(c.ContactID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: save state for %s: %w", c.ContactID, err)
	}
	return nil
}

func (s *RedisStateStore) Delete(ctx context.Context, contactID string) error {
	if err := s.client.Del(ctx, stateKey(contactID)).Err(); err != nil {
		return fmt.Errorf("conversation: delete state for %s: %w", contactID, err)
	}
	return nil
}
