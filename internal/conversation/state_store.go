package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// StateStore persists dialogue state in Redis, one JSON document per
// conversation, expiring with the conversation TTL.
type StateStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewStateStore(rdb *redis.Client, tracer trace.Tracer, ttl time.Duration) *StateStore {
	if rdb == nil {
		panic("conversation: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("luisa.internal.conversation.state")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StateStore{redis: rdb, tracer: tracer, ttl: ttl}
}

// Load returns the stored state, or a fresh one when the conversation is
// unknown or expired.
func (s *StateStore) Load(ctx context.Context, conversationID string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_state")
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(conversationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return NewState(conversationID), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode state: %w", err)
	}
	if state.ConversationID == "" {
		state.ConversationID = conversationID
	}
	return &state, nil
}

// Save persists the state, refreshing the conversation TTL.
func (s *StateStore) Save(ctx context.Context, state *State) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_state")
	defer span.End()

	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(state.ConversationID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist state: %w", err)
	}
	return nil
}

func stateKey(id string) string {
	return fmt.Sprintf("conversation:%s:state", id)
}
