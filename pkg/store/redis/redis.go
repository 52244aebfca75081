// Package redis keeps the pending-review state and run leases in Redis, for
// teams that share one pending list across machines.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rmax-ai/grcgraph/pkg/propagation"
)

// DefaultPendingKey is the key holding the pending-review document.
const DefaultPendingKey = "grcgraph:pending"

// RedisPendingStore stores the whole pending-review state as one JSON value.
type RedisPendingStore struct {
	client *redis.Client
	key    string
}

// NewRedisPendingStore creates a store on key, or DefaultPendingKey if empty.
func NewRedisPendingStore(client *redis.Client, key string) *RedisPendingStore {
	if key == "" {
		key = DefaultPendingKey
	}
	return &RedisPendingStore{client: client, key: key}
}

func (s *RedisPendingStore) Load(ctx context.Context) (*propagation.State, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to GET %s: %w", s.key, err)
	}
	var state propagation.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state from %s: %w", s.key, err)
	}
	if state.Pending == nil {
		state.Pending = []propagation.PendingReview{}
	}
	return &state, nil
}

func (s *RedisPendingStore) Save(ctx context.Context, state *propagation.State) error {
	out := *state
	if out.Pending == nil {
		out.Pending = []propagation.PendingReview{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal pending state: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to SET %s: %w", s.key, err)
	}
	return nil
}
