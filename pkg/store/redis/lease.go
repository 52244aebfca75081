package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rmax-ai/grcgraph/pkg/store"
)

const leasePrefix = "grcgraph:lease:"

// acquireScript claims KEYS[1] for ARGV[1], or extends it when ARGV[1]
// already holds it. Returns 1 on success.
var acquireScript = redis.NewScript(`
local holder = redis.call("GET", KEYS[1])
if not holder then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
if holder == ARGV[1] then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// releaseScript deletes KEYS[1] only while ARGV[1] holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLeaseStore keeps run leases as expiring keys, one per lease name.
type RedisLeaseStore struct {
	client *redis.Client
}

func NewRedisLeaseStore(client *redis.Client) *RedisLeaseStore {
	return &RedisLeaseStore{client: client}
}

func (s *RedisLeaseStore) Acquire(ctx context.Context, name, holderID string, ttl time.Duration) (bool, error) {
	n, err := acquireScript.Run(ctx, s.client, []string{leasePrefix + name}, holderID, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}
	return n == 1, nil
}

// Release is a no-op when the lease expired or changed hands.
func (s *RedisLeaseStore) Release(ctx context.Context, name, holderID string) error {
	if err := releaseScript.Run(ctx, s.client, []string{leasePrefix + name}, holderID).Err(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", name, err)
	}
	return nil
}

func (s *RedisLeaseStore) Get(ctx context.Context, name string) (*store.Lease, error) {
	key := leasePrefix + name

	var holder *redis.StringCmd
	var ttl *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		holder = pipe.Get(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lease %s: %w", name, err)
	}

	return &store.Lease{
		Name:      name,
		HolderID:  holder.Val(),
		ExpiresAt: time.Now().UTC().Add(ttl.Val()),
	}, nil
}
