package store

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// WithLease runs fn while holding the named lease. It returns ErrLeaseHeld
// without running fn when someone else holds it.
func WithLease(ctx context.Context, leases LeaseStore, name string, ttl time.Duration, fn func() error) error {
	holderID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate holder id: %w", err)
	}

	ok, err := leases.Acquire(ctx, name, holderID, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrLeaseHeld)
	}
	defer leases.Release(context.WithoutCancel(ctx), name, holderID)

	return fn()
}
