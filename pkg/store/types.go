// Package store persists pending reviews, build history and run leases in
// SQLite.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrLeaseHeld is returned by WithLease when another holder owns the lease.
var ErrLeaseHeld = errors.New("lease held by another process")

// BuildRecord summarizes one completed build.
type BuildRecord struct {
	BuildID     string    `json:"build_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Root        string    `json:"root"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	Stale       int       `json:"stale"`
	Artifacts   int       `json:"artifacts"`
}

// BuildLog records build history.
type BuildLog interface {
	RecordBuild(ctx context.Context, rec BuildRecord) (string, error)
	ListBuilds(ctx context.Context, limit int) ([]BuildRecord, error)
}

// Lease represents a claim held by one running command.
type Lease struct {
	Name      string    `json:"name"`
	HolderID  string    `json:"holder_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Version   int64     `json:"version"`
}

// LeaseStore defines the interface for acquiring and releasing leases.
type LeaseStore interface {
	// Acquire tries to acquire the lease. Returns true if successful.
	// If the lease is already held by holderID, it renews it.
	Acquire(ctx context.Context, name, holderID string, ttl time.Duration) (bool, error)

	// Release releases the lease if held by holderID.
	Release(ctx context.Context, name, holderID string) error

	// Get returns the current lease state, or nil when nobody holds it.
	Get(ctx context.Context, name string) (*Lease, error)
}
