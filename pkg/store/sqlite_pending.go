package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rmax-ai/grcgraph/pkg/propagation"
)

// Load returns the pending-review state, or nil if it was never saved.
func (s *Store) Load(ctx context.Context) (*propagation.State, error) {
	var lastUpdated string
	err := s.db.QueryRowContext(ctx, `SELECT last_updated FROM pending_meta WHERE id = 1`).Scan(&lastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pending metadata: %w", err)
	}

	state := &propagation.State{Pending: []propagation.PendingReview{}}
	if state.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT file, triggered_by, triggered_at, reason
		FROM pending_reviews ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p propagation.PendingReview
		var triggeredAt string
		if err := rows.Scan(&p.File, &p.TriggeredBy, &triggeredAt, &p.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan pending review: %w", err)
		}
		if p.TriggeredAt, err = parseTime(triggeredAt); err != nil {
			return nil, err
		}
		state.Pending = append(state.Pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending reviews: %w", err)
	}
	return state, nil
}

// Save replaces the whole pending-review state in one transaction.
func (s *Store) Save(ctx context.Context, state *propagation.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_reviews`); err != nil {
		return fmt.Errorf("failed to clear pending reviews: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO pending_reviews (position, file, triggered_by, triggered_at, reason)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range state.Pending {
		if _, err := stmt.ExecContext(ctx, i, p.File, p.TriggeredBy, formatTime(p.TriggeredAt), p.Reason); err != nil {
			return fmt.Errorf("failed to insert pending review %s: %w", p.File, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pending_meta (id, last_updated) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_updated = excluded.last_updated
	`, formatTime(state.LastUpdated)); err != nil {
		return fmt.Errorf("failed to update pending metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pending reviews: %w", err)
	}
	return nil
}
