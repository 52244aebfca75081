package store

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// RecordBuild stores rec and returns its build ID. A fresh ID is generated
// when rec has none.
func (s *Store) RecordBuild(ctx context.Context, rec BuildRecord) (string, error) {
	if rec.BuildID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return "", fmt.Errorf("failed to generate build id: %w", err)
		}
		rec.BuildID = id
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (build_id, generated_at, root, nodes, edges, stale, artifacts, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.BuildID, formatTime(rec.GeneratedAt), rec.Root, rec.Nodes, rec.Edges, rec.Stale, rec.Artifacts, formatTime(s.now()))
	if err != nil {
		return "", fmt.Errorf("failed to record build: %w", err)
	}
	return rec.BuildID, nil
}

// ListBuilds returns the most recent builds first. A non-positive limit
// returns all of them.
func (s *Store) ListBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT build_id, generated_at, root, nodes, edges, stale, artifacts
		FROM builds ORDER BY generated_at DESC, recorded_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}
	defer rows.Close()

	builds := []BuildRecord{}
	for rows.Next() {
		var rec BuildRecord
		var generatedAt string
		if err := rows.Scan(&rec.BuildID, &generatedAt, &rec.Root, &rec.Nodes, &rec.Edges, &rec.Stale, &rec.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		if rec.GeneratedAt, err = parseTime(generatedAt); err != nil {
			return nil, err
		}
		builds = append(builds, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate builds: %w", err)
	}
	return builds, nil
}
