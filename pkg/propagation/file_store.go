package propagation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/reports"
)

// FileStore keeps the pending-review state as pending-reviews.json in a blob
// store, next to the other computed artifacts.
type FileStore struct {
	blobs blob.BlobStore
	key   string
}

// NewFileStore creates a store writing PendingFile into blobs.
func NewFileStore(blobs blob.BlobStore) *FileStore {
	return &FileStore{blobs: blobs, key: PendingFile}
}

func (s *FileStore) Load(ctx context.Context) (*State, error) {
	data, err := blob.ReadAll(ctx, s.blobs, s.key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.key, err)
	}
	return &state, nil
}

func (s *FileStore) Save(ctx context.Context, state *State) error {
	data, err := reports.EncodeJSON(normalize(state))
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.key, err)
	}
	return s.blobs.Put(ctx, s.key, bytes.NewReader(data))
}

// normalize makes sure pending encodes as [] rather than null.
func normalize(state *State) *State {
	out := *state
	if out.Pending == nil {
		out.Pending = []PendingReview{}
	}
	return &out
}
