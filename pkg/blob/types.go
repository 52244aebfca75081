// Package blob stores computed artifacts on the local filesystem or in S3.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("blob: not found")

type BlobStore interface {
	// Put uploads content to the blob store.
	Put(ctx context.Context, key string, reader io.Reader) error

	// Get retrieves content from the blob store.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns a list of keys matching the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes a blob.
	Delete(ctx context.Context, key string) error
}

// Object is one blob to write.
type Object struct {
	Key  string
	Data []byte
}

// PutAll writes objects in order and stops at the first failure.
func PutAll(ctx context.Context, store BlobStore, objects []Object) error {
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.Put(ctx, obj.Key, bytes.NewReader(obj.Data)); err != nil {
			return fmt.Errorf("failed to write %s: %w", obj.Key, err)
		}
	}
	return nil
}

// ReadAll reads a whole blob.
func ReadAll(ctx context.Context, store BlobStore, key string) ([]byte, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
