package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLocalBlobStore(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalBlobStore(tmpDir)
	ctx := context.Background()

	key := "reports/graph.json"
	content := "{}\n"
	if err := store.Put(ctx, key, strings.NewReader(content)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "reports", "graph.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("File was not created at expected path: %s", expectedPath)
	}

	data, err := ReadAll(ctx, store, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != content {
		t.Errorf("Get content mismatch. Got %q, want %q", data, content)
	}

	// Overwrite keeps a single file and leaves no temp files behind.
	if err := store.Put(ctx, key, strings.NewReader("{\"v\":2}\n")); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	store.Put(ctx, "reports/soa.json", strings.NewReader("{}"))

	keys, err := store.List(ctx, "reports")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"reports/graph.json", "reports/soa.json"}) {
		t.Errorf("List = %v", keys)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestLocalBlobStore_ListMissingPrefix(t *testing.T) {
	keys, err := NewLocalBlobStore(t.TempDir()).List(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestPutAll(t *testing.T) {
	store := NewLocalBlobStore(t.TempDir())
	ctx := context.Background()
	objects := []Object{
		{Key: "a.json", Data: []byte("a")},
		{Key: "b.json", Data: []byte("b")},
	}
	if err := PutAll(ctx, store, objects); err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
	for _, obj := range objects {
		data, err := ReadAll(ctx, store, obj.Key)
		if err != nil || string(data) != string(obj.Data) {
			t.Errorf("%s = %q, %v", obj.Key, data, err)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := PutAll(cancelled, store, objects); err == nil {
		t.Error("expected error for cancelled context")
	}
}
