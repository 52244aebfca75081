package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/logging"
	"github.com/rmax-ai/grcgraph/pkg/propagation"
	"github.com/rmax-ai/grcgraph/pkg/store"
	"github.com/rmax-ai/grcgraph/pkg/store/redis"
)

// propagationLease serializes tracker runs on shared backends.
const (
	propagationLease    = "propagation"
	propagationLeaseTTL = 30 * time.Second
)

// app carries the resolved configuration and the process-wide handles.
type app struct {
	cfg    Config
	logger *log.Logger
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
	cwd    string

	// staged lists the files staged in the repository at dir.
	staged func(ctx context.Context, dir string) ([]string, error)
}

func (a *app) init(cwd string) error {
	a.cwd = cwd
	if err := a.cfg.Finalize(cwd, a.now()); err != nil {
		return codeError(3, "invalid config: %s", err)
	}
	logger, err := logging.New(logging.Options{
		Level:  a.cfg.LogLevel,
		Format: a.cfg.LogFormat,
		Writer: a.stderr,
		Prefix: "grcgraph",
	})
	if err != nil {
		return codeError(3, "invalid config: %s", err)
	}
	a.logger = logger
	return nil
}

// repo is the repository root seen as a blob store.
func (a *app) repo() blob.BlobStore {
	return blob.NewLocalBlobStore(a.cfg.Root)
}

// artifacts opens the computed artifact store.
func (a *app) artifacts(ctx context.Context) (blob.BlobStore, error) {
	if a.cfg.Artifacts != "s3" {
		return blob.NewLocalBlobStore(a.cfg.ComputedDir), nil
	}
	client, err := blob.NewS3Client(ctx, blob.S3Config{
		Region:    a.cfg.S3Region,
		Endpoint:  a.cfg.S3Endpoint,
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Bucket:    a.cfg.S3Bucket,
		Prefix:    a.cfg.S3Prefix,
	})
	if err != nil {
		return nil, err
	}
	return blob.NewS3BlobStore(client, a.cfg.S3Bucket, a.cfg.S3Prefix), nil
}

// backend bundles the pending store with its optional helpers.
type backend struct {
	pending propagation.Store
	leases  store.LeaseStore // nil for the file backend
	builds  store.BuildLog   // sqlite only
	close   func() error
}

func (a *app) openBackend(ctx context.Context, artifacts blob.BlobStore) (*backend, error) {
	switch a.cfg.PendingBackend {
	case "sqlite":
		st, err := store.NewStore(a.cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("store_initialized", "path", a.cfg.DBPath)
		return &backend{pending: st, leases: st, builds: st, close: st.Close}, nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: a.cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.cfg.RedisAddr, err)
		}
		return &backend{
			pending: redis.NewRedisPendingStore(client, redis.DefaultPendingKey),
			leases:  redis.NewRedisLeaseStore(client),
			close:   client.Close,
		}, nil
	default:
		return &backend{
			pending: propagation.NewFileStore(artifacts),
			close:   func() error { return nil },
		}, nil
	}
}
