package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/logging"
	"github.com/rmax-ai/grcgraph/pkg/mcp"
)

// Config selects the artifact store served over MCP.
type Config struct {
	ComputedDir string
	Artifacts   string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string
	LogLevel    string
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func configFromEnv() Config {
	root := envOrDefault("GRCGRAPH_ROOT", ".")
	computed := envOrDefault("GRCGRAPH_COMPUTED_DIR", ".computed")
	if !filepath.IsAbs(computed) {
		computed = filepath.Join(root, computed)
	}
	return Config{
		ComputedDir: computed,
		Artifacts:   envOrDefault("GRCGRAPH_ARTIFACTS", "local"),
		S3Bucket:    os.Getenv("GRCGRAPH_S3_BUCKET"),
		S3Prefix:    os.Getenv("GRCGRAPH_S3_PREFIX"),
		S3Region:    envOrDefault("GRCGRAPH_S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("GRCGRAPH_S3_ENDPOINT"),
		LogLevel:    envOrDefault("GRCGRAPH_LOG_LEVEL", "warn"),
	}
}

// openArtifacts returns the store named by cfg.
func openArtifacts(ctx context.Context, cfg Config) (blob.BlobStore, error) {
	switch strings.ToLower(cfg.Artifacts) {
	case "", "local":
		return blob.NewLocalBlobStore(cfg.ComputedDir), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("artifacts=s3 requires s3-bucket")
		}
		client, err := blob.NewS3Client(ctx, blob.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		return blob.NewS3BlobStore(client, cfg.S3Bucket, cfg.S3Prefix), nil
	}
	return nil, fmt.Errorf("unsupported artifacts store: %s", cfg.Artifacts)
}

func main() {
	_ = godotenv.Load()
	cfg := configFromEnv()

	root := &cobra.Command{
		Use:           "grcgraph-mcp",
		Short:         "Serve the computed compliance artifacts over MCP on stdio",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol; logs go to stderr.
			logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: "json", Writer: os.Stderr, Prefix: "grcgraph-mcp"})
			if err != nil {
				return err
			}
			artifacts, err := openArtifacts(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			logger.Info("mcp_server_starting", "artifacts", cfg.Artifacts, "dir", cfg.ComputedDir)
			return mcp.NewServer(artifacts).Serve()
		},
	}
	f := root.Flags()
	f.StringVar(&cfg.ComputedDir, "computed-dir", cfg.ComputedDir, "artifact directory")
	f.StringVar(&cfg.Artifacts, "artifacts", cfg.Artifacts, "artifact store: local|s3")
	f.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "bucket for artifacts=s3")
	f.StringVar(&cfg.S3Prefix, "s3-prefix", cfg.S3Prefix, "key prefix for artifacts=s3")
	f.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "region for artifacts=s3")
	f.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "custom S3 endpoint")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
