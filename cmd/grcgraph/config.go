package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	defaultComputedDir    = ".computed"
	defaultDBName         = "grcgraph.db"
	defaultPendingBackend = "file"
	defaultArtifacts      = "local"
	defaultRedisAddr      = "127.0.0.1:6379"
	defaultS3Region       = "us-east-1"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
)

// Config holds the settings shared by every command. Values come from
// defaults, then GRCGRAPH_* variables (a .env file included), then flags.
type Config struct {
	Root           string `flag:"root" validate:"required"`
	ComputedDir    string `flag:"computed-dir" validate:"required"`
	PendingBackend string `flag:"pending-backend" validate:"oneof=file sqlite redis"`
	DBPath         string `flag:"db"`
	RedisAddr      string `flag:"redis-addr"`
	Artifacts      string `flag:"artifacts" validate:"oneof=local s3"`
	S3Bucket       string `flag:"s3-bucket"`
	S3Prefix       string `flag:"s3-prefix"`
	S3Region       string `flag:"s3-region"`
	S3Endpoint     string `flag:"s3-endpoint"`
	LogLevel       string `flag:"log-level" validate:"oneof=debug info warn error"`
	LogFormat      string `flag:"log-format" validate:"oneof=text json logfmt"`
	Workers        int    `flag:"workers" validate:"min=1"`
	Today          string `flag:"today"`

	// Day is Today parsed, or the current UTC date.
	Day time.Time `validate:"-"`
}

// LoadEnv reads a .env file from the working directory when one exists.
func LoadEnv() {
	// A missing .env is the normal case.
	_ = godotenv.Load()
}

// ConfigFromEnv returns the defaults overridden by the environment.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Root:           envOrDefault("GRCGRAPH_ROOT", "."),
		ComputedDir:    envOrDefault("GRCGRAPH_COMPUTED_DIR", defaultComputedDir),
		PendingBackend: envOrDefault("GRCGRAPH_PENDING_BACKEND", defaultPendingBackend),
		DBPath:         os.Getenv("GRCGRAPH_DB_PATH"),
		RedisAddr:      envOrDefault("GRCGRAPH_REDIS_ADDR", defaultRedisAddr),
		Artifacts:      envOrDefault("GRCGRAPH_ARTIFACTS", defaultArtifacts),
		S3Bucket:       os.Getenv("GRCGRAPH_S3_BUCKET"),
		S3Prefix:       os.Getenv("GRCGRAPH_S3_PREFIX"),
		S3Region:       envOrDefault("GRCGRAPH_S3_REGION", defaultS3Region),
		S3Endpoint:     os.Getenv("GRCGRAPH_S3_ENDPOINT"),
		LogLevel:       envOrDefault("GRCGRAPH_LOG_LEVEL", defaultLogLevel),
		LogFormat:      envOrDefault("GRCGRAPH_LOG_FORMAT", defaultLogFormat),
		Workers:        runtime.NumCPU(),
		Today:          os.Getenv("GRCGRAPH_TODAY"),
	}
	if raw := os.Getenv("GRCGRAPH_WORKERS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GRCGRAPH_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	return cfg, nil
}

// BindFlags registers the persistent flags of cmd, defaulting to cfg.
func BindFlags(cmd *cobra.Command, cfg *Config) {
	f := cmd.PersistentFlags()
	f.StringVar(&cfg.Root, "root", cfg.Root, "repository root")
	f.StringVar(&cfg.ComputedDir, "computed-dir", cfg.ComputedDir, "artifact directory, relative to the root")
	f.StringVar(&cfg.PendingBackend, "pending-backend", cfg.PendingBackend, "pending-review store: file|sqlite|redis")
	f.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to SQLite database (sqlite backend)")
	f.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address (redis backend)")
	f.StringVar(&cfg.Artifacts, "artifacts", cfg.Artifacts, "artifact store: local|s3")
	f.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "bucket for artifacts=s3")
	f.StringVar(&cfg.S3Prefix, "s3-prefix", cfg.S3Prefix, "key prefix for artifacts=s3")
	f.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "region for artifacts=s3")
	f.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "custom S3 endpoint")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text|json|logfmt")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "files parsed concurrently")
	f.StringVar(&cfg.Today, "today", cfg.Today, "reference date YYYY-MM-DD for staleness (default: current date)")
}

var validate = newValidator()

// newValidator reports fields under their flag names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("flag"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// Finalize resolves paths against cwd, validates, and parses the reference
// date.
func (c *Config) Finalize(cwd string, now time.Time) error {
	c.PendingBackend = strings.ToLower(strings.TrimSpace(c.PendingBackend))
	c.Artifacts = strings.ToLower(strings.TrimSpace(c.Artifacts))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))

	if err := validate.Struct(c); err != nil {
		return describeValidation(err)
	}

	c.Root = resolvePath(c.Root, cwd)
	c.ComputedDir = resolvePath(c.ComputedDir, c.Root)
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.ComputedDir, defaultDBName)
	} else {
		c.DBPath = resolvePath(c.DBPath, c.Root)
	}

	if c.Artifacts == "s3" && strings.TrimSpace(c.S3Bucket) == "" {
		return errors.New("artifacts=s3 requires s3-bucket")
	}
	if c.PendingBackend == "redis" && strings.TrimSpace(c.RedisAddr) == "" {
		return errors.New("pending-backend=redis requires redis-addr")
	}

	if c.Today == "" {
		y, m, d := now.UTC().Date()
		c.Day = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return nil
	}
	day, err := time.Parse(time.DateOnly, c.Today)
	if err != nil {
		return fmt.Errorf("invalid today %q: expected YYYY-MM-DD", c.Today)
	}
	c.Day = day
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("invalid %s %q: must be one of %s", fe.Field(), fe.Value(), fe.Param())
	case "min":
		return fmt.Errorf("%s must be at least %s", fe.Field(), fe.Param())
	case "required":
		return fmt.Errorf("%s cannot be empty", fe.Field())
	}
	return fmt.Errorf("invalid %s", fe.Field())
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func resolvePath(path string, base string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Join(base, trimmed)
}
