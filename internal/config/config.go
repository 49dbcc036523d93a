// Package config loads runtime configuration from the environment, with
// an optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"voxledger/internal/app/storage"
)

// Config is the full runtime configuration.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Redis   RedisConfig
	Storage StorageConfig
	Engine  EngineConfig
	Worker  WorkerConfig
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string
	Port int `validate:"min=1,max=65535"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DBConfig selects the database driver and its location.
type DBConfig struct {
	Driver string `validate:"oneof=sqlite3 postgres"`
	// SQLitePath is the database file for the sqlite3 driver.
	SQLitePath string
	// DSN is the connection string for the postgres driver.
	DSN string
}

// RedisConfig configures the asynq broker and the distributed admission
// lock. Unused when the in-process queue backend is selected.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig selects the blob backend.
type StorageConfig struct {
	Backend string `validate:"oneof=local minio"`
	// LocalRoot is the directory for the local backend.
	LocalRoot string
	Minio     storage.MinioConfig
}

// EngineConfig selects the transcription engine.
type EngineConfig struct {
	Provider string `validate:"oneof=whispercpp openai"`
	// WhisperBinary and ModelDir configure the local provider; model
	// files are expected at <ModelDir>/ggml-<tier>.bin unless the
	// manifest overrides them.
	WhisperBinary string
	ModelDir      string
	ModelManifest string
	// OpenAIKey and OpenAIModel configure the hosted provider.
	OpenAIKey   string
	OpenAIModel string
}

// WorkerConfig sizes the processing side.
type WorkerConfig struct {
	// Backend is "pool" for the in-process queue or "asynq" for redis.
	Backend     string `validate:"oneof=pool asynq"`
	Concurrency int    `validate:"min=1"`
	QueueDepth  int    `validate:"min=1"`
}

// LoadEnv loads a .env file when one exists. Missing files are fine;
// system environment variables may already be set.
func LoadEnv() error {
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				return fmt.Errorf("load %s: %w", p, err)
			}
			break
		}
	}
	return nil
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: envStr("VOXLEDGER_HOST", "0.0.0.0"),
			Port: envInt("VOXLEDGER_PORT", 8080),
		},
		DB: DBConfig{
			Driver:     envStr("VOXLEDGER_DB_DRIVER", "sqlite3"),
			SQLitePath: envStr("VOXLEDGER_SQLITE_PATH", "data/voxledger.db"),
			DSN:        os.Getenv("VOXLEDGER_PG_DSN"),
		},
		Redis: RedisConfig{
			Addr:     envStr("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Backend:   envStr("VOXLEDGER_STORAGE", "local"),
			LocalRoot: envStr("VOXLEDGER_STORAGE_ROOT", "data/blobs"),
			Minio: storage.MinioConfig{
				Endpoint:  envStr("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: envStr("MINIO_ACCESS_KEY", "minioadmin"),
				SecretKey: envStr("MINIO_SECRET_KEY", "minioadmin"),
				Bucket:    envStr("MINIO_BUCKET", "voxledger"),
				UseSSL:    envBool("MINIO_USE_SSL"),
			},
		},
		Engine: EngineConfig{
			Provider:      envStr("VOXLEDGER_ENGINE", "whispercpp"),
			WhisperBinary: envStr("WHISPER_BINARY", "whisper"),
			ModelDir:      envStr("WHISPER_MODEL_DIR", "models"),
			ModelManifest: os.Getenv("VOXLEDGER_MODEL_MANIFEST"),
			OpenAIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			OpenAIModel:   os.Getenv("OPENAI_AUDIO_MODEL"),
		},
		Worker: WorkerConfig{
			Backend:     envStr("VOXLEDGER_QUEUE", "pool"),
			Concurrency: envInt("VOXLEDGER_WORKERS", 4),
			QueueDepth:  envInt("VOXLEDGER_QUEUE_DEPTH", 64),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.DB.Driver == "postgres" && cfg.DB.DSN == "" {
		return nil, fmt.Errorf("VOXLEDGER_PG_DSN is required with the postgres driver")
	}
	if cfg.Engine.Provider == "openai" && cfg.Engine.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required with the openai engine")
	}
	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string) bool {
	return os.Getenv(key) == "true"
}
