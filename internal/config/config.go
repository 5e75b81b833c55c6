package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the resumeforge server and worker.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Worker   WorkerConfig
	Resume   ResumeConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type StorageConfig struct {
	Bucket string
	// CredentialsJSON optionally carries a service account key as raw JSON.
	// When empty the client falls back to application default credentials.
	CredentialsJSON string
	SignedURLTTL    time.Duration
}

type WorkerConfig struct {
	IdleInterval  time.Duration
	ErrorBackoff  time.Duration
	RenderTimeout time.Duration
}

type ResumeConfig struct {
	// MinApplications is the eligibility threshold: a user must have applied to
	// at least this many postings before a resume can be generated.
	MinApplications int
	Expiry          time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("RESUMEFORGE_PORT", 8080),
			Env:  envString("RESUMEFORGE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Storage: StorageConfig{
			Bucket:          os.Getenv("GCS_BUCKET_NAME"),
			CredentialsJSON: os.Getenv("GCP_SERVICE_ACCOUNT_KEY"),
			SignedURLTTL:    envDurationSecs("SIGNED_URL_TTL_SECS", time.Hour),
		},
		Worker: WorkerConfig{
			IdleInterval:  envDuration("WORKER_IDLE_INTERVAL", 3*time.Second),
			ErrorBackoff:  envDuration("WORKER_ERROR_BACKOFF", 5*time.Second),
			RenderTimeout: envDuration("WORKER_RENDER_TIMEOUT", 60*time.Second),
		},
		Resume: ResumeConfig{
			MinApplications: envInt("RESUME_MIN_APPLICATIONS", 2),
			Expiry:          envDuration("RESUME_EXPIRY", 7*24*time.Hour),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("GCS_BUCKET_NAME is required")
	}

	if c.Resume.MinApplications < 0 {
		return fmt.Errorf("RESUME_MIN_APPLICATIONS must not be negative, got %d", c.Resume.MinApplications)
	}

	if c.Worker.IdleInterval <= 0 {
		return fmt.Errorf("WORKER_IDLE_INTERVAL must be positive, got %s", c.Worker.IdleInterval)
	}
	if c.Worker.ErrorBackoff <= 0 {
		return fmt.Errorf("WORKER_ERROR_BACKOFF must be positive, got %s", c.Worker.ErrorBackoff)
	}
	if c.Worker.RenderTimeout <= 0 {
		return fmt.Errorf("WORKER_RENDER_TIMEOUT must be positive, got %s", c.Worker.RenderTimeout)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
