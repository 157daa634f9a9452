package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr          string        `yaml:"addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	APITimeout    time.Duration `yaml:"timeout"`
	DatabasePath  string        `yaml:"database_path"`
	TokenDuration time.Duration `yaml:"token_duration"`

	// FreeTierLimit caps generations per learner; 0 disables the gate.
	FreeTierLimit int64 `yaml:"free_tier_limit"`

	Engine EngineConfig `yaml:"engine"`
	Worker WorkerConfig `yaml:"worker"`
}

// EngineConfig configures the generative content service client.
type EngineConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	Model                   string        `yaml:"model"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

// WorkerConfig configures the generation worker pool.
type WorkerConfig struct {
	Count       int           `yaml:"count"`
	MaxAttempts int           `yaml:"max_attempts"`
	PollIdle    time.Duration `yaml:"poll_idle"`
	// PurgeCompletedAfter controls the retention sweep for completed
	// jobs. Failed jobs are always retained for inspection.
	PurgeCompletedAfter time.Duration `yaml:"purge_completed_after"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:          getEnv("LF_ADDR", ":8080"),
		JWTSecret:     getEnv("LF_JWT_SECRET", insecureJWTSecret),
		APITimeout:    15 * time.Second,
		DatabasePath:  getEnv("LF_DATABASE_PATH", "lessonforge.db"),
		TokenDuration: 1 * time.Hour,
		FreeTierLimit: 3,
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks required settings and fills defaults for the engine and
// worker sections.
func (c *Config) Validate() error {
	if c.JWTSecret == "" || c.JWTSecret == insecureJWTSecret {
		if os.Getenv("LF_ENV") != "development" {
			return fmt.Errorf("jwt_secret must be set to a non-default value outside development")
		}
	}
	if c.Engine.Model == "" {
		return fmt.Errorf("engine.model is required")
	}

	if c.Engine.BaseURL == "" {
		c.Engine.BaseURL = getEnv("LF_ENGINE_BASE_URL", "http://localhost:11434")
	}
	if c.Engine.Timeout <= 0 {
		c.Engine.Timeout = 30 * time.Second
	}
	if c.Engine.Retries == 0 {
		c.Engine.Retries = 3
	}
	if c.Engine.Backoff <= 0 {
		c.Engine.Backoff = 500 * time.Millisecond
	}
	if c.Engine.CircuitFailureThreshold == 0 {
		c.Engine.CircuitFailureThreshold = 5
	}
	if c.Engine.CircuitReset <= 0 {
		c.Engine.CircuitReset = 30 * time.Second
	}

	if c.Worker.Count <= 0 {
		c.Worker.Count = 2
	}
	if c.Worker.MaxAttempts <= 0 {
		c.Worker.MaxAttempts = 3
	}
	if c.Worker.PollIdle <= 0 {
		c.Worker.PollIdle = 500 * time.Millisecond
	}
	if c.Worker.PurgeCompletedAfter <= 0 {
		c.Worker.PurgeCompletedAfter = 24 * time.Hour
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
