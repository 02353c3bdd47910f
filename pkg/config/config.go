package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultModel       = "gpt-4.1-mini"
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultTemperature = 0.7

	// DefaultSectionTarget is the number of chapters requested from the
	// outline when a book does not specify one.
	DefaultSectionTarget = 5
)

// Default configuration values exported for documentation and validation
const (
	DefaultGenerationTimeout = 3 * time.Minute
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 2 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultPollInterval      = 30 * time.Second
	DefaultMaxParallelBooks  = 4
	DefaultClaimTTL          = 30 * time.Minute
)

// Config represents the complete bookflow configuration
type Config struct {
	Generation  GenerationConfig  `yaml:"generation"`
	RetryPolicy RetryPolicy       `yaml:"retry_policy"`
	Storage     StorageConfig     `yaml:"storage"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Notify      NotifyConfig      `yaml:"notify"`
	Worker      WorkerConfig      `yaml:"worker"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// GenerationConfig configures the text generation service client
type GenerationConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	Temperature   float64       `yaml:"temperature"`
	SectionTarget int           `yaml:"section_target"` // chapters requested per outline
	Timeout       time.Duration `yaml:"timeout"`        // per-call bound; exceeding it is transient
	RateLimit     float64       `yaml:"rate_limit"`     // requests per second, 0 = default
}

// RetryPolicy defines retry behavior for transient errors
type RetryPolicy struct {
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier"`
}

// StorageConfig configures the SQLite persistence store
type StorageConfig struct {
	Path     string        `yaml:"path"`
	ClaimTTL time.Duration `yaml:"claim_ttl"` // stale run claims expire after this
}

// ObjectStoreConfig configures deliverable uploads (S3-compatible)
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"` // base URL for returned references, optional
}

// NotifyConfig controls milestone notifications for human-in-the-loop review
type NotifyConfig struct {
	Email EmailConfig `yaml:"email"`
	Teams TeamsConfig `yaml:"teams"`
	NATS  NATSConfig  `yaml:"nats"`
}

// EmailConfig configures SMTP notifications
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	To       string `yaml:"to"`
}

// TeamsConfig configures MS Teams incoming-webhook notifications
type TeamsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// NATSConfig configures event-bus publication of notification events
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// WorkerConfig configures the polling worker
type WorkerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxParallel  int           `yaml:"max_parallel"` // books processed concurrently
	BatchLimit   int           `yaml:"batch_limit"`  // runnable books fetched per poll
}

// LoggingConfig configures the structured JSONL logger
type LoggingConfig struct {
	Dir      string `yaml:"dir"`
	MinLevel string `yaml:"min_level"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Generation: GenerationConfig{
			BaseURL:       defaultBaseURL,
			Model:         defaultModel,
			Temperature:   defaultTemperature,
			SectionTarget: DefaultSectionTarget,
			Timeout:       DefaultGenerationTimeout,
		},
		RetryPolicy: RetryPolicy{
			MaxRetries:     DefaultMaxRetries,
			InitialBackoff: DefaultInitialBackoff,
			MaxBackoff:     DefaultMaxBackoff,
			Multiplier:     DefaultBackoffMultiplier,
		},
		Storage: StorageConfig{
			Path:     filepath.Join(".bookflow", "bookflow.db"),
			ClaimTTL: DefaultClaimTTL,
		},
		Notify: NotifyConfig{
			Email: EmailConfig{Port: 587},
			NATS:  NATSConfig{Subject: "bookflow.notify"},
		},
		Worker: WorkerConfig{
			PollInterval: DefaultPollInterval,
			MaxParallel:  DefaultMaxParallelBooks,
			BatchLimit:   10,
		},
		Logging: LoggingConfig{
			Dir:      filepath.Join(".bookflow", "logs"),
			MinLevel: "info",
		},
	}
}

// Load reads configuration from the default path (bookflow.yaml in the
// working directory, falling back to $HOME/.bookflow/config.yaml) and
// applies environment overrides. A missing file yields defaults.
func Load() (*Config, error) {
	candidates := []string{"bookflow.yaml"}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".bookflow", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return LoadFromPath(path)
		}
	}

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads configuration from an explicit file path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers environment variables over file values.
// Secrets are expected to arrive this way in most deployments.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("BOOKFLOW_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("BOOKFLOW_BASE_URL"); v != "" {
		cfg.Generation.BaseURL = v
	}
	if v := os.Getenv("BOOKFLOW_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("BOOKFLOW_SECTION_TARGET")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Generation.SectionTarget = n
		}
	}
	if v := os.Getenv("BOOKFLOW_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("BOOKFLOW_S3_ENDPOINT"); v != "" {
		cfg.ObjectStore.Endpoint = v
	}
	if v := os.Getenv("BOOKFLOW_S3_ACCESS_KEY"); v != "" {
		cfg.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("BOOKFLOW_S3_SECRET_KEY"); v != "" {
		cfg.ObjectStore.SecretKey = v
	}
	if v := os.Getenv("BOOKFLOW_S3_BUCKET"); v != "" {
		cfg.ObjectStore.Bucket = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Notify.Email.Host = v
		cfg.Notify.Email.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv("SMTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Notify.Email.Port = n
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Notify.Email.Username = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		cfg.Notify.Email.Password = v
	}
	if v := os.Getenv("NOTIFY_TO"); v != "" {
		cfg.Notify.Email.To = v
	}
	if v := os.Getenv("TEAMS_WEBHOOK_URL"); v != "" {
		cfg.Notify.Teams.WebhookURL = v
		cfg.Notify.Teams.Enabled = true
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.Notify.NATS.URL = v
		cfg.Notify.NATS.Enabled = true
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Generation.SectionTarget <= 0 {
		return fmt.Errorf("generation.section_target must be positive")
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation.timeout must be positive")
	}
	if c.RetryPolicy.MaxRetries < 0 {
		return fmt.Errorf("retry_policy.max_retries cannot be negative")
	}
	if c.RetryPolicy.Multiplier < 1 {
		return fmt.Errorf("retry_policy.multiplier must be >= 1")
	}
	if c.Worker.MaxParallel <= 0 {
		return fmt.Errorf("worker.max_parallel must be positive")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.MinLevel)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.min_level must be one of debug, info, warn, error")
	}
	return nil
}
