// Package config loads the service configuration: YAML file with
// environment-variable expansion, plus a .env overlay for local development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/dochost/internal/resolver"
	"git.home.luguber.info/inful/dochost/internal/retry"
)

// Config is the full service configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Search   SearchConfig   `yaml:"search"`
	Latest   LatestConfig   `yaml:"latest"`
	Events   EventsConfig   `yaml:"events,omitempty"`
	Watch    WatchConfig    `yaml:"watch,omitempty"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig configures the image blob store.
type StorageConfig struct {
	Root    string `yaml:"root"`
	BaseURL string `yaml:"base_url"`
}

// SearchConfig configures the external search backend and the rate-limit
// retry policy.
type SearchConfig struct {
	Endpoint  string      `yaml:"endpoint"`
	APIKey    string      `yaml:"api_key,omitempty"`
	BatchSize int         `yaml:"batch_size,omitempty"`
	Retry     RetryConfig `yaml:"retry,omitempty"`
}

// RetryConfig mirrors retry.Policy in config form. MaxRetries -1 means
// retry forever, which is the default.
type RetryConfig struct {
	Backoff    string   `yaml:"backoff,omitempty"`
	Interval   Duration `yaml:"interval,omitempty"`
	MaxDelay   Duration `yaml:"max_delay,omitempty"`
	MaxRetries int      `yaml:"max_retries,omitempty"`
}

// LatestConfig governs latest-version resolution.
type LatestConfig struct {
	// Exclude lists label globs never eligible as latest (e.g. "*-rc*").
	Exclude []string `yaml:"exclude,omitempty"`
	// FallbackPolicy is "strict" or "skip"; see the resolver.
	FallbackPolicy string `yaml:"fallback_policy,omitempty"`
}

// EventsConfig configures optional NATS lifecycle events. Empty URL
// disables publishing.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url,omitempty"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
}

// WatchConfig configures the watch daemon.
type WatchConfig struct {
	// Spool is the directory watched for incoming *.tar.gz archives.
	Spool string `yaml:"spool,omitempty"`
	// ReconcileInterval schedules the periodic full reindex; 0 disables it.
	ReconcileInterval Duration `yaml:"reconcile_interval,omitempty"`
	// MetricsAddr exposes /metrics when set, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// Duration is a time.Duration that parses from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the configuration used when no file overrides anything.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "dochost.db"},
		Storage:  StorageConfig{Root: "blobs", BaseURL: "http://localhost/media"},
		Search: SearchConfig{
			Retry: RetryConfig{
				Backoff:    string(retry.BackoffFixed),
				Interval:   Duration(time.Second),
				MaxRetries: retry.Unbounded,
			},
		},
		Latest: LatestConfig{FallbackPolicy: string(resolver.FallbackStrict)},
		Watch:  WatchConfig{Spool: "spool", ReconcileInterval: Duration(time.Hour)},
	}
}

// Load reads the configuration at configPath on top of the defaults. A .env
// file in the working directory is loaded first (existing environment wins),
// and ${VAR} references in the YAML are expanded from the environment.
func Load(configPath string) (*Config, error) {
	// Best effort; a missing .env is the normal case outside development.
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants the rest of the service relies on.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must be set")
	}
	if c.Storage.Root == "" {
		return fmt.Errorf("storage.root must be set")
	}
	switch strings.ToLower(c.Latest.FallbackPolicy) {
	case string(resolver.FallbackStrict), string(resolver.FallbackSkip), "":
	default:
		return fmt.Errorf("latest.fallback_policy must be %q or %q, got %q",
			resolver.FallbackStrict, resolver.FallbackSkip, c.Latest.FallbackPolicy)
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("search.retry: %w", err)
	}
	if c.Watch.ReconcileInterval < 0 {
		return fmt.Errorf("watch.reconcile_interval must not be negative")
	}
	return nil
}

// RetryPolicy converts the retry section into the policy the search
// synchronizer consumes.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.NewPolicy(
		retry.BackoffMode(strings.ToLower(c.Search.Retry.Backoff)),
		time.Duration(c.Search.Retry.Interval),
		time.Duration(c.Search.Retry.MaxDelay),
		c.Search.Retry.MaxRetries,
	)
}

// ResolverOptions converts the latest section into resolver options.
func (c *Config) ResolverOptions() resolver.Options {
	return resolver.Options{
		ExcludeGlobs:   c.Latest.Exclude,
		FallbackPolicy: resolver.FallbackPolicy(strings.ToLower(c.Latest.FallbackPolicy)),
	}
}

// Init writes a starter configuration to configPath. Refuses to overwrite
// an existing file unless force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.Search.Endpoint = "http://localhost:7700"
	example.Search.APIKey = "${SEARCH_API_KEY}"
	example.Latest.Exclude = []string{"*-rc*", "*dev*"}
	example.Events = EventsConfig{SubjectPrefix: "dochost"}

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("marshal starter config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
