// Package config provides declarative configuration loading for the
// preflight tool.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/medialake/preflight/internal/index"
)

// EnvPrefix is the prefix for environment variable overrides
// (e.g. PREFLIGHT_BROKER_PASSWORD).
const EnvPrefix = "PREFLIGHT"

// Defaults applied when the config file omits a value.
const (
	DefaultVHost        = "/"
	DefaultServiceUnit  = "rabbitmq-server"
	DefaultMaxWait      = "30s"
	DefaultPollInterval = "2s"
	DefaultRetrySuffix  = "_retry"
	DefaultAPIVersion   = "2021-04-30-Preview"
)

// Option defines the interface for configuration loading options.
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file.
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config is the root configuration structure.
type Config struct {
	Broker   BrokerConfig   `yaml:"broker"`
	Topology TopologyConfig `yaml:"topology"`
	Index    IndexConfig    `yaml:"index"`
}

// BrokerConfig describes the broker management endpoint and the launch
// policy.
type BrokerConfig struct {
	// Endpoint is the management API base URL (e.g. http://localhost:15672)
	Endpoint string `yaml:"endpoint"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost,omitempty"`

	// ServiceUnit is the service-manager unit started when the broker is
	// unreachable
	ServiceUnit string `yaml:"serviceUnit,omitempty"`

	// Required makes an unreachable broker fatal instead of degraded.
	// Default false: the dependent application still starts when queue
	// cleanup could not occur.
	Required bool `yaml:"required,omitempty"`

	// MaxWait and PollInterval bound the launch wait loop (duration
	// strings, e.g. "30s", "2s")
	MaxWait      string `yaml:"maxWait,omitempty"`
	PollInterval string `yaml:"pollInterval,omitempty"`
}

// MaxWaitDuration returns the parsed launch wait budget. Only valid after
// Validate has succeeded.
func (b BrokerConfig) MaxWaitDuration() time.Duration {
	d, _ := time.ParseDuration(b.MaxWait)
	return d
}

// PollIntervalDuration returns the parsed probe poll interval. Only valid
// after Validate has succeeded.
func (b BrokerConfig) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(b.PollInterval)
	return d
}

// TopologyConfig is the fixed queue list reset on every run.
type TopologyConfig struct {
	// RetrySuffix derives each queue's retry companion (base + suffix)
	RetrySuffix string `yaml:"retrySuffix,omitempty"`

	// Queues are the base logical queue names
	Queues []string `yaml:"queues"`
}

// IndexConfig is the search index declaration plus the sink it is
// submitted to.
type IndexConfig struct {
	// Endpoint is the search service URL; empty means compile-only (the
	// schema is validated but not submitted)
	Endpoint string `yaml:"endpoint,omitempty"`

	APIVersion string `yaml:"apiVersion,omitempty"`
	APIKey     string `yaml:"apiKey,omitempty"`

	Schema SchemaConfig `yaml:"schema"`
}

// SchemaConfig is the declarative index schema. Field capability rules are
// enforced by the compiler, not here, so one validation pass reports the
// complete problem set.
type SchemaConfig struct {
	Name        string             `yaml:"name"`
	Fields      []index.Field      `yaml:"fields"`
	Suggesters  []index.Suggester  `yaml:"suggesters,omitempty"`
	CORSOptions *index.CORSOptions `yaml:"corsOptions,omitempty"`
}

// NewConfig loads a configuration using the supplied options, applies
// defaults and environment overrides, and validates the result.
func NewConfig(opts ...Option) (*Config, error) {
	loader := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loader); err != nil {
			return nil, err
		}
	}
	if loader.path == "" {
		return nil, fmt.Errorf("no configuration source specified")
	}

	data, err := os.ReadFile(loader.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Broker.VHost == "" {
		c.Broker.VHost = DefaultVHost
	}
	if c.Broker.ServiceUnit == "" {
		c.Broker.ServiceUnit = DefaultServiceUnit
	}
	if c.Broker.MaxWait == "" {
		c.Broker.MaxWait = DefaultMaxWait
	}
	if c.Broker.PollInterval == "" {
		c.Broker.PollInterval = DefaultPollInterval
	}
	if c.Topology.RetrySuffix == "" {
		c.Topology.RetrySuffix = DefaultRetrySuffix
	}
	if c.Index.APIVersion == "" {
		c.Index.APIVersion = DefaultAPIVersion
	}
}

// applyEnvOverrides lets credentials and endpoints come from the
// environment so the config file can stay secret-free.
func (c *Config) applyEnvOverrides() {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if s := v.GetString("BROKER_ENDPOINT"); s != "" {
		c.Broker.Endpoint = s
	}
	if s := v.GetString("BROKER_USERNAME"); s != "" {
		c.Broker.Username = s
	}
	if s := v.GetString("BROKER_PASSWORD"); s != "" {
		c.Broker.Password = s
	}
	if s := v.GetString("INDEX_ENDPOINT"); s != "" {
		c.Index.Endpoint = s
	}
	if s := v.GetString("INDEX_API_KEY"); s != "" {
		c.Index.APIKey = s
	}
}

// Validate checks structural soundness: URLs parse, durations parse, queue
// names are non-empty. Schema field rules are deferred to the compiler.
func (c *Config) Validate() error {
	if c.Broker.Endpoint == "" {
		return fmt.Errorf("broker.endpoint is required")
	}
	if err := validateHTTPURL("broker.endpoint", c.Broker.Endpoint); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.Broker.MaxWait); err != nil {
		return fmt.Errorf("invalid broker.maxWait: %w", err)
	}
	if _, err := time.ParseDuration(c.Broker.PollInterval); err != nil {
		return fmt.Errorf("invalid broker.pollInterval: %w", err)
	}

	if len(c.Topology.Queues) == 0 {
		return fmt.Errorf("topology.queues must list at least one queue")
	}
	for _, q := range c.Topology.Queues {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("topology.queues must not contain empty names")
		}
	}

	if c.Index.Endpoint != "" {
		if err := validateHTTPURL("index.endpoint", c.Index.Endpoint); err != nil {
			return err
		}
		if c.Index.APIKey == "" {
			return fmt.Errorf("index.apiKey is required when index.endpoint is set")
		}
	}
	if c.Index.Schema.Name == "" {
		return fmt.Errorf("index.schema.name is required")
	}
	if len(c.Index.Schema.Fields) == 0 {
		return fmt.Errorf("index.schema.fields must list at least one field")
	}

	return nil
}

func validateHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host: %q", key, raw)
	}
	return nil
}
