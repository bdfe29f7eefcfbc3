package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/modelbake/cache"
	"github.com/jonwraymond/modelbake/links"
	"github.com/jonwraymond/modelbake/observe"
	"github.com/jonwraymond/modelbake/resolve"
	"github.com/jonwraymond/modelbake/resource"
)

// Config errors.
var (
	ErrInvalidConfig = errors.New("config: invalid configuration")
	ErrUnsetEnv      = errors.New("config: environment variable not set")
)

// Config is the modelbake configuration file.
type Config struct {
	Cache   CacheConfig   `yaml:"cache"`
	Resolve ResolveConfig `yaml:"resolve"`
	Pack    PackConfig    `yaml:"pack"`
	Missing MissingConfig `yaml:"missing"`
	Observe ObserveConfig `yaml:"observe"`
}

// CacheConfig configures the artifact cache.
type CacheConfig struct {
	ExpireAfterAccess time.Duration `yaml:"expire_after_access"`
	MaxEntries        int           `yaml:"max_entries"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	// PressureThreshold is the heap usage ratio at which the janitor
	// sheds half the cache. Zero disables pressure shedding.
	PressureThreshold float64 `yaml:"pressure_threshold"`
}

// ResolveConfig configures key resolution.
type ResolveConfig struct {
	// Order is primary_first or alternate_first.
	Order   string `yaml:"order"`
	Verbose bool   `yaml:"verbose"`
}

// PackConfig locates the descriptor pack on disk.
type PackConfig struct {
	Root           string `yaml:"root"`
	Watch          bool   `yaml:"watch"`
	MaxParentDepth int    `yaml:"max_parent_depth"`
}

// MissingConfig lists keys that resolve to the missing sentinel when
// nothing else is found.
type MissingConfig struct {
	Keys []string `yaml:"keys"`
}

// ObserveConfig configures telemetry.
type ObserveConfig struct {
	ServiceName string        `yaml:"service_name"`
	Version     string        `yaml:"version"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
}

// TracingConfig configures tracing.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// MetricsConfig configures metrics.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	p := cache.DefaultPolicy()
	obs := observe.DefaultConfig()
	return Config{
		Cache: CacheConfig{
			ExpireAfterAccess: p.ExpireAfterAccess,
			MaxEntries:        p.MaxEntries,
			SweepInterval:     p.SweepInterval,
			PressureThreshold: 0.8,
		},
		Resolve: ResolveConfig{Order: resolve.PrimaryFirst.String()},
		Pack:    PackConfig{Root: ".", MaxParentDepth: 16},
		Observe: ObserveConfig{
			ServiceName: obs.ServiceName,
			Tracing:     TracingConfig{Exporter: obs.Tracing.Exporter, SampleRatio: obs.Tracing.SampleRatio},
			Metrics:     MetricsConfig{Exporter: obs.Metrics.Exporter},
			Logging:     LoggingConfig{Enabled: obs.Logging.Enabled, Level: obs.Logging.Level},
		},
	}
}

// Load reads path over the defaults and validates the result. Fields
// absent from the file keep their default values. ${VAR} references are
// expanded from the environment before decoding.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if data, err = expandEnv(data); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Write stores cfg at path as YAML.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: cache: %v", ErrInvalidConfig, err)
	}
	if c.Cache.PressureThreshold < 0 || c.Cache.PressureThreshold >= 1 {
		return fmt.Errorf("%w: cache.pressure_threshold must be in [0, 1)", ErrInvalidConfig)
	}
	if _, err := resolve.ParseOrder(c.Resolve.Order); err != nil {
		return fmt.Errorf("%w: resolve: %v", ErrInvalidConfig, err)
	}
	if c.Pack.MaxParentDepth < 0 {
		return fmt.Errorf("%w: pack.max_parent_depth must not be negative", ErrInvalidConfig)
	}
	if _, err := c.MissingKeys(); err != nil {
		return fmt.Errorf("%w: missing: %v", ErrInvalidConfig, err)
	}
	obs := c.ObserveConfig()
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Policy returns the cache eviction policy.
func (c Config) Policy() cache.Policy {
	return cache.Policy{
		ExpireAfterAccess: c.Cache.ExpireAfterAccess,
		MaxEntries:        c.Cache.MaxEntries,
		SweepInterval:     c.Cache.SweepInterval,
	}
}

// Order returns the parsed trial order.
func (c Config) Order() resolve.Order {
	o, _ := resolve.ParseOrder(c.Resolve.Order)
	return o
}

// MissingKeys parses the known-missing key list. resource.MissingKey is
// always a member.
func (c Config) MissingKeys() (*links.KeySet, error) {
	set := links.NewKeySet(resource.MissingKey)
	for _, s := range c.Missing.Keys {
		k, err := resource.ParseKey(s)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", s, err)
		}
		set.Add(k)
	}
	return set, nil
}

// ObserveConfig maps the observe section to observe.Config.
func (c Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: c.Observe.ServiceName,
		Version:     c.Observe.Version,
		Tracing: observe.TracingConfig{
			Enabled:     c.Observe.Tracing.Enabled,
			Exporter:    c.Observe.Tracing.Exporter,
			SampleRatio: c.Observe.Tracing.SampleRatio,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.Metrics.Enabled,
			Exporter: c.Observe.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: c.Observe.Logging.Enabled,
			Level:   c.Observe.Logging.Level,
		},
	}
}
