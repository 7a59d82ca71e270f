package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dyluth/parley/internal/logging"
	"github.com/dyluth/parley/pkg/runinput"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where commands look for the config file.
const DefaultPath = "parley.yml"

// Environment variables that override file values.
const (
	EnvRedisURL    = "PARLEY_REDIS_URL"
	EnvPostgresDSN = "PARLEY_POSTGRES_DSN"
)

// Store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// ParleyConfig represents the top-level parley.yml configuration
type ParleyConfig struct {
	Version string                 `yaml:"version"`
	Store   StoreConfig            `yaml:"store"`
	Poll    PollConfig             `yaml:"poll,omitempty"`
	Log     logging.Config         `yaml:"log,omitempty"`
	Inputs  map[string]InputConfig `yaml:"inputs,omitempty"`
}

// StoreConfig selects where run inputs live.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	RedisURL    string `yaml:"redis_url,omitempty"`
	Namespace   string `yaml:"namespace,omitempty"` // Redis key namespace, default "default"
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`
}

// PollConfig holds poller defaults. Durations use Go syntax ("10s", "1h").
type PollConfig struct {
	Timeout           string `yaml:"timeout,omitempty"`
	Interval          string `yaml:"interval,omitempty"`
	InitialDelay      string `yaml:"initial_delay,omitempty"` // empty = min(timeout/2, interval)
	RaiseTimeoutError bool   `yaml:"raise_timeout_error,omitempty"`
}

// InputConfig declares one input type a run accepts. Field order is kept.
type InputConfig struct {
	Fields []FieldConfig `yaml:"fields"`
}

// FieldConfig declares one schema field. A present default (even null)
// makes the field optional.
type FieldConfig struct {
	Name     string     `yaml:"name"`
	Type     string     `yaml:"type,omitempty"`
	Required bool       `yaml:"required,omitempty"`
	Default  *yaml.Node `yaml:"default,omitempty"`
}

// UnmarshalYAML keeps an explicit `default: null`, which yaml.v3 would
// otherwise decode to a nil node indistinguishable from no default.
func (fc *FieldConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain FieldConfig
	if err := value.Decode((*plain)(fc)); err != nil {
		return err
	}
	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "default" {
			fc.Default = value.Content[i+1]
		}
	}
	return nil
}

// Default returns the configuration written by `parley init`.
func Default() *ParleyConfig {
	return &ParleyConfig{
		Version: "1.0",
		Store: StoreConfig{
			Backend:   BackendRedis,
			RedisURL:  "redis://localhost:6379",
			Namespace: "default",
		},
		Poll: PollConfig{
			Timeout:  runinput.DefaultPollTimeout.String(),
			Interval: runinput.DefaultPollInterval.String(),
		},
		Log: logging.Config{Level: "info", Format: "text"},
		Inputs: map[string]InputConfig{
			"Approval": {
				Fields: []FieldConfig{
					{Name: "approved", Type: "boolean", Required: true},
					{Name: "reason", Type: "string", Default: &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ""}},
				},
			},
		},
	}
}

// Validate performs strict validation on the configuration and fills defaults.
func (c *ParleyConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := c.Store.Validate(); err != nil {
		return err
	}

	if _, err := c.Poll.Options(); err != nil {
		return err
	}

	if err := c.Log.Validate(); err != nil {
		return err
	}

	if _, err := c.Schemas(); err != nil {
		return err
	}

	return nil
}

// Validate checks the store settings for the selected backend.
func (s *StoreConfig) Validate() error {
	switch s.Backend {
	case BackendRedis:
		if s.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for backend 'redis'")
		}
		if s.Namespace == "" {
			s.Namespace = "default"
		}
	case BackendPostgres:
		if s.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for backend 'postgres'")
		}
	case BackendMemory:
	case "":
		return fmt.Errorf("store.backend is required")
	default:
		return fmt.Errorf("invalid store.backend: %s (must be 'redis', 'postgres' or 'memory')", s.Backend)
	}
	return nil
}

// Options converts the poll settings into poller options.
func (p PollConfig) Options() ([]runinput.PollOption, error) {
	var opts []runinput.PollOption

	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid poll.timeout: %w", err)
		}
		opts = append(opts, runinput.WithTimeout(d))
	}

	if p.Interval != "" {
		d, err := time.ParseDuration(p.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid poll.interval: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("poll.interval must be > 0, got %s", p.Interval)
		}
		opts = append(opts, runinput.WithPollInterval(d))
	}

	if p.InitialDelay != "" {
		d, err := time.ParseDuration(p.InitialDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid poll.initial_delay: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("poll.initial_delay must be >= 0, got %s", p.InitialDelay)
		}
		opts = append(opts, runinput.WithInitialDelay(runinput.FixedDelay(d)))
	}

	if p.RaiseTimeoutError {
		opts = append(opts, runinput.WithRaiseTimeoutError(true))
	}

	return opts, nil
}

// Schemas builds the declared input schemas, keyed by input name.
func (c *ParleyConfig) Schemas() (map[string]*runinput.Schema, error) {
	schemas := make(map[string]*runinput.Schema, len(c.Inputs))
	for name, in := range c.Inputs {
		schema, err := in.Schema(name)
		if err != nil {
			return nil, fmt.Errorf("input '%s': %w", name, err)
		}
		schemas[name] = schema
	}
	return schemas, nil
}

// InputNames returns the declared input names, sorted.
func (c *ParleyConfig) InputNames() []string {
	names := make([]string, 0, len(c.Inputs))
	for name := range c.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema builds the schema for one declared input.
func (c *ParleyConfig) Schema(name string) (*runinput.Schema, error) {
	in, ok := c.Inputs[name]
	if !ok {
		return nil, fmt.Errorf("input type '%s' is not declared in config", name)
	}
	return in.Schema(name)
}

// Schema converts the declaration into a runinput schema.
func (in InputConfig) Schema(name string) (*runinput.Schema, error) {
	fields := make([]runinput.Field, 0, len(in.Fields))
	for _, fc := range in.Fields {
		f := runinput.Field{
			Name:     fc.Name,
			Kind:     runinput.FieldKind(fc.Type),
			Required: fc.Required,
		}
		if fc.Default != nil {
			var v any
			if err := fc.Default.Decode(&v); err != nil {
				return nil, fmt.Errorf("field '%s': invalid default: %w", fc.Name, err)
			}
			f.Default = v
			f.HasDefault = true
		}
		fields = append(fields, f)
	}
	return runinput.NewSchema(name, fields...)
}

// Load reads and validates parley.yml from the specified path.
// PARLEY_REDIS_URL and PARLEY_POSTGRES_DSN override the file.
func Load(path string) (*ParleyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config ParleyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *ParleyConfig) applyEnv() {
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Store.RedisURL = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Store.PostgresDSN = v
	}
}

// Write saves the configuration as YAML, refusing to overwrite unless force.
func (c *ParleyConfig) Write(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
