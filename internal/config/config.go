// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/design-coach/internal/llm"
)

// Draft store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Secondary generator modes.
const (
	// SecondaryStub answers the second generator from fixture lists.
	SecondaryStub = "stub"
	// SecondaryLLM uses the model's standard tier as the second generator.
	SecondaryLLM = "llm"
)

// Config represents the service configuration. Values come from defaults, then an optional
// JSON file, then environment variables.
type Config struct {
	// Server
	Port               int      `json:"port,omitempty"`                 // Port to listen on
	CORSAllowedOrigins []string `json:"cors_allowed_origins,omitempty"` // Origins allowed by CORS

	// Models
	APIKey          string            `json:"api_key,omitempty"`          // Gemini API key; empty runs on fixtures only
	Models          map[string]string `json:"models,omitempty"`           // Model name per tier (lite, standard, advanced)
	Temperature     *float32          `json:"temperature,omitempty"`      // Sampling temperature
	SecondarySource string            `json:"secondary_source,omitempty"` // "stub" or "llm"

	// Storage
	DraftStore  string `json:"draft_store,omitempty"`  // "memory", "sqlite" or "postgres"
	SQLitePath  string `json:"sqlite_path,omitempty"`  // SQLite file for the sqlite store
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Development logging
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:               8080,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		SecondarySource:    SecondaryStub,
		DraftStore:         StoreMemory,
		SQLitePath:         filepath.Join("data", "drafts.db"),
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration: defaults, the JSON file at path (if any), then
// environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = file.MergeWithDefaults(cfg)
	}
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields with the environment variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv("DRAFT_STORE"); v != "" {
		c.DraftStore = strings.ToLower(v)
	}
	if v := getenv("SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := getenv("SECONDARY_SOURCE"); v != "" {
		c.SecondarySource = strings.ToLower(v)
	}
	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	switch c.DraftStore {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config error: 'sqlite_path' is required for the sqlite draft store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'database_url' (DATABASE_URL) is required for the postgres draft store")
		}
	default:
		return fmt.Errorf("config error: unknown draft store %q", c.DraftStore)
	}

	switch c.SecondarySource {
	case SecondaryStub, SecondaryLLM:
	default:
		return fmt.Errorf("config error: unknown secondary source %q", c.SecondarySource)
	}

	for tier := range c.Models {
		switch llm.ModelTier(tier) {
		case llm.TierLite, llm.TierStandard, llm.TierAdvanced:
		default:
			return fmt.Errorf("config error: unknown model tier %q", tier)
		}
	}

	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("config error: 'temperature' must be between 0 and 2")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if len(result.CORSAllowedOrigins) == 0 {
		result.CORSAllowedOrigins = defaults.CORSAllowedOrigins
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.SecondarySource == "" {
		result.SecondarySource = defaults.SecondarySource
	}
	if result.DraftStore == "" {
		result.DraftStore = defaults.DraftStore
	}
	if result.SQLitePath == "" {
		result.SQLitePath = defaults.SQLitePath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.Temperature == nil {
		result.Temperature = defaults.Temperature
	}
	if len(result.Models) == 0 {
		result.Models = defaults.Models
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// HasModel reports whether a model API key is configured.
func (c *Config) HasModel() bool {
	return c.APIKey != ""
}

// LLMConfig returns the model configuration with any per-tier overrides applied.
func (c *Config) LLMConfig() *llm.Config {
	cfg := llm.DefaultConfig()
	for tier, model := range c.Models {
		cfg = cfg.WithModel(llm.ModelTier(tier), model)
	}
	if c.Temperature != nil {
		cfg.Temperature = *c.Temperature
	}
	return cfg
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
