package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Tier names.
const (
	TierUnlimited = "unlimited"
	TierStrict    = "strict"
	TierWrite     = "write"
	TierDefault   = "default"
)

// Rule limits one tier of endpoints. Path matches exactly, or as a prefix when it ends
// with "*". An empty Method matches every method.
type Rule struct {
	Tier   string
	Path   string
	Method string
	Limit  int           // Requests per window; <= 0 means unlimited
	Window time.Duration // Refill window
	Burst  int           // Bucket capacity; Limit when zero
}

func (r Rule) capacity() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		Default:         Rule{Tier: TierDefault, Limit: 600, Window: time.Minute},
		Rules:           DefaultRules(30, time.Minute),
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
	}
}

// DefaultRules returns the endpoint tiers. Validation calls reach the model, so they share
// one strict bucket per client sized by strictLimit per strictWindow.
func DefaultRules(strictLimit int, strictWindow time.Duration) []Rule {
	strictBurst := max(1, strictLimit/6)
	return []Rule{
		{Tier: TierUnlimited, Path: "/health", Method: "GET"},
		{Tier: TierUnlimited, Path: "/metrics", Method: "GET"},

		{Tier: TierStrict, Path: "/validate*", Method: "POST", Limit: strictLimit, Window: strictWindow, Burst: strictBurst},

		{Tier: TierWrite, Path: "/sessions", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
		{Tier: TierWrite, Path: "/drafts/*", Method: "PUT", Limit: 240, Window: time.Minute, Burst: 20},
		{Tier: TierWrite, Path: "/drafts/*", Method: "POST", Limit: 240, Window: time.Minute, Burst: 20},
		{Tier: TierWrite, Path: "/drafts/*", Method: "DELETE", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

// LoadConfig reads RATE_LIMIT_* environment variables on top of DefaultConfig.
func LoadConfig() *Config {
	return ConfigFromEnv(os.Getenv)
}

// ConfigFromEnv is LoadConfig with an injectable environment.
func ConfigFromEnv(getenv func(string) string) *Config {
	cfg := DefaultConfig()
	cfg.Enabled = envBool(getenv, "RATE_LIMIT_ENABLED", true)
	if !cfg.Enabled {
		return cfg
	}

	cfg.Default.Limit = envInt(getenv, "RATE_LIMIT_DEFAULT_LIMIT", cfg.Default.Limit)
	cfg.Default.Window = envDuration(getenv, "RATE_LIMIT_DEFAULT_WINDOW", cfg.Default.Window)
	cfg.Rules = DefaultRules(
		envInt(getenv, "RATE_LIMIT_VALIDATE_LIMIT", 30),
		envDuration(getenv, "RATE_LIMIT_VALIDATE_WINDOW", time.Minute),
	)
	cfg.CleanupInterval = envDuration(getenv, "RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.Whitelist = parseIPList(getenv("RATE_LIMIT_WHITELIST"))
	cfg.Blacklist = parseIPList(getenv("RATE_LIMIT_BLACKLIST"))
	return cfg
}

func envInt(getenv func(string) string, key string, def int) int {
	if v, err := strconv.Atoi(getenv(key)); err == nil {
		return v
	}
	return def
}

func envBool(getenv func(string) string, key string, def bool) bool {
	if v, err := strconv.ParseBool(getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(getenv func(string) string, key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

// parseIPList parses a comma-separated list of addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
