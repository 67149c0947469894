package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is a per-route limit override. Path matches exactly, or by
// prefix when it ends in "/".
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int           // requests per window
	Window time.Duration
	Burst  int           // burst capacity, defaults to Limit if 0
}

// envOr parses an environment variable, falling back to def when the
// variable is unset or unparseable.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if v, err := parse(raw); err == nil {
		return v
	}
	return def
}

// LoadConfig builds the limiter configuration from RATE_LIMIT_* environment
// variables plus the built-in endpoint tiers.
func LoadConfig() *Config {
	if !envOr("RATE_LIMIT_ENABLED", true, strconv.ParseBool) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envOr("RATE_LIMIT_DEFAULT_LIMIT", 1000, strconv.Atoi),
		DefaultWindow:   envOr("RATE_LIMIT_DEFAULT_WINDOW", time.Minute, time.ParseDuration),
		CleanupInterval: envOr("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute, time.ParseDuration),
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the built-in per-endpoint limits. Pipeline
// starts and document ingestion get small hourly budgets; other writes get a
// moderate per-minute one. Reads fall through to the default limit, and the
// health check bypasses limiting in the matcher.
func DefaultEndpointConfigs() []EndpointConfig {
	expensive := func(path string, limit, burst int) EndpointConfig {
		return EndpointConfig{Path: path, Method: "POST", Limit: limit, Window: time.Hour, Burst: burst}
	}
	write := func(path, method string) EndpointConfig {
		return EndpointConfig{Path: path, Method: method, Limit: 100, Window: time.Minute, Burst: 10}
	}

	return []EndpointConfig{
		expensive("/api/v1/pipelines", 20, 4),
		expensive("/api/v1/documents", 60, 10),
		expensive("/api/v1/documents/from-url", 30, 5),

		write("/api/v1/users", "POST"),
		write("/api/v1/users/", "PUT"),
		write("/api/v1/auth/login", "POST"),
		write("/api/v1/documents/", "DELETE"),
		write("/api/v1/pipelines/", "DELETE"),
		write("/api/v1/pipelines/", "POST"),
	}
}

// parseIPList turns a comma-separated address list into a lookup set.
func parseIPList(list string) map[string]bool {
	set := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = true
		}
	}
	return set
}
