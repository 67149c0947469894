package ratelimit

import "strings"

// unlimited marks an endpoint that is never rate limited.
var unlimited = EndpointConfig{}

// MatchEndpoint finds the endpoint configuration for a path and method.
// Exact path matches win over prefix matches; configs whose path ends in
// "/" match any path under that prefix ("/api/v1/pipelines/" matches
// "/api/v1/pipelines/{id}/cancel"). Returns nil when nothing matches.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// Health probes must never be throttled
	if path == "/health" && method == "GET" {
		return &unlimited
	}

	var prefixMatch *EndpointConfig
	for i := range configs {
		config := &configs[i]
		if config.Method != method {
			continue
		}
		if config.Path == path {
			return config
		}
		if prefixMatch == nil && strings.HasSuffix(config.Path, "/") && strings.HasPrefix(path, config.Path) {
			prefixMatch = config
		}
	}
	return prefixMatch
}
