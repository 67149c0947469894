// Package config provides configuration loading and validation for the CLI.
package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
)

// Config is the optional JSON config file for the run and serve commands.
// Every field has a flag counterpart; flags win over file values.
type Config struct {
	// Inputs
	Document string `json:"document,omitempty"` // Path to a local document to process
	URL      string `json:"url,omitempty"`      // Page URL to fetch instead of a local document
	Out      string `json:"out,omitempty"`      // Path the final test set is written to

	// Server
	Port          int   `json:"port,omitempty"`           // HTTP listen port
	MaxConcurrent int64 `json:"max_concurrent,omitempty"` // Simultaneously executing pipelines

	// Providers
	Provider    string `json:"provider,omitempty"`     // LLM provider: ollama (default) or gemini
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	OllamaHost  string `json:"ollama_host,omitempty"`  // Ollama endpoint, default localhost:11434
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Behavior
	UseBrowser bool `json:"use_browser,omitempty"` // Use headless browser for SPA sites
	Verbose    bool `json:"verbose,omitempty"`     // Print detailed debug information
}

// LoadConfig reads and parses a JSON config file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return cfg, nil
}

// Validate checks field values for consistency. Required fields are not
// enforced here; the CLI decides those after merging flags.
func (c *Config) Validate() error {
	if c.Document != "" && c.URL != "" {
		return fmt.Errorf("config error: 'document' and 'url' are mutually exclusive")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("config error: 'max_concurrent' must be non-negative")
	}

	switch c.Provider {
	case "", "ollama", "gemini":
	default:
		return fmt.Errorf("config error: unknown provider %q (supported: ollama, gemini)", c.Provider)
	}

	if c.Document != "" {
		if _, err := os.Stat(c.Document); os.IsNotExist(err) {
			return fmt.Errorf("config error: document file not found: %s", c.Document)
		}
	}
	return nil
}

// MergeWithDefaults fills zero-valued fields from defaults and returns the
// result. Bool fields are left alone; false is indistinguishable from unset,
// so flags always decide those.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	merged := *c

	merged.Document = cmp.Or(merged.Document, defaults.Document)
	merged.URL = cmp.Or(merged.URL, defaults.URL)
	merged.Out = cmp.Or(merged.Out, defaults.Out)
	merged.Provider = cmp.Or(merged.Provider, defaults.Provider)
	merged.APIKey = cmp.Or(merged.APIKey, defaults.APIKey)
	merged.OllamaHost = cmp.Or(merged.OllamaHost, defaults.OllamaHost)
	merged.DatabaseURL = cmp.Or(merged.DatabaseURL, defaults.DatabaseURL)
	merged.Port = cmp.Or(merged.Port, defaults.Port)
	merged.MaxConcurrent = cmp.Or(merged.MaxConcurrent, defaults.MaxConcurrent)

	return merged
}
