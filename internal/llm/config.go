// Package llm wraps the model providers behind a single client interface.
// The default is a local Ollama server so no API key is needed; Gemini is
// selected when a key is configured.
package llm

import "maps"

// ModelTier selects how much model capability a call gets.
type ModelTier string

const (
	TierLite     ModelTier = "lite"     // classification, cleanup
	TierStandard ModelTier = "standard" // structured analysis
	TierAdvanced ModelTier = "advanced" // drafting and review
)

// Provider identifies a model backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderGemini Provider = "gemini"
)

// Config maps tiers to provider model names.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// Host is the endpoint for self-hosted providers (Ollama). Empty means
	// the provider default.
	Host string
}

// DefaultConfig is the local Ollama setup.
func DefaultConfig() *Config {
	return DefaultOllamaConfig()
}

// DefaultOllamaConfig maps the tiers onto local qwen3 models.
func DefaultOllamaConfig() *Config {
	return &Config{
		Provider: ProviderOllama,
		Models: map[ModelTier]string{
			TierLite:     "qwen3:4b",
			TierStandard: "qwen3:8b",
			TierAdvanced: "qwen3:14b",
		},
	}
}

// DefaultGeminiConfig maps the tiers onto the Gemini 2.5 family.
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel resolves the model name for a tier, falling back to standard and
// then lite when the tier has no mapping.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model, ok := c.Models[t]; ok {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of the config with one tier remapped.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	models := maps.Clone(c.Models)
	if models == nil {
		models = make(map[ModelTier]string, 1)
	}
	models[tier] = model
	return &Config{Provider: c.Provider, Models: models, Host: c.Host}
}
