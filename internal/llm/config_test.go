package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigs(t *testing.T) {
	t.Run("default is local ollama", func(t *testing.T) {
		cfg := DefaultConfig()

		assert.Equal(t, ProviderOllama, cfg.Provider)
		assert.Equal(t, "qwen3:4b", cfg.GetModel(TierLite))
		assert.Equal(t, "qwen3:8b", cfg.GetModel(TierStandard))
		assert.Equal(t, "qwen3:14b", cfg.GetModel(TierAdvanced))
		assert.Empty(t, cfg.Host)
	})

	t.Run("gemini", func(t *testing.T) {
		cfg := DefaultGeminiConfig()

		assert.Equal(t, ProviderGemini, cfg.Provider)
		assert.Equal(t, "gemini-2.5-flash-lite", cfg.GetModel(TierLite))
		assert.Equal(t, "gemini-2.5-flash", cfg.GetModel(TierStandard))
		assert.Equal(t, "gemini-2.5-pro", cfg.GetModel(TierAdvanced))
	})
}

func TestGetModel(t *testing.T) {
	tests := []struct {
		name   string
		models map[ModelTier]string
		tier   ModelTier
		want   string
	}{
		{
			name:   "exact tier",
			models: map[ModelTier]string{TierLite: "small", TierAdvanced: "big"},
			tier:   TierAdvanced,
			want:   "big",
		},
		{
			name:   "unknown tier falls back to standard",
			models: map[ModelTier]string{TierStandard: "mid", TierLite: "small"},
			tier:   "experimental",
			want:   "mid",
		},
		{
			name:   "then to lite",
			models: map[ModelTier]string{TierLite: "small"},
			tier:   TierAdvanced,
			want:   "small",
		},
		{name: "no models configured", models: map[ModelTier]string{}, tier: TierStandard, want: ""},
		{name: "nil map", models: nil, tier: TierLite, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: ProviderOllama, Models: tt.models}
			assert.Equal(t, tt.want, cfg.GetModel(tt.tier))
		})
	}
}

func TestWithModel(t *testing.T) {
	cfg := DefaultOllamaConfig()
	cfg.Host = "http://ollama:11434"

	override := cfg.WithModel(TierAdvanced, "custom-model")

	assert.Equal(t, "custom-model", override.GetModel(TierAdvanced))
	assert.Equal(t, "qwen3:4b", override.GetModel(TierLite), "other tiers carry over")
	assert.Equal(t, "http://ollama:11434", override.Host)
	assert.Equal(t, "qwen3:14b", cfg.GetModel(TierAdvanced), "original is untouched")
}

func TestWithModel_NilModels(t *testing.T) {
	cfg := &Config{Provider: ProviderOllama}

	override := cfg.WithModel(TierLite, "tiny")
	assert.Equal(t, "tiny", override.GetModel(TierLite))
}
