package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("parses all field groups", func(t *testing.T) {
		path := writeTempFile(t, `{
			"url": "https://example.com/requirements",
			"out": "test_cases.json",
			"port": 9090,
			"max_concurrent": 2,
			"provider": "gemini",
			"verbose": true
		}`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "https://example.com/requirements", cfg.URL)
		assert.Equal(t, "test_cases.json", cfg.Out)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, int64(2), cfg.MaxConcurrent)
		assert.Equal(t, "gemini", cfg.Provider)
		assert.True(t, cfg.Verbose)
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		path := writeTempFile(t, `{"out": "a.json", "legacy_field": 7}`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "a.json", cfg.Out)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		path := writeTempFile(t, `{ invalid json }`)

		cfg, err := LoadConfig(path)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "failed to parse config JSON")
	})

	t.Run("missing file", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("empty path", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "config path is empty")
	})
}

func TestConfigValidate(t *testing.T) {
	// Document checks stat the path, so point at a real file
	doc := writeTempFile(t, "GET /health returns 200")

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "all knobs set",
			cfg:  Config{URL: "https://example.com/requirements", Port: 8080, MaxConcurrent: 4, Provider: "ollama"},
		},
		{name: "existing document", cfg: Config{Document: doc}},
		{name: "zero value", cfg: Config{}},
		{
			name:    "document and url together",
			cfg:     Config{Document: doc, URL: "https://example.com"},
			wantErr: "mutually exclusive",
		},
		{name: "port above range", cfg: Config{Port: 70000}, wantErr: "'port'"},
		{name: "negative port", cfg: Config{Port: -1}, wantErr: "'port'"},
		{name: "negative max_concurrent", cfg: Config{MaxConcurrent: -1}, wantErr: "'max_concurrent'"},
		{name: "unknown provider", cfg: Config{Provider: "bedrock"}, wantErr: "unknown provider"},
		{
			name:    "document does not exist",
			cfg:     Config{Document: "/nonexistent/requirements.pdf"},
			wantErr: "document file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		Out:           "test_cases.json",
		Provider:      "ollama",
		OllamaHost:    "http://localhost:11434",
		Port:          8080,
		MaxConcurrent: 4,
	}

	t.Run("set fields win over defaults", func(t *testing.T) {
		partial := Config{Out: "custom.json", Provider: "gemini", APIKey: "custom-key"}

		merged := partial.MergeWithDefaults(defaults)

		assert.Equal(t, "custom.json", merged.Out)
		assert.Equal(t, "gemini", merged.Provider)
		assert.Equal(t, "custom-key", merged.APIKey)
		assert.Equal(t, "http://localhost:11434", merged.OllamaHost)
		assert.Equal(t, 8080, merged.Port)
		assert.Equal(t, int64(4), merged.MaxConcurrent)
	})

	t.Run("empty defaults change nothing", func(t *testing.T) {
		cfg := Config{Document: "requirements.pdf", Out: "out.json"}
		assert.Equal(t, cfg, cfg.MergeWithDefaults(Config{}))
	})

	t.Run("receiver is not mutated", func(t *testing.T) {
		cfg := Config{}
		_ = cfg.MergeWithDefaults(defaults)
		assert.Equal(t, Config{}, cfg)
	})
}
