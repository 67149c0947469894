package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaHost = "http://localhost:11434"

	// Must exceed the longest per-stage deadline so the stage context,
	// not the HTTP client, decides when a call is abandoned.
	ollamaHTTPTimeout = 5 * time.Minute
)

// OllamaClient implements Client against a local Ollama server's chat API.
type OllamaClient struct {
	host       string
	config     *Config
	httpClient *http.Client
}

// NewOllamaClient creates a client for the Ollama server named in the config.
// An empty host falls back to localhost:11434.
func NewOllamaClient(config *Config) *OllamaClient {
	host := config.Host
	if host == "" {
		host = defaultOllamaHost
	}
	return &OllamaClient{
		host:   strings.TrimRight(host, "/"),
		config: config,
		httpClient: &http.Client{
			Timeout: ollamaHTTPTimeout,
		},
	}
}

// GenerateContent generates text content using the specified model tier
func (c *OllamaClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	resp, err := c.chat(ctx, prompt, tier, nil)
	if err != nil {
		return "", err
	}
	return stripThinkBlock(resp.Message.Content), nil
}

// GenerateJSON generates JSON content using the specified model tier.
// Ollama's format mode constrains the response to valid JSON, but thinking
// models still prepend reasoning, so the output is cleaned either way.
func (c *OllamaClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	resp, err := c.chat(ctx, prompt, tier, "json")
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(stripThinkBlock(resp.Message.Content)), nil
}

// GetModel returns the model name for a tier
func (c *OllamaClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *OllamaClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// IsAvailable reports whether the Ollama server is reachable.
func (c *OllamaClient) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// --- internal Ollama API types ---

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   any                 `json:"format,omitempty"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string            `json:"model"`
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// chat sends a non-streaming chat request and decodes the response.
func (c *OllamaClient) chat(ctx context.Context, prompt string, tier ModelTier, format any) (*ollamaChatResponse, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", tier)
	}

	chatReq := ollamaChatRequest{
		Model: modelName,
		Messages: []ollamaChatMessage{
			{Role: "user", Content: prompt},
		},
		Stream: false,
		Format: format,
		Options: map[string]any{
			"temperature": generationTemperature,
		},
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, fmt.Errorf("ollama returned status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var resp ollamaChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &resp, nil
}

// stripThinkBlock removes <think>...</think> reasoning emitted by thinking
// models (qwen3) before the actual answer.
func stripThinkBlock(text string) string {
	for {
		start := strings.Index(text, "<think>")
		if start < 0 {
			break
		}
		end := strings.Index(text[start:], "</think>")
		if end < 0 {
			// Unterminated block, drop everything from the tag on
			text = text[:start]
			break
		}
		text = text[:start] + text[start+end+len("</think>"):]
	}
	return strings.TrimSpace(text)
}
