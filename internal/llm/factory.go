package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/cardleads/internal/config"
)

// ErrNoProvider is returned when no LLM provider is configured.
var ErrNoProvider = fmt.Errorf("no llm provider configured")

// NewClient builds the text client for cfg.Provider.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (LLMClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "", "none":
		return nil, ErrNoProvider

	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		baseURL := OllamaBaseURL(cfg.BaseURL)
		logger.Info("using ollama through the OpenAI-compatible API", zap.String("base_url", baseURL))
		return NewOpenAIClient(ollamaKey(cfg.APIKey), cfg.Model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// NewVisionClient builds an image-capable client. Claude is not supported.
func NewVisionClient(ctx context.Context, cfg config.LLMConfig) (VisionClient, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case "ollama":
		return NewOpenAIClient(ollamaKey(cfg.APIKey), cfg.Model, OllamaBaseURL(cfg.BaseURL)), nil
	case "":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("provider %s has no vision support", provider)
	}
}

// OllamaBaseURL points at Ollama's OpenAI-compatible /v1 endpoint.
func OllamaBaseURL(base string) string {
	if base == "" {
		base = "http://localhost:11434"
	}
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return strings.TrimRight(base, "/") + "/v1"
}

// Ollama ignores the key but the client refuses an empty one.
func ollamaKey(key string) string {
	if key == "" {
		return "ollama"
	}
	return key
}
