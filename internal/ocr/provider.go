// Package ocr turns card photos into raw text.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/cardleads/internal/config"
	"github.com/agenthands/cardleads/internal/llm"
)

// Provider recognizes the text printed on a card image.
type Provider interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// New selects a provider from cfg.OCR.Provider.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.OCR.Provider) {
	case "", "mock":
		logger.Info("using mock OCR provider")
		return MockProvider{}, nil

	case "azure":
		if cfg.OCR.Endpoint == "" || cfg.OCR.APIKey == "" {
			return nil, fmt.Errorf("azure OCR needs endpoint and api_key")
		}
		return NewAzureProvider(cfg.OCR.Endpoint, cfg.OCR.APIKey, cfg.OCR.Language, cfg.OCR.MaxDimension), nil

	case "gemini", "openai", "ollama":
		client, err := llm.NewVisionClient(ctx, cfg.OCRVision())
		if err != nil {
			return nil, fmt.Errorf("failed to create vision client: %w", err)
		}
		return NewVisionProvider(client, cfg.Extraction.TranscriptionPrompt, cfg.OCR.MaxDimension), nil

	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s", cfg.OCR.Provider)
	}
}
