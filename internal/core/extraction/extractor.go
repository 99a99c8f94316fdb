package extraction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/cardleads/internal/config"
	"github.com/agenthands/cardleads/internal/core/common"
	"github.com/agenthands/cardleads/internal/core/model"
	"github.com/agenthands/cardleads/internal/llm"
)

// Extractor maps OCR text onto contact fields. Without an LLM it runs the
// heuristic parser only.
type Extractor struct {
	LLM    llm.LLMClient
	Prompt string
	Logger *zap.Logger
}

func NewExtractor(llmClient llm.LLMClient, cfg config.ExtractionConfig, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = config.DefaultExtractionPrompt
	}
	return &Extractor{
		LLM:    llmClient,
		Prompt: prompt,
		Logger: logger,
	}
}

// Extract returns the contact fields found in ocrText. An LLM transport error
// is returned to the caller; an unparseable LLM reply falls back to the
// heuristic parser.
func (e *Extractor) Extract(ctx context.Context, ocrText string) (model.ExtractedContact, error) {
	if e.LLM == nil {
		return HeuristicParse(ocrText), nil
	}

	response, err := e.LLM.Generate(ctx, e.buildPrompt(ocrText))
	if err != nil {
		return model.ExtractedContact{}, fmt.Errorf("failed to generate contact fields: %w", err)
	}

	contact, err := common.ParseJSON[model.ExtractedContact](response)
	if err != nil {
		e.Logger.Warn("llm reply was not a contact object, using heuristic parser", zap.Error(err))
		return HeuristicParse(ocrText), nil
	}
	return contact, nil
}

func (e *Extractor) buildPrompt(ocrText string) string {
	if strings.Contains(e.Prompt, "%s") {
		return strings.Replace(e.Prompt, "%s", ocrText, 1)
	}
	return e.Prompt + "\n\n" + ocrText
}
