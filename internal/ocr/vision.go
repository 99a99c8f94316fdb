package ocr

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/agenthands/cardleads/internal/config"
	"github.com/agenthands/cardleads/internal/llm"
)

// VisionProvider asks a multimodal LLM to transcribe the card.
type VisionProvider struct {
	Client       llm.VisionClient
	Prompt       string
	MaxDimension int
}

func NewVisionProvider(client llm.VisionClient, prompt string, maxDimension int) *VisionProvider {
	if prompt == "" {
		prompt = config.DefaultTranscriptionPrompt
	}
	return &VisionProvider{Client: client, Prompt: prompt, MaxDimension: maxDimension}
}

func (p *VisionProvider) Recognize(ctx context.Context, image []byte) (string, error) {
	prepared, err := Preprocess(image, p.MaxDimension)
	if err != nil {
		return "", err
	}

	text, err := p.Client.DescribeImage(ctx, p.Prompt, prepared, mimetype.Detect(prepared).String())
	if err != nil {
		return "", fmt.Errorf("failed to transcribe card: %w", err)
	}
	return text, nil
}
