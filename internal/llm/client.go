package llm

import (
	"context"
)

// LLMClient turns a prompt into a completion. Field extraction expects the
// completion to be a JSON object.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VisionClient answers a prompt about a single image.
type VisionClient interface {
	DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}
