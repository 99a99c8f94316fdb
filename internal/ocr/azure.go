package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
)

type printedTextRecognizer interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, image io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// AzureProvider runs Azure Computer Vision printed-text OCR.
type AzureProvider struct {
	client       printedTextRecognizer
	language     computervision.OcrLanguages
	maxDimension int
}

func NewAzureProvider(endpoint, apiKey, language string, maxDimension int) *AzureProvider {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)

	if language == "" {
		language = string(computervision.En)
	}
	return &AzureProvider{
		client:       &client,
		language:     computervision.OcrLanguages(language),
		maxDimension: maxDimension,
	}
}

func (p *AzureProvider) Recognize(ctx context.Context, image []byte) (string, error) {
	prepared, err := Preprocess(image, p.maxDimension)
	if err != nil {
		return "", err
	}

	result, err := p.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(prepared)), p.language)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return joinLines(result), nil
}

// joinLines flattens regions and lines in the order Azure reports them.
func joinLines(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}
	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil && *word.Text != "" {
					words = append(words, *word.Text)
				}
			}
			if len(words) > 0 {
				lines = append(lines, strings.Join(words, " "))
			}
		}
	}
	return strings.Join(lines, "\n")
}
