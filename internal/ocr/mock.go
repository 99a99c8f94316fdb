package ocr

import "context"

// MockText is a fixed business card used for local runs and demos.
const MockText = `Jane Doe
Senior Recruiter
Acme Staffing
jane.doe@acmestaffing.com
(555) 123-4567
acmestaffing.com
123 Main St, Austin, TX 78701`

// MockProvider ignores the image and returns MockText.
type MockProvider struct{}

func (MockProvider) Recognize(ctx context.Context, image []byte) (string, error) {
	return MockText, nil
}
