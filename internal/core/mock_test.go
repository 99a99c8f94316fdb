package core

import (
	"context"
	"fmt"

	"github.com/agenthands/cardleads/internal/images"
)

type MockImages struct {
	Files map[string][]byte
}

func (m *MockImages) Put(ctx context.Context, data []byte) (string, error) {
	path := fmt.Sprintf("cards/%d.jpg", len(m.Files)+1)
	m.Files[path] = data
	return path, nil
}

func (m *MockImages) Fetch(ctx context.Context, path string) ([]byte, error) {
	data, ok := m.Files[path]
	if !ok {
		return nil, images.ErrNotFound
	}
	return data, nil
}

type MockOCR struct {
	Text  string
	Err   error
	Calls int
}

func (m *MockOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}
