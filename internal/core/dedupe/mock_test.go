package dedupe

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/cardleads/internal/core/model"
)

// MockFinder answers candidate searches from a slice and records the queries.
type MockFinder struct {
	Leads []model.Lead
	Err   error
	Calls []string
}

func (m *MockFinder) FindByEmail(ctx context.Context, email string) ([]model.Lead, error) {
	m.Calls = append(m.Calls, "email:"+email)
	if m.Err != nil {
		return nil, m.Err
	}
	for _, l := range m.Leads {
		if strings.EqualFold(l.Email, email) {
			return []model.Lead{l}, nil
		}
	}
	return nil, nil
}

func (m *MockFinder) SearchByPhone(ctx context.Context, fragment string, limit int) ([]model.Lead, error) {
	m.Calls = append(m.Calls, fmt.Sprintf("phone:%s:%d", fragment, limit))
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.Lead
	for _, l := range m.Leads {
		if strings.Contains(l.Phone, fragment) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MockFinder) SearchByCompany(ctx context.Context, fragment string, limit int) ([]model.Lead, error) {
	m.Calls = append(m.Calls, fmt.Sprintf("company:%s:%d", fragment, limit))
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.Lead
	for _, l := range m.Leads {
		if strings.Contains(strings.ToLower(l.Company), strings.ToLower(fragment)) {
			out = append(out, l)
		}
	}
	return out, nil
}
