package dedupe

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/cardleads/internal/core/model"
)

// Candidate search limits. A duplicate beyond the limit is missed; see DESIGN.md.
const (
	PhoneCandidateLimit   = 25
	CompanyCandidateLimit = 50
)

// CandidateFinder is the narrow query surface a lead store offers for
// duplicate lookups. Searches are substring matches; confirmation happens here.
type CandidateFinder interface {
	// FindByEmail is a case-insensitive exact match.
	FindByEmail(ctx context.Context, email string) ([]model.Lead, error)
	// SearchByPhone returns leads whose phone contains fragment.
	SearchByPhone(ctx context.Context, fragment string, limit int) ([]model.Lead, error)
	// SearchByCompany returns leads whose company contains fragment, ignoring case.
	SearchByCompany(ctx context.Context, fragment string, limit int) ([]model.Lead, error)
}

// FindDuplicate narrows candidates with a cheap store query and confirms each
// by exact key comparison. It returns nil when no duplicate exists.
func FindDuplicate(ctx context.Context, finder CandidateFinder, key Key) (*model.Lead, error) {
	switch key.Kind {
	case KindEmail:
		found, err := finder.FindByEmail(ctx, key.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up email candidates: %w", err)
		}
		if len(found) == 0 {
			return nil, nil
		}
		return &found[0], nil

	case KindPhoneName:
		last4 := lastN(key.PhoneDigits, 4)
		if last4 == "" {
			return nil, nil
		}
		candidates, err := finder.SearchByPhone(ctx, last4, PhoneCandidateLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to search phone candidates: %w", err)
		}
		return confirm(candidates, key), nil

	case KindNameCompany:
		token := firstToken(key.Company)
		if token == "" {
			return nil, nil
		}
		candidates, err := finder.SearchByCompany(ctx, token, CompanyCandidateLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to search company candidates: %w", err)
		}
		return confirm(candidates, key), nil
	}
	return nil, nil
}

// confirm matches on the encoded key, the same comparison DedupeLeads uses.
func confirm(candidates []model.Lead, key Key) *model.Lead {
	want := key.String()
	for i := range candidates {
		if KeyOf(candidates[i]).String() == want {
			return &candidates[i]
		}
	}
	return nil
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func firstToken(s string) string {
	first, _, _ := strings.Cut(s, " ")
	return first
}
