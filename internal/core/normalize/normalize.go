// Package normalize cleans an extracted contact draft and flags the fields a
// reviewer should double check.
package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/agenthands/cardleads/internal/core/model"
)

// Field names reported in Result.UncertainFields.
const (
	FieldFullName = "full_name"
	FieldCompany  = "company"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldWebsite  = "website"
)

// DefaultRegion is used to interpret phone numbers without a country code.
const DefaultRegion = "US"

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Result is a normalized draft plus the fields that look wrong.
type Result struct {
	Lead            model.Draft `json:"lead"`
	UncertainFields []string    `json:"uncertain_fields"`
}

// NormalizeAndValidate trims the draft, back-fills the name fields from each
// other and flags suspicious values. It never fails and is idempotent.
func NormalizeAndValidate(draft model.Draft) Result {
	d := draft
	d.FullName = strings.TrimSpace(d.FullName)
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Company = strings.TrimSpace(d.Company)
	d.Title = strings.TrimSpace(d.Title)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Website = strings.TrimSpace(d.Website)
	d.Address = strings.TrimSpace(d.Address)

	if d.FullName == "" {
		d.FullName = joinNonEmpty(d.FirstName, d.LastName)
	}

	if (d.FirstName == "" || d.LastName == "") && d.FullName != "" {
		parts := strings.Fields(d.FullName)
		if len(parts) >= 2 {
			if d.FirstName == "" {
				d.FirstName = parts[0]
			}
			if d.LastName == "" {
				d.LastName = strings.Join(parts[1:], " ")
			}
		}
	}

	uncertain := []string{}
	if d.FullName != "" && len(strings.Fields(d.FullName)) == 1 {
		uncertain = append(uncertain, FieldFullName)
	}
	if d.Email != "" && !IsValidEmail(d.Email) {
		uncertain = append(uncertain, FieldEmail)
	}
	if d.Phone != "" && !IsValidPhone(d.Phone) {
		uncertain = append(uncertain, FieldPhone)
	}
	if d.Website != "" && !IsProbablyURL(d.Website) {
		uncertain = append(uncertain, FieldWebsite)
	}

	return Result{Lead: d, UncertainFields: uncertain}
}

// IsValidEmail checks the local@domain.tld shape only.
func IsValidEmail(email string) bool {
	return emailShape.MatchString(email)
}

// IsValidPhone reports whether phone is a valid number, reading it as a US
// number when it carries no country code.
func IsValidPhone(phone string) bool {
	num, err := phonenumbers.Parse(phone, DefaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// IsProbablyURL accepts bare domains by validating with an https scheme.
// The stored value is not rewritten.
func IsProbablyURL(value string) bool {
	v := value
	if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
		v = "https://" + v
	}
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	return u.Host != ""
}

// MergeUncertain unions field sets keeping first-seen order.
func MergeUncertain(sets ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, set := range sets {
		for _, f := range set {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// FailedExtractionFields are pre-flagged when OCR or extraction fails so the
// reviewer fills them in by hand.
func FailedExtractionFields() []string {
	return []string{FieldFullName, FieldCompany, FieldEmail, FieldPhone}
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
