// Package dedupe derives canonical matching keys for contacts and uses them to
// collapse duplicate leads.
package dedupe

import (
	"strings"

	"github.com/agenthands/cardleads/internal/core/model"
)

// Kind tags which identity fields produced a Key.
type Kind int

const (
	KindNone Kind = iota
	KindEmail
	KindPhoneName
	KindNameCompany
)

func (k Kind) String() string {
	switch k {
	case KindEmail:
		return "email"
	case KindPhoneName:
		return "phone_name"
	case KindNameCompany:
		return "name_company"
	}
	return "none"
}

// Key is a dedupe key. Only the fields relevant to Kind are set; the zero
// value is the absent key.
type Key struct {
	Kind        Kind
	Email       string
	PhoneDigits string
	Name        string
	Company     string
}

// Present reports whether duplicate detection is possible for the contact.
func (k Key) Present() bool {
	return k.Kind != KindNone
}

// String is the stored encoding of the key, "" when absent.
func (k Key) String() string {
	switch k.Kind {
	case KindEmail:
		return "email:" + k.Email
	case KindPhoneName:
		return "phone_name:" + k.PhoneDigits + "|" + k.Name
	case KindNameCompany:
		return "name_company:" + k.Name + "|" + k.Company
	}
	return ""
}

// NormalizeEmail trims and lowercases. "" means absent.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhoneDigits keeps only ASCII digits. "" means absent.
func NormalizePhoneDigits(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// NormalizeName trims, collapses whitespace runs and lowercases.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// NormalizeCompany normalizes like NormalizeName.
func NormalizeCompany(s string) string {
	return NormalizeName(s)
}

// ResolveName is the normalized full name, falling back to first + last.
func ResolveName(id model.Identity) string {
	if n := NormalizeName(id.FullName); n != "" {
		return n
	}
	var parts []string
	for _, p := range []string{id.FirstName, id.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return NormalizeName(strings.Join(parts, " "))
}

// BuildKey derives the dedupe key. Email wins, then phone plus name, then
// name plus company. Without any of those the key is absent.
func BuildKey(id model.Identity) Key {
	if email := NormalizeEmail(id.Email); email != "" {
		return Key{Kind: KindEmail, Email: email}
	}

	digits := NormalizePhoneDigits(id.Phone)
	name := ResolveName(id)
	if digits != "" && name != "" {
		return Key{Kind: KindPhoneName, PhoneDigits: digits, Name: name}
	}

	company := NormalizeCompany(id.Company)
	if name != "" && company != "" {
		return Key{Kind: KindNameCompany, Name: name, Company: company}
	}

	return Key{}
}

// KeyOf is BuildKey over a persisted lead.
func KeyOf(l model.Lead) Key {
	return BuildKey(l.Identity())
}
