package extraction

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/agenthands/cardleads/internal/core/model"
)

var (
	emailPattern    = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	usPhonePattern  = regexp.MustCompile(`\(\d{3}\)\s*\d{3}-\d{4}`)
	anyPhonePattern = regexp.MustCompile(`\+?\d[\d(). -]{7,}\d`)
	websitePattern  = regexp.MustCompile(`(?i)\b(https?://)?([a-z0-9-]+\.)+[a-z]{2,}(/\S*)?\b`)
)

// HeuristicParse reads a card top-down: name, title, company on the first
// three lines, with email, phone and website found by pattern anywhere.
func HeuristicParse(ocrText string) model.ExtractedContact {
	text := norm.NFKC.String(ocrText)

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	line := func(i int) string {
		if i < len(lines) {
			return lines[i]
		}
		return ""
	}

	phone := usPhonePattern.FindString(text)
	if phone == "" {
		phone = anyPhonePattern.FindString(text)
	}

	// Strip emails so the domain part is not taken for a website.
	website := websitePattern.FindString(emailPattern.ReplaceAllString(text, " "))

	fullName := line(0)
	var first, last string
	if parts := strings.Fields(fullName); len(parts) > 0 {
		first = parts[0]
		last = strings.Join(parts[1:], " ")
	}

	return model.ExtractedContact{
		FullName:  optional(fullName),
		FirstName: optional(first),
		LastName:  optional(last),
		Title:     optional(line(1)),
		Company:   optional(line(2)),
		Email:     optional(emailPattern.FindString(text)),
		Phone:     optional(strings.TrimSpace(phone)),
		Website:   optional(website),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
