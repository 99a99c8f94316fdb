package model

import "strings"

// ExtractedContact is the JSON object the extraction prompt asks the LLM for.
// Missing fields come back as null.
type ExtractedContact struct {
	FullName  *string `json:"full_name"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Company   *string `json:"company"`
	Title     *string `json:"title"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Website   *string `json:"website"`
	Address   *string `json:"address"`
}

// Apply copies the extracted values into d, trimming each and mapping null to "".
func (e ExtractedContact) Apply(d Draft) Draft {
	d.FullName = deref(e.FullName)
	d.FirstName = deref(e.FirstName)
	d.LastName = deref(e.LastName)
	d.Company = deref(e.Company)
	d.Title = deref(e.Title)
	d.Email = deref(e.Email)
	d.Phone = deref(e.Phone)
	d.Website = deref(e.Website)
	d.Address = deref(e.Address)
	return d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// ExtractResult is what the extraction step hands to the reviewer.
type ExtractResult struct {
	Extracted       Draft    `json:"extracted"`
	UncertainFields []string `json:"uncertain_fields"`
	RawOCRText      string   `json:"raw_ocr_text"`
	Error           *string  `json:"error"`
}
