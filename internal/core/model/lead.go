package model

import (
	"fmt"
	"time"
)

// Draft is a contact pending human review. Empty strings mean "absent".
type Draft struct {
	FullName      string  `json:"full_name"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Company       string  `json:"company"`
	Title         string  `json:"title"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	Website       string  `json:"website"`
	Address       string  `json:"address"`
	Notes         string  `json:"notes"`
	StageID       *string `json:"stage_id"`
	CardImagePath string  `json:"card_image_path"`
}

// EmptyDraft returns a blank draft bound to the given card image.
func EmptyDraft(cardImagePath string) Draft {
	return Draft{CardImagePath: cardImagePath}
}

// Identity returns the fields that take part in duplicate detection.
func (d Draft) Identity() Identity {
	return Identity{
		Email:     d.Email,
		Phone:     d.Phone,
		FullName:  d.FullName,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Company:   d.Company,
	}
}

// Stage returns the stage id or "" when unset.
func (d Draft) Stage() string {
	if d.StageID == nil {
		return ""
	}
	return *d.StageID
}

// Identity is the subset of contact fields used to derive a dedupe key.
type Identity struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
}

type Status string

const (
	StatusActive       Status = "active"
	StatusFollowUp     Status = "follow_up"
	StatusDoNotContact Status = "do_not_contact"
)

// ParseStatus accepts the wire value of a status. "" maps to active.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusActive:
		return StatusActive, nil
	case StatusFollowUp, StatusDoNotContact:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown lead status %q", s)
}

// Lead is a persisted contact record.
type Lead struct {
	Draft
	ID         string    `json:"id"`
	RawOCRText *string   `json:"raw_ocr_text"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LastTouched is the update time, or the creation time when the lead was
// never updated.
func (l Lead) LastTouched() time.Time {
	if l.UpdatedAt.IsZero() {
		return l.CreatedAt
	}
	return l.UpdatedAt
}

// EffectiveStatus treats a missing status as active.
func (l Lead) EffectiveStatus() Status {
	if l.Status == "" {
		return StatusActive
	}
	return l.Status
}

// Stage is a named pipeline step, ordered by SortOrder.
type Stage struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// DefaultStages seeds a fresh store.
func DefaultStages() []Stage {
	return []Stage{
		{ID: "prospecting", Name: "Prospecting", SortOrder: 1},
		{ID: "appointment", Name: "Appointment", SortOrder: 2},
		{ID: "met", Name: "Met", SortOrder: 3},
		{ID: "sent-loe", Name: "Sent LOE/Contract", SortOrder: 4},
		{ID: "closed", Name: "Under Contract/Closed", SortOrder: 5},
	}
}

// LeadPatch carries the mutable fields of a lead. Nil fields are left alone.
type LeadPatch struct {
	StageID *string
	Status  *Status
	Notes   *string
}
