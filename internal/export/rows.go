// Package export renders leads as spreadsheet rows and writes them out as
// CSV, XLSX or a Google Sheets tab.
package export

import (
	"time"

	"github.com/agenthands/cardleads/internal/core/model"
)

const Source = "Business Card"

// Date layouts for the Date Added column.
const (
	DisplayDateLayout = "Jan 2"
	SheetsDateLayout  = "2006-01-02"
)

var Header = []string{
	"Full Name",
	"First Name",
	"Last Name",
	"Company",
	"Title",
	"Email",
	"Phone",
	"Website",
	"Address",
	"Stage",
	"Notes",
	"Date Added",
	"Source",
}

// StageNames maps stage id to display name.
func StageNames(stages []model.Stage) map[string]string {
	out := make(map[string]string, len(stages))
	for _, s := range stages {
		out[s.ID] = s.Name
	}
	return out
}

// Rows renders one row per lead in Header order. Unknown stages render blank.
func Rows(leads []model.Lead, stageNames map[string]string, dateLayout string) [][]string {
	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []string{
			l.FullName,
			l.FirstName,
			l.LastName,
			l.Company,
			l.Title,
			l.Email,
			l.Phone,
			l.Website,
			l.Address,
			stageNames[l.Stage()],
			l.Notes,
			formatDate(l.CreatedAt, dateLayout),
			Source,
		})
	}
	return rows
}

func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(layout)
}
