package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/agenthands/cardleads/internal/config"
)

const driveFileScope = "https://www.googleapis.com/auth/drive.file"

var ErrSheetsNotConfigured = errors.New("google sheets sync is not configured")

// SheetsAPI is the slice of the Sheets v4 API the syncer uses.
type SheetsAPI interface {
	TabTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	AddTab(ctx context.Context, spreadsheetID, title string) error
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
}

// SyncError carries a remediation hint for common Sheets failures.
type SyncError struct {
	Err            error
	Hint           string
	ServiceAccount string
}

func (e *SyncError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ". " + e.Hint
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

type SheetsSyncer struct {
	API            SheetsAPI
	SpreadsheetID  string
	Tab            string
	ServiceAccount string
}

// NewSheetsSyncer authenticates with service account credentials from cfg.
func NewSheetsSyncer(ctx context.Context, cfg config.SheetsConfig) (*SheetsSyncer, error) {
	creds := []byte(cfg.CredentialsJSON)
	if len(creds) == 0 && cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
		}
		creds = data
	}
	if cfg.SpreadsheetID == "" || cfg.TabName == "" || len(creds) == 0 {
		return nil, ErrSheetsNotConfigured
	}

	var account struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(creds, &account); err != nil {
		return nil, fmt.Errorf("invalid sheets credentials (must be service account JSON): %w", err)
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(sheets.SpreadsheetsScope, driveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return &SheetsSyncer{
		API:            &sheetsService{svc: svc},
		SpreadsheetID:  cfg.SpreadsheetID,
		Tab:            cfg.TabName,
		ServiceAccount: account.ClientEmail,
	}, nil
}

// Sync replaces the tab contents with header and rows and returns the number
// of data rows written.
func (s *SheetsSyncer) Sync(ctx context.Context, header []string, rows [][]string) (int, error) {
	if err := s.ensureTab(ctx); err != nil {
		return 0, s.wrap(err)
	}
	if err := s.API.Clear(ctx, s.SpreadsheetID, A1Range(s.Tab, "A:Z")); err != nil {
		return 0, s.wrap(err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, toAny(header))
	for _, r := range rows {
		values = append(values, toAny(r))
	}
	if err := s.API.Update(ctx, s.SpreadsheetID, A1Range(s.Tab, "A1"), values); err != nil {
		return 0, s.wrap(err)
	}
	return len(rows), nil
}

func (s *SheetsSyncer) ensureTab(ctx context.Context) error {
	titles, err := s.API.TabTitles(ctx, s.SpreadsheetID)
	if err != nil {
		return err
	}
	if slices.Contains(titles, s.Tab) {
		return nil
	}
	return s.API.AddTab(ctx, s.SpreadsheetID, s.Tab)
}

func (s *SheetsSyncer) wrap(err error) error {
	msg := err.Error()
	var hint string
	switch {
	case strings.Contains(msg, "The caller does not have permission"), strings.Contains(msg, "PERMISSION_DENIED"):
		hint = "Share the spreadsheet with this service account email: " + s.ServiceAccount
	case strings.Contains(msg, "Unable to parse range"):
		hint = fmt.Sprintf("Confirm the tab name matches exactly: %q", s.Tab)
	case strings.Contains(msg, "insufficient authentication scopes"):
		hint = "OAuth scopes are insufficient. Ensure Sheets API is enabled and scopes include spreadsheets."
	}
	return &SyncError{Err: err, Hint: hint, ServiceAccount: s.ServiceAccount}
}

// A1Range quotes a tab name for A1 notation.
func A1Range(tab, rng string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + rng
}

func toAny(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

type sheetsService struct {
	svc *sheets.Service
}

func (s *sheetsService) TabTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	meta, err := s.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets(properties(title))").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	var titles []string
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title != "" {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (s *sheetsService) AddTab(ctx context.Context, spreadsheetID, title string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}}},
		},
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	return err
}

func (s *sheetsService) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s *sheetsService) Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}
