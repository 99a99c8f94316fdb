package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/agenthands/cardleads/internal/core/dedupe"
	"github.com/agenthands/cardleads/internal/core/model"
	"github.com/agenthands/cardleads/internal/driver"
)

// MemgraphStore keeps leads and stages as graph nodes.
type MemgraphStore struct {
	Driver driver.GraphDriver
	Logger *zap.Logger
}

func NewMemgraphStore(ctx context.Context, d driver.GraphDriver, logger *zap.Logger) (*MemgraphStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MemgraphStore{Driver: d, Logger: logger}

	if err := d.BuildIndices(ctx); err != nil {
		return nil, fmt.Errorf("failed to build indices: %w", err)
	}
	for _, st := range model.DefaultStages() {
		params := map[string]any{"id": st.ID, "name": st.Name, "sort_order": int64(st.SortOrder)}
		if _, err := d.ExecuteQuery(ctx, driver.MergeStageQuery, params); err != nil {
			return nil, fmt.Errorf("failed to seed stage %s: %w", st.ID, err)
		}
	}
	return s, nil
}

func (s *MemgraphStore) ListStages(ctx context.Context) ([]model.Stage, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.ListStagesQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	out := make([]model.Stage, 0, len(res.Records))
	for _, rec := range res.Records {
		id, _ := rec.Get("id")
		name, _ := rec.Get("name")
		order, _ := rec.Get("sort_order")
		out = append(out, model.Stage{
			ID:        asString(id),
			Name:      asString(name),
			SortOrder: int(asInt64(order)),
		})
	}
	return out, nil
}

func (s *MemgraphStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	return s.queryLeads(ctx, driver.ListLeadsQuery, nil)
}

func (s *MemgraphStore) GetLead(ctx context.Context, id string) (model.Lead, error) {
	leads, err := s.queryLeads(ctx, driver.GetLeadQuery, map[string]any{"id": id})
	if err != nil {
		return model.Lead{}, err
	}
	if len(leads) == 0 {
		return model.Lead{}, ErrNotFound
	}
	return leads[0], nil
}

func (s *MemgraphStore) InsertLead(ctx context.Context, lead model.Lead) error {
	if _, err := s.Driver.ExecuteQuery(ctx, driver.CreateLeadQuery, leadParams(lead)); err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

func (s *MemgraphStore) UpdateLead(ctx context.Context, id string, patch model.LeadPatch, at time.Time) (model.Lead, error) {
	params := map[string]any{
		"id":         id,
		"stage_id":   nil,
		"status":     nil,
		"notes":      nil,
		"updated_at": unixNanos(at),
	}
	if patch.StageID != nil {
		params["stage_id"] = *patch.StageID
	}
	if patch.Status != nil {
		params["status"] = string(*patch.Status)
	}
	if patch.Notes != nil {
		params["notes"] = *patch.Notes
	}

	leads, err := s.queryLeads(ctx, driver.UpdateLeadQuery, params)
	if err != nil {
		return model.Lead{}, err
	}
	if len(leads) == 0 {
		return model.Lead{}, ErrNotFound
	}
	return leads[0], nil
}

func (s *MemgraphStore) FindByEmail(ctx context.Context, email string) ([]model.Lead, error) {
	return s.queryLeads(ctx, driver.FindLeadByEmailQuery, map[string]any{"email": dedupe.NormalizeEmail(email)})
}

func (s *MemgraphStore) SearchByPhone(ctx context.Context, fragment string, limit int) ([]model.Lead, error) {
	return s.queryLeads(ctx, driver.SearchLeadsByPhoneQuery, map[string]any{"fragment": fragment, "limit": int64(limit)})
}

func (s *MemgraphStore) SearchByCompany(ctx context.Context, fragment string, limit int) ([]model.Lead, error) {
	return s.queryLeads(ctx, driver.SearchLeadsByCompanyQuery, map[string]any{"fragment": fragment, "limit": int64(limit)})
}

func (s *MemgraphStore) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}

func (s *MemgraphStore) queryLeads(ctx context.Context, query string, params map[string]any) ([]model.Lead, error) {
	res, err := s.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	out := make([]model.Lead, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, leadFromRecord(rec))
	}
	return out, nil
}

func leadParams(l model.Lead) map[string]any {
	var stageID, rawOCR any
	if l.StageID != nil {
		stageID = *l.StageID
	}
	if l.RawOCRText != nil {
		rawOCR = *l.RawOCRText
	}
	return map[string]any{
		"id":              l.ID,
		"full_name":       l.FullName,
		"first_name":      l.FirstName,
		"last_name":       l.LastName,
		"company":         l.Company,
		"title":           l.Title,
		"email":           l.Email,
		"email_lower":     dedupe.NormalizeEmail(l.Email),
		"phone":           l.Phone,
		"website":         l.Website,
		"address":         l.Address,
		"notes":           l.Notes,
		"stage_id":        stageID,
		"status":          string(l.EffectiveStatus()),
		"card_image_path": l.CardImagePath,
		"raw_ocr_text":    rawOCR,
		"dedupe_key":      dedupe.KeyOf(l).String(),
		"created_at":      unixNanos(l.CreatedAt),
		"updated_at":      unixNanos(l.UpdatedAt),
	}
}

func leadFromRecord(rec *neo4j.Record) model.Lead {
	raw, _ := rec.Get("lead")
	props, _ := raw.(map[string]any)

	return model.Lead{
		Draft: model.Draft{
			FullName:      asString(props["full_name"]),
			FirstName:     asString(props["first_name"]),
			LastName:      asString(props["last_name"]),
			Company:       asString(props["company"]),
			Title:         asString(props["title"]),
			Email:         asString(props["email"]),
			Phone:         asString(props["phone"]),
			Website:       asString(props["website"]),
			Address:       asString(props["address"]),
			Notes:         asString(props["notes"]),
			StageID:       asStringPtr(props["stage_id"]),
			CardImagePath: asString(props["card_image_path"]),
		},
		ID:         asString(props["id"]),
		RawOCRText: asStringPtr(props["raw_ocr_text"]),
		Status:     model.Status(asString(props["status"])),
		CreatedAt:  asTime(props["created_at"]),
		UpdatedAt:  asTime(props["updated_at"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func asTime(v any) time.Time {
	n := asInt64(v)
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
