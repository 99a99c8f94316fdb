package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cardleads/internal/core/model"
	"github.com/agenthands/cardleads/internal/driver"
)

func newMemgraphStore(t *testing.T, m *MockDriver) *MemgraphStore {
	t.Helper()
	s, err := NewMemgraphStore(context.Background(), m, nil)
	require.NoError(t, err)
	m.Queries, m.Params = nil, nil
	return s
}

func TestNewMemgraphStore_SeedsStages(t *testing.T) {
	m := &MockDriver{}
	_, err := NewMemgraphStore(context.Background(), m, nil)

	require.NoError(t, err)
	assert.True(t, m.IndicesBuilt)
	require.Len(t, m.Queries, 5)
	assert.Equal(t, driver.MergeStageQuery, m.Queries[0])
	assert.Equal(t, "prospecting", m.Params[0]["id"])
	assert.Equal(t, int64(1), m.Params[0]["sort_order"])
}

func TestMemgraphStore_InsertLeadParams(t *testing.T) {
	m := &MockDriver{}
	s := newMemgraphStore(t, m)
	stage := "met"
	lead := model.Lead{
		Draft:     model.Draft{FullName: "Jane Doe", Email: " Jane@Acme.com ", StageID: &stage},
		ID:        "l1",
		CreatedAt: base,
	}

	require.NoError(t, s.InsertLead(context.Background(), lead))

	p := m.LastParams()
	assert.Equal(t, driver.CreateLeadQuery, m.Queries[0])
	assert.Equal(t, "jane@acme.com", p["email_lower"])
	assert.Equal(t, "email:jane@acme.com", p["dedupe_key"])
	assert.Equal(t, "met", p["stage_id"])
	assert.Nil(t, p["raw_ocr_text"])
	assert.Equal(t, "active", p["status"])
	assert.Equal(t, base.UnixNano(), p["created_at"])
	assert.Equal(t, int64(0), p["updated_at"])
}

func TestMemgraphStore_GetLeadParsesProperties(t *testing.T) {
	m := &MockDriver{Results: []neo4j.EagerResult{leadResult(map[string]any{
		"id":           "l1",
		"full_name":    "Jane Doe",
		"company":      "Acme",
		"stage_id":     "met",
		"status":       "follow_up",
		"raw_ocr_text": "Jane Doe\nAcme",
		"created_at":   base.UnixNano(),
		"updated_at":   base.Add(time.Hour).UnixNano(),
	})}}
	s := newMemgraphStore(t, m)

	got, err := s.GetLead(context.Background(), "l1")

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.FullName)
	assert.Equal(t, "met", got.Stage())
	assert.Equal(t, model.StatusFollowUp, got.Status)
	require.NotNil(t, got.RawOCRText)
	assert.Equal(t, "Jane Doe\nAcme", *got.RawOCRText)
	assert.True(t, got.CreatedAt.Equal(base))
	assert.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)))
	assert.Equal(t, "l1", m.LastParams()["id"])
}

func TestMemgraphStore_GetLeadNotFound(t *testing.T) {
	s := newMemgraphStore(t, &MockDriver{})

	_, err := s.GetLead(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UpdateLead(context.Background(), "nope", model.LeadPatch{}, base)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemgraphStore_UpdateLeadParams(t *testing.T) {
	m := &MockDriver{}
	s := newMemgraphStore(t, m)
	m.Results = []neo4j.EagerResult{leadResult(map[string]any{"id": "l1", "notes": "hi"})}
	notes := "hi"

	got, err := s.UpdateLead(context.Background(), "l1", model.LeadPatch{Notes: &notes}, base)

	require.NoError(t, err)
	assert.Equal(t, "hi", got.Notes)
	p := m.LastParams()
	assert.Nil(t, p["stage_id"])
	assert.Nil(t, p["status"])
	assert.Equal(t, "hi", p["notes"])
	assert.Equal(t, base.UnixNano(), p["updated_at"])
}

func TestMemgraphStore_Searches(t *testing.T) {
	m := &MockDriver{}
	s := newMemgraphStore(t, m)

	_, err := s.FindByEmail(context.Background(), "JANE@acme.com")
	require.NoError(t, err)
	assert.Equal(t, driver.FindLeadByEmailQuery, m.Queries[0])
	assert.Equal(t, "jane@acme.com", m.LastParams()["email"])

	_, err = s.SearchByPhone(context.Background(), "4567", 25)
	require.NoError(t, err)
	assert.Equal(t, int64(25), m.LastParams()["limit"])

	_, err = s.SearchByCompany(context.Background(), "acme", 50)
	require.NoError(t, err)
	assert.Equal(t, driver.SearchLeadsByCompanyQuery, m.Queries[2])
}

func TestMemgraphStore_ListStages(t *testing.T) {
	m := &MockDriver{}
	s := newMemgraphStore(t, m)
	m.Results = []neo4j.EagerResult{{
		Keys: []string{"id", "name", "sort_order"},
		Records: []*neo4j.Record{
			{Keys: []string{"id", "name", "sort_order"}, Values: []any{"prospecting", "Prospecting", int64(1)}},
			{Keys: []string{"id", "name", "sort_order"}, Values: []any{"met", "Met", int64(3)}},
		},
	}}

	stages, err := s.ListStages(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []model.Stage{
		{ID: "prospecting", Name: "Prospecting", SortOrder: 1},
		{ID: "met", Name: "Met", SortOrder: 3},
	}, stages)
}

func TestMemgraphStore_DriverError(t *testing.T) {
	m := &MockDriver{}
	s := newMemgraphStore(t, m)
	m.Err = errors.New("bolt down")

	_, err := s.ListLeads(context.Background())
	assert.ErrorContains(t, err, "bolt down")
	assert.Error(t, s.InsertLead(context.Background(), model.Lead{ID: "x"}))
}

func TestMemgraphStore_Close(t *testing.T) {
	m := &MockDriver{}
	s := newMemgraphStore(t, m)

	require.NoError(t, s.Close(context.Background()))
	assert.True(t, m.Closed)
}
