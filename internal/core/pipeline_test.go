package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cardleads/internal/config"
	"github.com/agenthands/cardleads/internal/core/extraction"
	"github.com/agenthands/cardleads/internal/core/model"
	"github.com/agenthands/cardleads/internal/export"
	"github.com/agenthands/cardleads/internal/ocr"
	"github.com/agenthands/cardleads/internal/store"
)

var t0 = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	p      *Pipeline
	store  *store.MemoryStore
	ocr    *MockOCR
	llm    *extraction.MockLLMClient
	images *MockImages
}

// newFixture wires a pipeline with deterministic ids and a clock that
// advances one minute per call.
func newFixture(t *testing.T, withLLM bool) *fixture {
	t.Helper()
	st, err := store.NewMemoryStore("")
	require.NoError(t, err)

	f := &fixture{
		store:  st,
		ocr:    &MockOCR{Text: ocr.MockText},
		images: &MockImages{Files: map[string][]byte{"cards/jane.jpg": []byte("jpeg")}},
	}
	var ex *extraction.Extractor
	if withLLM {
		f.llm = &extraction.MockLLMClient{}
		ex = extraction.NewExtractor(f.llm, config.ExtractionConfig{}, nil)
	} else {
		ex = extraction.NewExtractor(nil, config.ExtractionConfig{}, nil)
	}
	f.p = NewPipeline(st, f.images, f.ocr, ex, nil)

	counter := 0
	f.p.UUIDGenerator = func() string {
		counter++
		return fmt.Sprintf("uuid-%d", counter)
	}
	tick := 0
	f.p.Now = func() time.Time {
		tick++
		return t0.Add(time.Duration(tick) * time.Minute)
	}
	return f
}

func stage(id string) *string { return &id }

func TestExtract_HeuristicCard(t *testing.T) {
	f := newFixture(t, false)

	res := f.p.Extract(context.Background(), "cards/jane.jpg")

	assert.Nil(t, res.Error)
	assert.Equal(t, ocr.MockText, res.RawOCRText)
	assert.Equal(t, "Jane Doe", res.Extracted.FullName)
	assert.Equal(t, "Acme Staffing", res.Extracted.Company)
	assert.Equal(t, "jane.doe@acmestaffing.com", res.Extracted.Email)
	assert.Equal(t, "cards/jane.jpg", res.Extracted.CardImagePath)
	assert.Equal(t, "prospecting", res.Extracted.Stage())
	assert.NotContains(t, res.UncertainFields, "full_name")
	assert.NotContains(t, res.UncertainFields, "email")
	assert.NotContains(t, res.UncertainFields, "website")
}

func TestExtract_LLMFields(t *testing.T) {
	f := newFixture(t, true)
	f.llm.Response = `{"full_name": "Cher", "email": "cher@@music", "company": null}`

	res := f.p.Extract(context.Background(), "cards/jane.jpg")

	assert.Nil(t, res.Error)
	assert.Equal(t, "Cher", res.Extracted.FullName)
	assert.Equal(t, []string{"full_name", "email"}, res.UncertainFields)
	assert.Contains(t, f.llm.LastPrompt, "Jane Doe")
}

func TestExtract_MissingImageDegrades(t *testing.T) {
	f := newFixture(t, false)

	res := f.p.Extract(context.Background(), "cards/missing.jpg")

	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "card image")
	assert.Equal(t, model.EmptyDraft("cards/missing.jpg"), res.Extracted)
	assert.Equal(t, []string{"full_name", "company", "email", "phone"}, res.UncertainFields)
	assert.Equal(t, 0, f.ocr.Calls)
}

func TestExtract_LLMFailureKeepsOCRText(t *testing.T) {
	f := newFixture(t, true)
	f.llm.Err = errors.New("upstream 503")

	res := f.p.Extract(context.Background(), "cards/jane.jpg")

	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "upstream 503")
	assert.Equal(t, ocr.MockText, res.RawOCRText)
	assert.Equal(t, "", res.Extracted.FullName)
}

func TestExtractImage(t *testing.T) {
	f := newFixture(t, false)

	res := f.p.ExtractImage(context.Background(), []byte("jpeg"))
	assert.Nil(t, res.Error)
	assert.Equal(t, "Jane Doe", res.Extracted.FullName)

	f.ocr.Err = errors.New("blurry")
	res = f.p.ExtractImage(context.Background(), []byte("jpeg"))
	require.NotNil(t, res.Error)
	assert.Len(t, res.UncertainFields, 4)
}

func TestSave_InsertsActiveLead(t *testing.T) {
	f := newFixture(t, false)
	draft := model.Draft{
		FullName: "  Jane Doe ",
		Email:    "Jane@Acme.com",
		StageID:  stage("met"),
	}

	res, err := f.p.Save(context.Background(), draft, "Jane Doe\nAcme", nil)

	require.NoError(t, err)
	assert.Equal(t, "uuid-1", res.Lead.ID)
	assert.Equal(t, model.StatusActive, res.Lead.Status)
	assert.Equal(t, "Jane Doe", res.Lead.FullName)
	assert.Equal(t, "Jane", res.Lead.FirstName)
	assert.Equal(t, "Doe", res.Lead.LastName)
	require.NotNil(t, res.Lead.RawOCRText)
	assert.Equal(t, t0.Add(time.Minute), res.Lead.CreatedAt)
	assert.Empty(t, res.UncertainFields)

	stored, err := f.store.GetLead(context.Background(), "uuid-1")
	require.NoError(t, err)
	assert.Equal(t, "met", stored.Stage())
}

func TestSave_RequiresKnownStage(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.p.Save(context.Background(), model.Draft{FullName: "Jane Doe"}, "", nil)
	assert.ErrorIs(t, err, ErrStageRequired)

	_, err = f.p.Save(context.Background(), model.Draft{FullName: "Jane Doe", StageID: stage("  ")}, "", nil)
	assert.ErrorIs(t, err, ErrStageRequired)

	_, err = f.p.Save(context.Background(), model.Draft{FullName: "Jane Doe", StageID: stage("won")}, "", nil)
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestSave_Duplicate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	first, err := f.p.Save(ctx, model.Draft{FullName: "Jane Doe", Email: "jane@acme.com", StageID: stage("met")}, "", nil)
	require.NoError(t, err)

	_, err = f.p.Save(ctx, model.Draft{FullName: "J. Doe", Email: " JANE@ACME.COM ", StageID: stage("prospecting")}, "", nil)

	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, first.Lead.ID, dup.Existing.ID)
	assert.Equal(t, "email:jane@acme.com", dup.Key.String())

	leads, err := f.store.ListLeads(ctx)
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestSave_DuplicateByPhoneAndName(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.p.Save(ctx, model.Draft{FirstName: "Jane", LastName: "Doe", Phone: "(555) 123-4567", StageID: stage("met")}, "", nil)
	require.NoError(t, err)

	_, err = f.p.Save(ctx, model.Draft{FullName: "jane doe", Phone: "555.123.4567", StageID: stage("met")}, "", nil)
	var dup *DuplicateError
	assert.True(t, errors.As(err, &dup))
}

func TestSave_KeylessNeverDuplicates(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.p.Save(ctx, model.Draft{Company: "Acme", StageID: stage("met")}, "", nil)
		require.NoError(t, err)
	}
	leads, err := f.p.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, leads, 2)
}

func TestList_DedupesAndFilters(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	base := t0

	// Two rows that share a key; store-level inserts bypass the save check.
	require.NoError(t, f.store.InsertLead(ctx, model.Lead{ID: "old", CreatedAt: base, UpdatedAt: base.Add(3 * time.Hour),
		Draft: model.Draft{FullName: "Jane Doe", Email: "jane@acme.com", Company: "Acme", StageID: stage("met")}}))
	require.NoError(t, f.store.InsertLead(ctx, model.Lead{ID: "new", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour),
		Draft: model.Draft{FullName: "Jane Doe", Email: "JANE@acme.com", StageID: stage("prospecting")}}))
	require.NoError(t, f.store.InsertLead(ctx, model.Lead{ID: "bo", CreatedAt: base.Add(2 * time.Hour),
		Draft: model.Draft{FullName: "Bo Li", Company: "Globex", StageID: stage("met")}}))

	all, err := f.p.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "bo", all[0].ID)
	assert.Equal(t, "old", all[1].ID)

	met, err := f.p.List(ctx, Filter{StageID: "met", Query: "ACME"})
	require.NoError(t, err)
	require.Len(t, met, 1)
	assert.Equal(t, "old", met[0].ID)

	none, err := f.p.List(ctx, Filter{StageID: "prospecting"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdates(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	saved, err := f.p.Save(ctx, model.Draft{FullName: "Jane Doe", Email: "jane@acme.com", StageID: stage("met")}, "", nil)
	require.NoError(t, err)
	id := saved.Lead.ID

	got, err := f.p.UpdateStage(ctx, id, "closed")
	require.NoError(t, err)
	assert.Equal(t, "closed", got.Stage())
	assert.True(t, got.UpdatedAt.After(saved.Lead.UpdatedAt))

	_, err = f.p.UpdateStage(ctx, id, "won")
	assert.ErrorIs(t, err, ErrUnknownStage)

	got, err = f.p.UpdateStatus(ctx, id, "do_not_contact")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDoNotContact, got.Status)

	_, err = f.p.UpdateStatus(ctx, id, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	got, err = f.p.UpdateNotes(ctx, id, "met at expo")
	require.NoError(t, err)
	assert.Equal(t, "met at expo", got.Notes)

	_, err = f.p.UpdateNotes(ctx, "missing", "x")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.p.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExport(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	_, err := f.p.Save(ctx, model.Draft{FullName: "Jane Doe", Email: "jane@acme.com", StageID: stage("met")}, "", nil)
	require.NoError(t, err)

	rows, err := f.p.Export(ctx, Filter{}, export.SheetsDateLayout)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Met", rows[0][9])
	assert.Equal(t, "2025-04-01", rows[0][11])
	assert.Equal(t, export.Source, rows[0][12])
}

func TestSave_MergesReviewFlags(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.p.Save(context.Background(),
		model.Draft{FullName: "Cher", Email: "cher@music.com", StageID: stage("met")},
		"", []string{"phone", "full_name"})

	require.NoError(t, err)
	assert.Equal(t, []string{"phone", "full_name"}, res.UncertainFields)
}

func TestSyncRows_FiltersStageBeforeDedupe(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.store.InsertLead(ctx, model.Lead{ID: "old", CreatedAt: t0, UpdatedAt: t0,
		Draft: model.Draft{FullName: "Jane Old", Email: "j@x.com", StageID: stage("prospecting")}}))
	require.NoError(t, f.store.InsertLead(ctx, model.Lead{ID: "new", CreatedAt: t0.Add(time.Hour), UpdatedAt: t0.Add(time.Hour),
		Draft: model.Draft{FullName: "Jane New", Email: "j@x.com", StageID: stage("met")}}))

	rows, err := f.p.SyncRows(ctx, "prospecting", export.SheetsDateLayout)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jane Old", rows[0][0])
	assert.Equal(t, "Prospecting", rows[0][9])

	all, err := f.p.SyncRows(ctx, "", export.SheetsDateLayout)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Jane New", all[0][0])

	// Export keeps the leads-page order: dedupe first, then filter.
	exported, err := f.p.Export(ctx, Filter{StageID: "prospecting"}, export.SheetsDateLayout)
	require.NoError(t, err)
	assert.Empty(t, exported)
}
