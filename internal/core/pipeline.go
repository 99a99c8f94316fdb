package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenthands/cardleads/internal/core/dedupe"
	"github.com/agenthands/cardleads/internal/core/extraction"
	"github.com/agenthands/cardleads/internal/core/model"
	"github.com/agenthands/cardleads/internal/core/normalize"
	"github.com/agenthands/cardleads/internal/export"
	"github.com/agenthands/cardleads/internal/images"
	"github.com/agenthands/cardleads/internal/ocr"
	"github.com/agenthands/cardleads/internal/store"
)

var (
	ErrStageRequired = errors.New("pick a stage before saving")
	ErrUnknownStage  = errors.New("unknown pipeline stage")
	ErrInvalidStatus = errors.New("invalid lead status")
)

// DuplicateError reports that a save matched an existing lead. It is an
// expected outcome, not a storage failure.
type DuplicateError struct {
	Existing model.Lead
	Key      dedupe.Key
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("lead already exists (%s): %s", e.Existing.ID, e.Key)
}

// Filter narrows List and Export. Empty fields match everything.
type Filter struct {
	StageID string
	Query   string
}

// Pipeline ties card capture to the lead store.
type Pipeline struct {
	Store     store.Store
	Images    images.Store
	OCR       ocr.Provider
	Extractor *extraction.Extractor
	Logger    *zap.Logger

	UUIDGenerator func() string
	Now           func() time.Time
}

func NewPipeline(st store.Store, imgs images.Store, ocrProvider ocr.Provider, extractor *extraction.Extractor, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		Store:         st,
		Images:        imgs,
		OCR:           ocrProvider,
		Extractor:     extractor,
		Logger:        logger,
		UUIDGenerator: uuid.NewString,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// Extract reads the stored card image and returns a reviewed-ready draft.
// It never fails: on error the draft is empty, the core fields are flagged
// and Error carries the message.
func (p *Pipeline) Extract(ctx context.Context, cardImagePath string) model.ExtractResult {
	rawText, draft, err := p.extract(ctx, cardImagePath)
	if err != nil {
		p.Logger.Warn("extraction failed", zap.String("card_image_path", cardImagePath), zap.Error(err))
		msg := err.Error()
		return model.ExtractResult{
			Extracted:       model.EmptyDraft(cardImagePath),
			UncertainFields: normalize.FailedExtractionFields(),
			RawOCRText:      rawText,
			Error:           &msg,
		}
	}

	result := normalize.NormalizeAndValidate(draft)
	extracted := result.Lead
	if extracted.StageID == nil {
		if first, err := p.firstStage(ctx); err == nil && first != "" {
			extracted.StageID = &first
		}
	}
	return model.ExtractResult{
		Extracted:       extracted,
		UncertainFields: result.UncertainFields,
		RawOCRText:      rawText,
	}
}

// ExtractImage runs OCR and field extraction on image bytes that are not in
// the image store. The draft's card path is left empty.
func (p *Pipeline) ExtractImage(ctx context.Context, image []byte) model.ExtractResult {
	rawText, err := p.OCR.Recognize(ctx, image)
	if err != nil {
		msg := fmt.Sprintf("failed to recognize card: %v", err)
		return model.ExtractResult{
			Extracted:       model.EmptyDraft(""),
			UncertainFields: normalize.FailedExtractionFields(),
			Error:           &msg,
		}
	}
	contact, err := p.Extractor.Extract(ctx, rawText)
	if err != nil {
		msg := err.Error()
		return model.ExtractResult{
			Extracted:       model.EmptyDraft(""),
			UncertainFields: normalize.FailedExtractionFields(),
			RawOCRText:      rawText,
			Error:           &msg,
		}
	}
	result := normalize.NormalizeAndValidate(contact.Apply(model.EmptyDraft("")))
	return model.ExtractResult{
		Extracted:       result.Lead,
		UncertainFields: result.UncertainFields,
		RawOCRText:      rawText,
	}
}

func (p *Pipeline) extract(ctx context.Context, cardImagePath string) (string, model.Draft, error) {
	data, err := p.Images.Fetch(ctx, cardImagePath)
	if err != nil {
		return "", model.Draft{}, fmt.Errorf("failed to download card image: %w", err)
	}
	rawText, err := p.OCR.Recognize(ctx, data)
	if err != nil {
		return "", model.Draft{}, fmt.Errorf("failed to recognize card: %w", err)
	}
	contact, err := p.Extractor.Extract(ctx, rawText)
	if err != nil {
		return rawText, model.Draft{}, err
	}
	return rawText, contact.Apply(model.EmptyDraft(cardImagePath)), nil
}

// SaveResult is the stored lead plus the uncertainty flags of the final draft.
type SaveResult struct {
	Lead            model.Lead `json:"lead"`
	UncertainFields []string   `json:"uncertain_fields"`
}

// Save normalizes draft, checks for an existing lead with the same dedupe key
// and inserts a new active lead. reviewUncertain is the set flagged when the
// draft was extracted; it is merged with the flags of the final draft. The
// check and the insert are separate store calls, so two concurrent saves of
// one card can both succeed.
func (p *Pipeline) Save(ctx context.Context, draft model.Draft, rawOCRText string, reviewUncertain []string) (SaveResult, error) {
	result := normalize.NormalizeAndValidate(draft)
	d := result.Lead

	stageID := strings.TrimSpace(d.Stage())
	if stageID == "" {
		return SaveResult{}, ErrStageRequired
	}
	if err := p.checkStage(ctx, stageID); err != nil {
		return SaveResult{}, err
	}
	d.StageID = &stageID

	key := dedupe.BuildKey(d.Identity())
	existing, err := dedupe.FindDuplicate(ctx, p.Store, key)
	if err != nil {
		return SaveResult{}, err
	}
	if existing != nil {
		return SaveResult{}, &DuplicateError{Existing: *existing, Key: key}
	}

	now := p.Now()
	lead := model.Lead{
		Draft:     d,
		ID:        p.UUIDGenerator(),
		Status:    model.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if raw := strings.TrimSpace(rawOCRText); raw != "" {
		lead.RawOCRText = &rawOCRText
	}
	if err := p.Store.InsertLead(ctx, lead); err != nil {
		return SaveResult{}, fmt.Errorf("failed to save lead: %w", err)
	}

	p.Logger.Info("lead saved",
		zap.String("id", lead.ID),
		zap.String("stage_id", stageID),
		zap.String("key_kind", key.Kind.String()))
	return SaveResult{Lead: lead, UncertainFields: normalize.MergeUncertain(reviewUncertain, result.UncertainFields)}, nil
}

func (p *Pipeline) Stages(ctx context.Context) ([]model.Stage, error) {
	stages, err := p.Store.ListStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stages: %w", err)
	}
	return stages, nil
}

// List returns the deduplicated leads matching f, newest first.
func (p *Pipeline) List(ctx context.Context, f Filter) ([]model.Lead, error) {
	all, err := p.Store.ListLeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]model.Lead, 0, len(all))
	for _, l := range dedupe.DedupeLeads(all) {
		if f.StageID != "" && l.Stage() != f.StageID {
			continue
		}
		if query != "" && !matchesQuery(l, query) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func matchesQuery(l model.Lead, query string) bool {
	for _, field := range []string{l.FullName, l.Company, l.Email} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func (p *Pipeline) Get(ctx context.Context, id string) (model.Lead, error) {
	return p.Store.GetLead(ctx, id)
}

func (p *Pipeline) UpdateStage(ctx context.Context, id, stageID string) (model.Lead, error) {
	stageID = strings.TrimSpace(stageID)
	if stageID == "" {
		return model.Lead{}, ErrStageRequired
	}
	if err := p.checkStage(ctx, stageID); err != nil {
		return model.Lead{}, err
	}
	return p.Store.UpdateLead(ctx, id, model.LeadPatch{StageID: &stageID}, p.Now())
}

func (p *Pipeline) UpdateStatus(ctx context.Context, id, status string) (model.Lead, error) {
	s, err := model.ParseStatus(status)
	if err != nil {
		return model.Lead{}, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	return p.Store.UpdateLead(ctx, id, model.LeadPatch{Status: &s}, p.Now())
}

func (p *Pipeline) UpdateNotes(ctx context.Context, id, notes string) (model.Lead, error) {
	return p.Store.UpdateLead(ctx, id, model.LeadPatch{Notes: &notes}, p.Now())
}

// Export renders the filtered, deduplicated leads as spreadsheet rows.
func (p *Pipeline) Export(ctx context.Context, f Filter, dateLayout string) ([][]string, error) {
	stages, err := p.Stages(ctx)
	if err != nil {
		return nil, err
	}
	leads, err := p.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return export.Rows(leads, export.StageNames(stages), dateLayout), nil
}

// SyncRows renders the rows pushed to the spreadsheet. Unlike Export it
// narrows to the stage before deduplicating, so a person whose newer copy sits
// in another stage still gets a row in this one.
func (p *Pipeline) SyncRows(ctx context.Context, stageID, dateLayout string) ([][]string, error) {
	stages, err := p.Stages(ctx)
	if err != nil {
		return nil, err
	}
	all, err := p.Store.ListLeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}

	inStage := all
	if stageID != "" {
		inStage = make([]model.Lead, 0, len(all))
		for _, l := range all {
			if l.Stage() == stageID {
				inStage = append(inStage, l)
			}
		}
	}
	return export.Rows(dedupe.DedupeLeads(inStage), export.StageNames(stages), dateLayout), nil
}

func (p *Pipeline) firstStage(ctx context.Context) (string, error) {
	stages, err := p.Store.ListStages(ctx)
	if err != nil {
		return "", err
	}
	if len(stages) == 0 {
		return "", nil
	}
	return stages[0].ID, nil
}

func (p *Pipeline) checkStage(ctx context.Context, stageID string) error {
	stages, err := p.Stages(ctx)
	if err != nil {
		return err
	}
	for _, s := range stages {
		if s.ID == stageID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownStage, stageID)
}
