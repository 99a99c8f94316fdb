package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agenthands/cardleads/internal/core/dedupe"
	"github.com/agenthands/cardleads/internal/core/model"
)

type stageRecord struct {
	ID        string `gorm:"column:id;primaryKey"`
	Name      string `gorm:"column:name;not null"`
	SortOrder int    `gorm:"column:sort_order;not null;index"`
}

func (stageRecord) TableName() string {
	return "pipeline_stages"
}

// leadRecord mirrors the leads table. dedupe_key is indexed but not unique:
// two concurrent saves of the same person can both land.
type leadRecord struct {
	ID            string    `gorm:"column:id;primaryKey"`
	FullName      string    `gorm:"column:full_name"`
	FirstName     string    `gorm:"column:first_name"`
	LastName      string    `gorm:"column:last_name"`
	Company       string    `gorm:"column:company"`
	Title         string    `gorm:"column:title"`
	Email         string    `gorm:"column:email"`
	Phone         string    `gorm:"column:phone"`
	Website       string    `gorm:"column:website"`
	Address       string    `gorm:"column:address"`
	Notes         string    `gorm:"column:notes"`
	StageID       *string   `gorm:"column:stage_id;index"`
	Status        string    `gorm:"column:status;not null;default:active"`
	CardImagePath string    `gorm:"column:card_image_path"`
	RawOCRText    *string   `gorm:"column:raw_ocr_text"`
	DedupeKey     string    `gorm:"column:dedupe_key;index"`
	CreatedAt     time.Time `gorm:"column:created_at;index;autoCreateTime:false"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (leadRecord) TableName() string {
	return "leads"
}

func toRecord(l model.Lead) leadRecord {
	return leadRecord{
		ID:            l.ID,
		FullName:      l.FullName,
		FirstName:     l.FirstName,
		LastName:      l.LastName,
		Company:       l.Company,
		Title:         l.Title,
		Email:         l.Email,
		Phone:         l.Phone,
		Website:       l.Website,
		Address:       l.Address,
		Notes:         l.Notes,
		StageID:       l.StageID,
		Status:        string(l.EffectiveStatus()),
		CardImagePath: l.CardImagePath,
		RawOCRText:    l.RawOCRText,
		DedupeKey:     dedupe.KeyOf(l).String(),
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func (r leadRecord) toLead() model.Lead {
	return model.Lead{
		Draft: model.Draft{
			FullName:      r.FullName,
			FirstName:     r.FirstName,
			LastName:      r.LastName,
			Company:       r.Company,
			Title:         r.Title,
			Email:         r.Email,
			Phone:         r.Phone,
			Website:       r.Website,
			Address:       r.Address,
			Notes:         r.Notes,
			StageID:       r.StageID,
			CardImagePath: r.CardImagePath,
		},
		ID:         r.ID,
		RawOCRText: r.RawOCRText,
		Status:     model.Status(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func toLeads(records []leadRecord) []model.Lead {
	out := make([]model.Lead, 0, len(records))
	for _, r := range records {
		out = append(out, r.toLead())
	}
	return out
}

// escapeLike makes fragment match literally inside a LIKE pattern.
func escapeLike(fragment string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(fragment)
}

type PostgresStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, dsn string, log *zap.Logger) (*PostgresStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s := &PostgresStore{db: db, logger: log}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&stageRecord{}, &leadRecord{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	var count int64
	if err := db.Model(&stageRecord{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count stages: %w", err)
	}
	if count > 0 {
		return nil
	}
	var seed []stageRecord
	for _, st := range model.DefaultStages() {
		seed = append(seed, stageRecord{ID: st.ID, Name: st.Name, SortOrder: st.SortOrder})
	}
	if err := db.Create(&seed).Error; err != nil {
		return fmt.Errorf("failed to seed stages: %w", err)
	}
	s.logger.Info("seeded pipeline stages", zap.Int("count", len(seed)))
	return nil
}

func (s *PostgresStore) ListStages(ctx context.Context) ([]model.Stage, error) {
	var records []stageRecord
	if err := s.db.WithContext(ctx).Order("sort_order asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	out := make([]model.Stage, 0, len(records))
	for _, r := range records {
		out = append(out, model.Stage{ID: r.ID, Name: r.Name, SortOrder: r.SortOrder})
	}
	return out, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	var records []leadRecord
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return toLeads(records), nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (model.Lead, error) {
	var r leadRecord
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Lead{}, ErrNotFound
	}
	if err != nil {
		return model.Lead{}, fmt.Errorf("failed to get lead: %w", err)
	}
	return r.toLead(), nil
}

func (s *PostgresStore) InsertLead(ctx context.Context, lead model.Lead) error {
	r := toRecord(lead)
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, id string, patch model.LeadPatch, at time.Time) (model.Lead, error) {
	updates := map[string]any{"updated_at": at}
	if patch.StageID != nil {
		updates["stage_id"] = *patch.StageID
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}

	res := s.db.WithContext(ctx).Model(&leadRecord{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return model.Lead{}, fmt.Errorf("failed to update lead: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Lead{}, ErrNotFound
	}
	return s.GetLead(ctx, id)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) ([]model.Lead, error) {
	var records []leadRecord
	err := s.db.WithContext(ctx).
		Where("lower(trim(email)) = ?", dedupe.NormalizeEmail(email)).
		Order("created_at desc").
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find lead by email: %w", err)
	}
	return toLeads(records), nil
}

func (s *PostgresStore) SearchByPhone(ctx context.Context, fragment string, limit int) ([]model.Lead, error) {
	return s.search(ctx, "phone LIKE ?", fragment, limit)
}

func (s *PostgresStore) SearchByCompany(ctx context.Context, fragment string, limit int) ([]model.Lead, error) {
	return s.search(ctx, "company ILIKE ?", fragment, limit)
}

func (s *PostgresStore) search(ctx context.Context, clause, fragment string, limit int) ([]model.Lead, error) {
	var records []leadRecord
	err := s.db.WithContext(ctx).
		Where(clause, "%"+escapeLike(fragment)+"%").
		Order("created_at desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search leads: %w", err)
	}
	return toLeads(records), nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
