package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agenthands/cardleads/internal/core/dedupe"
	"github.com/agenthands/cardleads/internal/core/model"
)

type snapshot struct {
	Stages []model.Stage `json:"stages"`
	Leads  []model.Lead  `json:"leads"`
}

// MemoryStore keeps everything in process. With a snapshot path it reloads
// from and rewrites a JSON file on every change.
type MemoryStore struct {
	mu     sync.RWMutex
	stages []model.Stage
	leads  []model.Lead
	path   string
}

func NewMemoryStore(path string) (*MemoryStore, error) {
	s := &MemoryStore{path: path, stages: model.DefaultStages()}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	if len(snap.Stages) > 0 {
		s.stages = snap.Stages
	}
	s.leads = snap.Leads
	return s, nil
}

func (s *MemoryStore) ListStages(ctx context.Context) ([]model.Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]model.Stage(nil), s.stages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *MemoryStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst(), nil
}

func (s *MemoryStore) GetLead(ctx context.Context, id string) (model.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.leads[i], nil
	}
	return model.Lead{}, ErrNotFound
}

func (s *MemoryStore) InsertLead(ctx context.Context, lead model.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(lead.ID) >= 0 {
		return fmt.Errorf("lead %s already exists", lead.ID)
	}
	next := append(append(make([]model.Lead, 0, len(s.leads)+1), s.leads...), lead)
	if err := s.persist(next); err != nil {
		return err
	}
	s.leads = next
	return nil
}

func (s *MemoryStore) UpdateLead(ctx context.Context, id string, patch model.LeadPatch, at time.Time) (model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Lead{}, ErrNotFound
	}
	l := s.leads[i]
	if patch.StageID != nil {
		stage := *patch.StageID
		l.StageID = &stage
	}
	if patch.Status != nil {
		l.Status = *patch.Status
	}
	if patch.Notes != nil {
		l.Notes = *patch.Notes
	}
	l.UpdatedAt = at

	next := append([]model.Lead(nil), s.leads...)
	next[i] = l
	if err := s.persist(next); err != nil {
		return model.Lead{}, err
	}
	s.leads = next
	return l, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) ([]model.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := dedupe.NormalizeEmail(email)
	for _, l := range s.newestFirst() {
		if dedupe.NormalizeEmail(l.Email) == want {
			return []model.Lead{l}, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) SearchByPhone(ctx context.Context, fragment string, limit int) ([]model.Lead, error) {
	return s.search(limit, func(l model.Lead) bool {
		return strings.Contains(l.Phone, fragment)
	}), nil
}

func (s *MemoryStore) SearchByCompany(ctx context.Context, fragment string, limit int) ([]model.Lead, error) {
	needle := strings.ToLower(fragment)
	return s.search(limit, func(l model.Lead) bool {
		return strings.Contains(strings.ToLower(l.Company), needle)
	}), nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) search(limit int, match func(model.Lead) bool) []model.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Lead
	for _, l := range s.newestFirst() {
		if limit > 0 && len(out) == limit {
			break
		}
		if match(l) {
			out = append(out, l)
		}
	}
	return out
}

func (s *MemoryStore) newestFirst() []model.Lead {
	out := append([]model.Lead(nil), s.leads...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) indexOf(id string) int {
	for i := range s.leads {
		if s.leads[i].ID == id {
			return i
		}
	}
	return -1
}

// persist writes leads as the new snapshot. Callers hold the write lock and
// replace s.leads only after it succeeds, so a failed write changes nothing.
func (s *MemoryStore) persist(leads []model.Lead) error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(snapshot{Stages: s.stages, Leads: leads}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
