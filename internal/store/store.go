// Package store persists leads and pipeline stages.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/cardleads/internal/config"
	"github.com/agenthands/cardleads/internal/core/dedupe"
	"github.com/agenthands/cardleads/internal/core/model"
	"github.com/agenthands/cardleads/internal/driver"
)

var ErrNotFound = errors.New("lead not found")

// Store is the persistence surface the pipeline needs. Implementations do not
// enforce dedupe key uniqueness.
type Store interface {
	dedupe.CandidateFinder

	ListStages(ctx context.Context) ([]model.Stage, error)
	// ListLeads returns every lead, newest first.
	ListLeads(ctx context.Context) ([]model.Lead, error)
	GetLead(ctx context.Context, id string) (model.Lead, error)
	InsertLead(ctx context.Context, lead model.Lead) error
	// UpdateLead applies patch and sets updated_at to at.
	UpdateLead(ctx context.Context, id string, patch model.LeadPatch, at time.Time) (model.Lead, error)
	Close(ctx context.Context) error
}

// Open builds the store named by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Store.Driver) {
	case "", "memory":
		logger.Info("using in-memory lead store", zap.String("snapshot", cfg.Store.SnapshotPath))
		return NewMemoryStore(cfg.Store.SnapshotPath)

	case "postgres":
		if cfg.Store.DSN == "" {
			return nil, fmt.Errorf("postgres store needs a dsn (DATABASE_URL)")
		}
		return NewPostgresStore(ctx, cfg.Store.DSN, logger)

	case "memgraph":
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, logger)
		if err != nil {
			return nil, err
		}
		return NewMemgraphStore(ctx, d, logger)

	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
