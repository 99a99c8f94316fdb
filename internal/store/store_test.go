package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cardleads/internal/config"
)

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), &config.Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(context.Background(), &config.Config{Store: config.StoreConfig{Driver: "postgres"}}, nil)
	assert.Error(t, err)

	_, err = Open(context.Background(), &config.Config{Store: config.StoreConfig{Driver: "sqlite"}}, nil)
	assert.Error(t, err)
}
