package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sectionmesh/node/internal/store"
)

func TestMemoryStoreSaveLoadDelete(t *testing.T) {
	s, err := store.NewStore(store.DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	exists, err := s.Has(ctx, "node-a")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Save(ctx, "node-a", []byte("paused state bytes")))

	exists, err = s.Has(ctx, "node-a")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := s.Load(ctx, "node-a")
	require.NoError(t, err)
	assert.Equal(t, []byte("paused state bytes"), data)

	require.NoError(t, s.Delete(ctx, "node-a"))
	_, err = s.Load(ctx, "node-a")
	assert.True(t, store.IsNotFound(err))
}

func TestMemoryStoreRejectsOversizedSnapshot(t *testing.T) {
	cfg := store.DefaultConfig()
	cfg.MaxSnapshotSize = 4
	s, err := store.NewStore(cfg)
	require.NoError(t, err)
	defer s.Close()

	err = s.Save(context.Background(), "node-a", []byte("too big"))
	assert.ErrorIs(t, err, store.ErrTooLarge)
}

func TestMemoryStoreClosedRejectsOperations(t *testing.T) {
	s, err := store.NewStore(store.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Load(context.Background(), "node-a")
	assert.ErrorIs(t, err, store.ErrClosed)
}
