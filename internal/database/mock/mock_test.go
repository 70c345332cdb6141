package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/database/storetest"
)

func TestMockClusterStore_Contract(t *testing.T) {
	storetest.RunClusterStoreTests(t, NewMockClusterStore())
}

func TestMockClusterStore_ErrorInjection(t *testing.T) {
	store := NewMockClusterStore()
	store.SaveError = errors.New("disk full")

	err := store.SaveClusters(context.Background(), storetest.Fixture())
	assert.EqualError(t, err, "disk full")
	assert.Zero(t, store.SaveCount())
}

func TestMockClusterStore_LoadReturnsCopy(t *testing.T) {
	store := NewMockClusterStore()
	store.SetSnapshot(storetest.Fixture())

	snap, err := store.LoadClusters(context.Background())
	require.NoError(t, err)
	snap.Clusters[0].Photos[0].ID = "mutated"

	again, err := store.LoadClusters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p1", again.Clusters[0].Photos[0].ID)
}

func TestMockEmbeddingStore_Distance(t *testing.T) {
	ctx := context.Background()
	store := NewMockEmbeddingStore()
	require.NoError(t, store.Save(ctx, database.StoredEmbedding{PhotoID: "a", Embedding: []float32{1, 0}}))
	require.NoError(t, store.Save(ctx, database.StoredEmbedding{PhotoID: "b", Embedding: []float32{1, 1}}))

	d, err := store.Distance(ctx, "a", "b")
	require.NoError(t, err)
	assert.InDelta(t, 1-0.7071067811865475, d, 1e-6)

	_, err = store.Distance(ctx, "a", "missing")
	assert.ErrorIs(t, err, database.ErrNotFound)
}
