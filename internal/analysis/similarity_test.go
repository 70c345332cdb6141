package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-moments/internal/database/mock"
	"github.com/kozaktomas/photo-moments/internal/fingerprint"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

func TestHashSimilarity(t *testing.T) {
	ctx := context.Background()
	sim, err := HashSimilarity{}.Similarity(ctx, photo.Photo{PHash: 0xF0F0}, photo.Photo{PHash: 0xF0F0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, sim)

	sim, err = HashSimilarity{}.Similarity(ctx, photo.Photo{PHash: 0xFF}, photo.Photo{PHash: 0xFF00})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, sim, 1e-9)

	_, err = HashSimilarity{}.Similarity(ctx, photo.Photo{PHash: 1}, photo.Photo{})
	assert.ErrorIs(t, err, ErrNoFingerprint)
}

type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) ComputeEmbedding(_ context.Context, data []byte) (*fingerprint.Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	v, ok := f.vectors[string(data)]
	if !ok {
		return nil, errors.New("embedding server unavailable")
	}
	return &fingerprint.Embedding{Vector: v, Model: "clip", Dim: len(v)}, nil
}

func embeddingFixture() (*EmbeddingSimilarity, *mock.MockEmbeddingStore, *fakeEmbedder) {
	images := &fakeImages{data: map[string][]byte{
		"a": []byte("beach-1"),
		"b": []byte("beach-2"),
		"c": []byte("dinner"),
		"x": []byte("broken"),
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"beach-1": {1, 0, 0},
		"beach-2": {1, 0, 0},
		"dinner":  {0, 1, 0},
	}}
	store := mock.NewMockEmbeddingStore()
	return NewEmbeddingSimilarity(store, embedder, images), store, embedder
}

func TestEmbeddingSimilarity(t *testing.T) {
	ctx := context.Background()
	sim, store, embedder := embeddingFixture()

	got, err := sim.Similarity(ctx, photo.Photo{ID: "a"}, photo.Photo{ID: "b"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-6)

	got, err = sim.Similarity(ctx, photo.Photo{ID: "b"}, photo.Photo{ID: "c"})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-6)

	assert.Equal(t, 3, embedder.calls, "stored embeddings are reused")
	stored, err := store.Get(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "clip", stored.Model)
}

func TestEmbeddingSimilarity_Errors(t *testing.T) {
	ctx := context.Background()

	sim, _, _ := embeddingFixture()
	_, err := sim.Similarity(ctx, photo.Photo{ID: "a"}, photo.Photo{ID: "x"})
	assert.ErrorContains(t, err, "embed x")

	sim, store, _ := embeddingFixture()
	store.GetError = errors.New("db down")
	_, err = sim.Similarity(ctx, photo.Photo{ID: "a"}, photo.Photo{ID: "b"})
	assert.ErrorContains(t, err, "db down")
}

func TestEmbeddingSimilarity_Prepare(t *testing.T) {
	ctx := context.Background()
	sim, store, embedder := embeddingFixture()

	photos := []photo.Photo{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "x", Screenshot: true}}
	require.NoError(t, sim.Prepare(ctx, photos, 2))
	assert.Equal(t, 3, embedder.calls)

	for _, id := range []string{"a", "b", "c"} {
		emb, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, emb, id)
	}

	err := sim.Prepare(ctx, []photo.Photo{{ID: "x"}}, 2)
	assert.Error(t, err)
}
