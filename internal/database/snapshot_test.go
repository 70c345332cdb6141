package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-moments/internal/photo"
)

func TestSourceIDs_Sorted(t *testing.T) {
	ids := SourceIDs([]photo.Photo{{ID: "c"}, {ID: "a"}, {ID: "b"}})
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestSnapshot_SameSource(t *testing.T) {
	snap := &Snapshot{SourcePhotoIDs: []string{"a", "b", "c"}}

	assert.True(t, snap.SameSource([]string{"c", "b", "a"}))
	assert.False(t, snap.SameSource([]string{"a", "b"}))
	assert.False(t, snap.SameSource([]string{"a", "b", "d"}))
	assert.True(t, (&Snapshot{}).SameSource(nil))
}

func TestStoredEmbedding_DistanceTo(t *testing.T) {
	emb := func(v ...float32) StoredEmbedding { return StoredEmbedding{Embedding: v} }

	tests := []struct {
		name     string
		a, b     StoredEmbedding
		expected float64
	}{
		{"same direction", emb(1, 0), emb(2, 0), 0},
		{"orthogonal", emb(1, 0), emb(0, 1), 1},
		{"opposite", emb(1, 0), emb(-1, 0), 2},
		{"zero vector", emb(0, 0), emb(1, 2), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.a.DistanceTo(tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, d, 1e-9)
		})
	}

	_, err := emb(1).DistanceTo(emb(1, 2))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
