package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ClusterStore persists the cluster list of the last analysis.
type ClusterStore interface {
	// SaveClusters replaces the stored snapshot
	SaveClusters(ctx context.Context, snap Snapshot) error
	// LoadClusters returns the stored snapshot, ErrNotFound if nothing was saved yet
	LoadClusters(ctx context.Context) (*Snapshot, error)
	// HasEverAnalyzed reports whether an analysis was ever completed
	HasEverAnalyzed(ctx context.Context) (bool, error)
}

// EmbeddingReader provides read-only access to image embeddings
type EmbeddingReader interface {
	// Get retrieves an embedding by photo id, returns nil if not found
	Get(ctx context.Context, photoID string) (*StoredEmbedding, error)
	// Distance returns the cosine distance between two stored embeddings
	Distance(ctx context.Context, photoA, photoB string) (float64, error)
}

// EmbeddingWriter provides write access to image embeddings
type EmbeddingWriter interface {
	EmbeddingReader

	// Save stores an embedding, replacing an existing one for the same photo
	Save(ctx context.Context, emb StoredEmbedding) error
}
