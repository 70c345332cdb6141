package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/photo-moments/internal/database"
)

// EmbeddingRepository provides PostgreSQL-backed embedding storage
type EmbeddingRepository struct {
	pool *Pool
}

// NewEmbeddingRepository creates a new PostgreSQL embedding repository
func NewEmbeddingRepository(pool *Pool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

// Get retrieves an embedding by photo id, returns nil if not found
func (r *EmbeddingRepository) Get(ctx context.Context, photoID string) (*database.StoredEmbedding, error) {
	var emb database.StoredEmbedding
	var vec pgvector.Vector

	err := r.pool.QueryRow(ctx, `
		SELECT photo_id, embedding, model, dim, created_at
		FROM photo_embeddings
		WHERE photo_id = $1
	`, photoID).Scan(&emb.PhotoID, &vec, &emb.Model, &emb.Dim, &emb.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	emb.Embedding = vec.Slice()
	return &emb, nil
}

// Distance returns the cosine distance between two stored embeddings
func (r *EmbeddingRepository) Distance(ctx context.Context, photoA, photoB string) (float64, error) {
	var distance float64
	err := r.pool.QueryRow(ctx, `
		SELECT a.embedding <=> b.embedding
		FROM photo_embeddings a, photo_embeddings b
		WHERE a.photo_id = $1 AND b.photo_id = $2
	`, photoA, photoB).Scan(&distance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("embedding for %s/%s: %w", photoA, photoB, database.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query embedding distance: %w", err)
	}
	return distance, nil
}

// Save stores an embedding, replacing an existing one for the same photo
func (r *EmbeddingRepository) Save(ctx context.Context, emb database.StoredEmbedding) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO photo_embeddings (photo_id, embedding, model, dim, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (photo_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			dim = EXCLUDED.dim,
			created_at = NOW()
	`, emb.PhotoID, pgvector.NewVector(emb.Embedding), emb.Model, len(emb.Embedding))
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}
