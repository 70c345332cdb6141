package analysis

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/fingerprint"
	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/scoring"
)

// ErrNoFingerprint is returned when a photo has no perceptual hash.
var ErrNoFingerprint = errors.New("photo has no perceptual hash")

// HashSimilarity compares perceptual hashes: 1 - Hamming/64.
type HashSimilarity struct{}

func (HashSimilarity) Similarity(_ context.Context, a, b photo.Photo) (float64, error) {
	if a.PHash == 0 || b.PHash == 0 {
		return 0, ErrNoFingerprint
	}
	return fingerprint.Similarity(a.PHash, b.PHash), nil
}

// Embedder computes an image embedding.
type Embedder interface {
	ComputeEmbedding(ctx context.Context, imageData []byte) (*fingerprint.Embedding, error)
}

// EmbeddingSimilarity compares stored image embeddings by cosine similarity.
// Missing embeddings are computed and saved on first use.
type EmbeddingSimilarity struct {
	store    database.EmbeddingWriter
	embedder Embedder
	images   ImageFetcher
}

func NewEmbeddingSimilarity(store database.EmbeddingWriter, embedder Embedder, images ImageFetcher) *EmbeddingSimilarity {
	return &EmbeddingSimilarity{store: store, embedder: embedder, images: images}
}

func (s *EmbeddingSimilarity) Similarity(ctx context.Context, a, b photo.Photo) (float64, error) {
	for _, p := range []photo.Photo{a, b} {
		if err := s.ensure(ctx, p); err != nil {
			return 0, err
		}
	}
	distance, err := s.store.Distance(ctx, a.ID, b.ID)
	if err != nil {
		return 0, err
	}
	return scoring.Clamp01(1 - distance), nil
}

// Prepare computes the missing embeddings of photos in parallel, so the
// sequential clustering pass only reads from the store.
func (s *EmbeddingSimilarity) Prepare(ctx context.Context, photos []photo.Photo, concurrency int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for _, p := range photos {
		if p.Screenshot {
			continue
		}
		g.Go(func() error {
			return s.ensure(gctx, p)
		})
	}
	return g.Wait()
}

func (s *EmbeddingSimilarity) ensure(ctx context.Context, p photo.Photo) error {
	stored, err := s.store.Get(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load embedding of %s: %w", p.ID, err)
	}
	if stored != nil {
		return nil
	}

	data, err := s.images.FetchImage(ctx, p)
	if err != nil {
		return fmt.Errorf("fetch image of %s: %w", p.ID, err)
	}
	emb, err := s.embedder.ComputeEmbedding(ctx, data)
	if err != nil {
		return fmt.Errorf("embed %s: %w", p.ID, err)
	}
	return s.store.Save(ctx, database.StoredEmbedding{
		PhotoID:   p.ID,
		Embedding: emb.Vector,
		Model:     emb.Model,
		Dim:       emb.Dim,
	})
}
