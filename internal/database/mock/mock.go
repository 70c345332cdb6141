// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

// MockClusterStore is an in-memory implementation of database.ClusterStore
type MockClusterStore struct {
	mu       sync.RWMutex
	snapshot *database.Snapshot
	saves    int

	// Error injection
	SaveError error
	LoadError error
}

// NewMockClusterStore creates a new empty mock cluster store
func NewMockClusterStore() *MockClusterStore {
	return &MockClusterStore{}
}

// SaveClusters replaces the stored snapshot
func (m *MockClusterStore) SaveClusters(ctx context.Context, snap database.Snapshot) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = copySnapshot(&snap)
	m.saves++
	return nil
}

// LoadClusters returns the stored snapshot
func (m *MockClusterStore) LoadClusters(ctx context.Context) (*database.Snapshot, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return nil, database.ErrNotFound
	}
	return copySnapshot(m.snapshot), nil
}

// HasEverAnalyzed reports whether a snapshot flagged as analyzed was saved
func (m *MockClusterStore) HasEverAnalyzed(ctx context.Context) (bool, error) {
	if m.LoadError != nil {
		return false, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot != nil && m.snapshot.HasEverAnalyzed, nil
}

// SetSnapshot stores a snapshot directly, bypassing error injection
func (m *MockClusterStore) SetSnapshot(snap database.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = copySnapshot(&snap)
}

// SaveCount returns how many times SaveClusters succeeded
func (m *MockClusterStore) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func copySnapshot(s *database.Snapshot) *database.Snapshot {
	out := *s
	out.SourcePhotoIDs = append([]string(nil), s.SourcePhotoIDs...)
	out.Clusters = make([]photo.PhotoCluster, len(s.Clusters))
	for i, c := range s.Clusters {
		c.Photos = append([]photo.Photo(nil), c.Photos...)
		out.Clusters[i] = c
	}
	return &out
}

// MockEmbeddingStore is an in-memory implementation of database.EmbeddingWriter
type MockEmbeddingStore struct {
	mu         sync.RWMutex
	embeddings map[string]*database.StoredEmbedding

	// Error injection
	GetError  error
	SaveError error
}

// NewMockEmbeddingStore creates a new mock embedding store
func NewMockEmbeddingStore() *MockEmbeddingStore {
	return &MockEmbeddingStore{
		embeddings: make(map[string]*database.StoredEmbedding),
	}
}

// Get retrieves an embedding by photo id
func (m *MockEmbeddingStore) Get(ctx context.Context, photoID string) (*database.StoredEmbedding, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.embeddings[photoID], nil
}

// Distance computes the cosine distance between two stored embeddings
func (m *MockEmbeddingStore) Distance(ctx context.Context, photoA, photoB string) (float64, error) {
	if m.GetError != nil {
		return 0, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, okA := m.embeddings[photoA]
	b, okB := m.embeddings[photoB]
	if !okA || !okB {
		return 0, fmt.Errorf("embedding for %s/%s: %w", photoA, photoB, database.ErrNotFound)
	}
	return a.DistanceTo(*b)
}

// Save stores an embedding
func (m *MockEmbeddingStore) Save(ctx context.Context, emb database.StoredEmbedding) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[emb.PhotoID] = &emb
	return nil
}
