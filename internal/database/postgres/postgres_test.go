//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/database/storetest"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg, nil)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestClusterRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	storetest.RunClusterStoreTests(t, NewClusterRepository(pool))
}

func TestEmbeddingRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewEmbeddingRepository(pool)

	vector := func(offset int) []float32 {
		v := make([]float32, 768)
		for i := range v {
			v[i] = float32(i+offset) / 768.0
		}
		return v
	}

	t.Run("SaveAndGet", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, database.StoredEmbedding{PhotoID: "photo123", Embedding: vector(0), Model: "clip"}))

		got, err := repo.Get(ctx, "photo123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "photo123", got.PhotoID)
		assert.Equal(t, "clip", got.Model)
		assert.Equal(t, 768, got.Dim)
		assert.Len(t, got.Embedding, 768)
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.Get(ctx, "nonexistent")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Distance", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, database.StoredEmbedding{PhotoID: "photo124", Embedding: vector(0), Model: "clip"}))
		require.NoError(t, repo.Save(ctx, database.StoredEmbedding{PhotoID: "photo125", Embedding: vector(300), Model: "clip"}))

		same, err := repo.Distance(ctx, "photo123", "photo124")
		require.NoError(t, err)
		assert.InDelta(t, 0, same, 1e-6)

		other, err := repo.Distance(ctx, "photo123", "photo125")
		require.NoError(t, err)
		assert.Greater(t, other, same)

		_, err = repo.Distance(ctx, "photo123", "nonexistent")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	applied, err := pool.MigrationsApplied(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"001_curation.sql", "002_embeddings.sql"}, applied)

	// re-running is a no-op
	require.NoError(t, pool.Migrate(context.Background()))
}
