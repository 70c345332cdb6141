// Package storetest holds behaviour tests shared by every ClusterStore backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

// Fixture returns a two-cluster snapshot, the second cluster manually pinned.
func Fixture() database.Snapshot {
	base := time.Date(2024, 8, 3, 18, 15, 0, 0, time.UTC)
	first := []photo.Photo{
		{ID: "p1", TakenAt: base, Technical: &photo.TechnicalQuality{Overall: 0.7},
			Faces: photo.ScoredFaces(2, 0.8), DominantPersonID: "anna"},
		{ID: "p2", TakenAt: base.Add(5 * time.Second), Score: &photo.OverallScore{Context: 0.4, Overall: 0.6}},
	}
	second := []photo.Photo{
		{ID: "p3", TakenAt: base.Add(10 * time.Minute), Location: &photo.GeoPoint{Lat: 50.08, Lng: 14.42}},
		{ID: "p4", TakenAt: base.Add(10*time.Minute + 3*time.Second), Screenshot: true},
	}
	return database.Snapshot{
		Clusters: []photo.PhotoCluster{
			{ID: "c1", Photos: first, Selection: photo.Selection{
				Mode: photo.ModeAutomatic, PhotoID: "p1", Reason: photo.ReasonBestFacialQuality}},
			{ID: "c2", Photos: second, Selection: photo.Selection{
				Mode: photo.ModeManualOverride, PinnedPhotoID: "p4", PhotoID: "p4", Reason: photo.ReasonManualOverride}},
		},
		SourcePhotoIDs:  []string{"p1", "p2", "p3", "p4"},
		AnalyzedAt:      base.Add(time.Hour),
		HasEverAnalyzed: true,
	}
}

// RunClusterStoreTests exercises the ClusterStore contract against store,
// which must start empty.
func RunClusterStoreTests(t *testing.T, store database.ClusterStore) {
	ctx := context.Background()

	t.Run("EmptyStore", func(t *testing.T) {
		_, err := store.LoadClusters(ctx)
		assert.ErrorIs(t, err, database.ErrNotFound)

		analyzed, err := store.HasEverAnalyzed(ctx)
		require.NoError(t, err)
		assert.False(t, analyzed)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		want := Fixture()
		require.NoError(t, store.SaveClusters(ctx, want))

		got, err := store.LoadClusters(ctx)
		require.NoError(t, err)
		assert.True(t, got.HasEverAnalyzed)
		assert.True(t, got.AnalyzedAt.Equal(want.AnalyzedAt))
		assert.Equal(t, want.SourcePhotoIDs, got.SourcePhotoIDs)
		require.Len(t, got.Clusters, 2)

		for i := range want.Clusters {
			assert.Equal(t, want.Clusters[i].ID, got.Clusters[i].ID)
			assert.Equal(t, want.Clusters[i].Selection, got.Clusters[i].Selection)
			require.Len(t, got.Clusters[i].Photos, len(want.Clusters[i].Photos))
			for j, p := range want.Clusters[i].Photos {
				gp := got.Clusters[i].Photos[j]
				assert.Equal(t, p.ID, gp.ID)
				assert.True(t, p.TakenAt.Equal(gp.TakenAt))
				assert.Equal(t, p.Technical, gp.Technical)
				assert.Equal(t, p.Faces, gp.Faces)
				assert.Equal(t, p.Screenshot, gp.Screenshot)
			}
		}

		analyzed, err := store.HasEverAnalyzed(ctx)
		require.NoError(t, err)
		assert.True(t, analyzed)
	})

	t.Run("SaveReplacesEverything", func(t *testing.T) {
		snap := Fixture()
		snap.Clusters = snap.Clusters[1:]
		snap.SourcePhotoIDs = []string{"p3", "p4"}
		require.NoError(t, store.SaveClusters(ctx, snap))

		got, err := store.LoadClusters(ctx)
		require.NoError(t, err)
		require.Len(t, got.Clusters, 1)
		assert.Equal(t, "c2", got.Clusters[0].ID)
		assert.Equal(t, []string{"p3", "p4"}, got.SourcePhotoIDs)
	})

	t.Run("SaveEmpty", func(t *testing.T) {
		require.NoError(t, store.SaveClusters(ctx, database.Snapshot{HasEverAnalyzed: true, AnalyzedAt: time.Now()}))

		got, err := store.LoadClusters(ctx)
		require.NoError(t, err)
		assert.Empty(t, got.Clusters)
		assert.Empty(t, got.SourcePhotoIDs)
		assert.True(t, got.HasEverAnalyzed)
	})
}
