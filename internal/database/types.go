package database

import (
	"sort"
	"time"

	"github.com/kozaktomas/photo-moments/internal/photo"
)

// StoredEmbedding represents an image embedding stored in the database
type StoredEmbedding struct {
	PhotoID   string
	Embedding []float32
	Model     string
	Dim       int
	CreatedAt time.Time
}

// Snapshot is the persisted curation state. Saving a snapshot replaces the
// previous one entirely.
type Snapshot struct {
	Clusters []photo.PhotoCluster
	// SourcePhotoIDs is the sorted id set the clusters were computed from.
	SourcePhotoIDs  []string
	AnalyzedAt      time.Time
	HasEverAnalyzed bool
}

// SourceIDs returns the sorted ids of photos, the form stored in Snapshot.SourcePhotoIDs.
func SourceIDs(photos []photo.Photo) []string {
	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	sort.Strings(ids)
	return ids
}

// SameSource reports whether the snapshot was computed from exactly the given photo ids.
func (s *Snapshot) SameSource(ids []string) bool {
	if len(ids) != len(s.SourcePhotoIDs) {
		return false
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for i := range sorted {
		if sorted[i] != s.SourcePhotoIDs[i] {
			return false
		}
	}
	return true
}
