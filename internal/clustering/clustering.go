// Package clustering partitions a photo list into moments: contiguous runs
// of photos taken close together, looking alike and showing the same person.
package clustering

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

// clusterNamespace seeds deterministic cluster ids.
var clusterNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("photo-moments/cluster"))

// Similarity scores the visual similarity of two photos in [0,1].
type Similarity interface {
	Similarity(ctx context.Context, a, b photo.Photo) (float64, error)
}

// SimilarityFunc adapts a function to Similarity.
type SimilarityFunc func(ctx context.Context, a, b photo.Photo) (float64, error)

func (f SimilarityFunc) Similarity(ctx context.Context, a, b photo.Photo) (float64, error) {
	return f(ctx, a, b)
}

// SplitReason tells why a new moment was started.
type SplitReason string

const (
	SplitNone       SplitReason = ""
	SplitTimeGap    SplitReason = "time_gap"
	SplitDissimilar SplitReason = "dissimilar"
	SplitPerson     SplitReason = "person_changed"
)

type Clusterer struct {
	similarity Similarity
	window     time.Duration
	threshold  float64
	log        *logger.Logger
}

// New creates a clusterer. A nil similarity disables the visual split.
func New(similarity Similarity, cfg config.ClusteringConfig, log *logger.Logger) *Clusterer {
	window := cfg.Window
	if window <= 0 {
		window = 30 * time.Second
	}
	return &Clusterer{
		similarity: similarity,
		window:     window,
		threshold:  cfg.SimilarityThreshold,
		log:        logger.OrNop(log),
	}
}

// Cluster groups photos into moments. The input is not modified; it is
// re-sorted by (capture time, id) so the result only depends on the set of
// photos and the thresholds. onProgress, when set, receives (completed, total)
// after every photo.
func (c *Clusterer) Cluster(ctx context.Context, photos []photo.Photo, onProgress func(completed, total int)) ([]photo.PhotoCluster, error) {
	if len(photos) == 0 {
		return []photo.PhotoCluster{}, nil
	}

	sorted := SortChronologically(photos)
	total := len(sorted)

	var clusters []photo.PhotoCluster
	current := []photo.Photo{sorted[0]}
	report(onProgress, 1, total)

	for i := 1; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prev, next := sorted[i-1], sorted[i]
		if reason := c.splitReason(ctx, prev, next); reason != SplitNone {
			c.log.Debug("moment boundary", "before", prev.ID, "after", next.ID, "reason", string(reason))
			clusters = append(clusters, newCluster(current))
			current = nil
		}
		current = append(current, next)
		report(onProgress, i+1, total)
	}
	clusters = append(clusters, newCluster(current))

	return clusters, nil
}

// splitReason decides whether next starts a new moment after prev.
func (c *Clusterer) splitReason(ctx context.Context, prev, next photo.Photo) SplitReason {
	if next.TakenAt.Sub(prev.TakenAt) > c.window {
		return SplitTimeGap
	}
	if prev.DominantPersonID != "" && next.DominantPersonID != "" && prev.DominantPersonID != next.DominantPersonID {
		return SplitPerson
	}
	if c.similarity != nil {
		sim, err := c.similarity.Similarity(ctx, prev, next)
		if err != nil {
			c.log.Warn("similarity lookup failed, keeping photos together",
				"before", prev.ID, "after", next.ID, "error", err)
			return SplitNone
		}
		if sim < c.threshold {
			return SplitDissimilar
		}
	}
	return SplitNone
}

// SortChronologically returns a copy of photos ordered by capture time, ties by id.
func SortChronologically(photos []photo.Photo) []photo.Photo {
	sorted := make([]photo.Photo, len(photos))
	copy(sorted, photos)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].TakenAt.Equal(sorted[j].TakenAt) {
			return sorted[i].TakenAt.Before(sorted[j].TakenAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// ClusterID derives the id of a cluster from its member photo ids.
func ClusterID(photos []photo.Photo) string {
	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	return uuid.NewSHA1(clusterNamespace, []byte(strings.Join(ids, "\x00"))).String()
}

func newCluster(photos []photo.Photo) photo.PhotoCluster {
	return photo.PhotoCluster{
		ID:        ClusterID(photos),
		Photos:    photos,
		Selection: photo.Selection{Mode: photo.ModeAutomatic},
	}
}

func report(onProgress func(completed, total int), completed, total int) {
	if onProgress != nil {
		onProgress(completed, total)
	}
}
