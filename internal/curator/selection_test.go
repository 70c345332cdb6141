package curator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/scoring"
)

var noon = time.Date(2024, 7, 14, 12, 0, 0, 0, time.UTC)

func shot(id string, sec int, technical, context float64) photo.Photo {
	return photo.Photo{
		ID:        id,
		TakenAt:   noon.Add(time.Duration(sec) * time.Second),
		Technical: &photo.TechnicalQuality{Overall: technical},
		Score:     &photo.OverallScore{Context: context},
	}
}

func withFaces(p photo.Photo, count int, avg float64) photo.Photo {
	p.Faces = photo.ScoredFaces(count, avg)
	return p
}

func newTestSelector() *Selector {
	cfg := config.DefaultCuration()
	return NewSelector(scoring.New(cfg.Scoring), cfg.Curator)
}

func TestAutomatic_Reasons(t *testing.T) {
	tests := []struct {
		name       string
		photos     []photo.Photo
		wantPhoto  string
		wantReason photo.SelectionReason
	}{
		{
			name:       "single candidate",
			photos:     []photo.Photo{shot("a", 0, 0.7, 0.5)},
			wantPhoto:  "a",
			wantReason: photo.ReasonOnlyOptionAvailable,
		},
		{
			name:       "technical dominance",
			photos:     []photo.Photo{shot("a", 0, 0.5, 0.5), shot("b", 2, 0.9, 0.5)},
			wantPhoto:  "b",
			wantReason: photo.ReasonHighestOverallQuality,
		},
		{
			name: "facial dominance",
			photos: []photo.Photo{
				withFaces(shot("a", 0, 0.6, 0.5), 1, 0.9),
				withFaces(shot("b", 2, 0.6, 0.5), 1, 0.5),
			},
			wantPhoto:  "a",
			wantReason: photo.ReasonBestFacialQuality,
		},
		{
			name:       "balanced",
			photos:     []photo.Photo{shot("a", 0, 0.5, 0.5), shot("b", 2, 0.58, 0.5)},
			wantPhoto:  "b",
			wantReason: photo.ReasonBalancedQualityAndFaces,
		},
		{
			name:       "below quality floor",
			photos:     []photo.Photo{shot("a", 0, 0.1, 0.1), shot("b", 2, 0.15, 0.1)},
			wantPhoto:  "b",
			wantReason: photo.ReasonFallbackSelection,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := newTestSelector().Automatic(photo.PhotoCluster{ID: "c", Photos: tt.photos})
			assert.Equal(t, tt.wantPhoto, rep.Photo.ID)
			assert.Equal(t, tt.wantReason, rep.Reason)
			assert.Equal(t, photo.ModeAutomatic, rep.Mode)
			assert.GreaterOrEqual(t, rep.RankingConfidence, 0.0)
			assert.LessOrEqual(t, rep.RankingConfidence, 1.0)
		})
	}
}

func TestAutomatic_FiveShotMoment(t *testing.T) {
	photos := []photo.Photo{
		withFaces(shot("p1", 0, 0.6, 0.5), 1, 0.6),
		withFaces(shot("p2", 2, 0.7, 0.5), 1, 0.8),
		withFaces(shot("p3", 4, 0.5, 0.5), 1, 0.5),
		withFaces(shot("p4", 7, 0.65, 0.5), 1, 0.7),
		withFaces(shot("p5", 10, 0.4, 0.5), 1, 0.6),
	}
	sel := newTestSelector()
	rep := sel.Automatic(photo.PhotoCluster{ID: "c", Photos: photos})

	best := ""
	bestScore := -1.0
	for _, p := range photos {
		if s := sel.scorer.SmartScore(p); s > bestScore {
			best, bestScore = p.ID, s
		}
	}
	assert.Equal(t, best, rep.Photo.ID)
	assert.Equal(t, "p2", rep.Photo.ID)
	assert.True(t, rep.IsImportantMoment)
	assert.InDelta(t, bestScore, rep.QualityScore, 1e-9)
	assert.InDelta(t, (bestScore+0.8)/2, rep.CombinedQualityScore, 1e-9)
}

func TestAutomatic_Confidence(t *testing.T) {
	// smart scores 0.74 and 0.50
	rep := newTestSelector().Automatic(photo.PhotoCluster{Photos: []photo.Photo{shot("a", 0, 0.5, 0.5), shot("b", 2, 0.9, 0.5)}})
	assert.InDelta(t, 0.24/0.25, rep.RankingConfidence, 1e-9)

	rep = newTestSelector().Automatic(photo.PhotoCluster{Photos: []photo.Photo{shot("a", 0, 0.5, 0.5), shot("b", 2, 0.5, 0.5)}})
	assert.Zero(t, rep.RankingConfidence)
}

func TestAutomatic_TieGoesToEarliest(t *testing.T) {
	rep := newTestSelector().Automatic(photo.PhotoCluster{Photos: []photo.Photo{
		shot("late", 5, 0.7, 0.5),
		shot("early", 1, 0.7, 0.5),
	}})
	assert.Equal(t, "early", rep.Photo.ID)
}

func TestAutomatic_Screenshots(t *testing.T) {
	screenshot := shot("s", 1, 1, 1)
	screenshot.Screenshot = true

	t.Run("excluded when a real photo exists", func(t *testing.T) {
		rep := newTestSelector().Automatic(photo.PhotoCluster{Photos: []photo.Photo{shot("a", 0, 0.5, 0.5), screenshot}})
		assert.Equal(t, "a", rep.Photo.ID)
		assert.Equal(t, photo.ReasonOnlyOptionAvailable, rep.Reason)
	})

	t.Run("fallback when all are screenshots", func(t *testing.T) {
		other := shot("s2", 3, 0.2, 0.2)
		other.Screenshot = true
		rep := newTestSelector().Automatic(photo.PhotoCluster{Photos: []photo.Photo{other, screenshot}})
		assert.Equal(t, "s", rep.Photo.ID)
		assert.Equal(t, photo.ReasonFallbackSelection, rep.Reason)
	})
}

func TestApply_ManualOverride(t *testing.T) {
	sel := newTestSelector()
	cluster := photo.PhotoCluster{
		ID:        "c",
		Photos:    []photo.Photo{shot("a", 0, 0.9, 0.5), shot("b", 2, 0.3, 0.5), shot("c", 4, 0.4, 0.5)},
		Selection: photo.Selection{Mode: photo.ModeManualOverride, PinnedPhotoID: "b"},
	}

	for i := 0; i < 3; i++ {
		rep := sel.Apply(&cluster)
		assert.Equal(t, "b", rep.Photo.ID)
		assert.Equal(t, photo.ReasonManualOverride, rep.Reason)
		assert.Equal(t, photo.ModeManualOverride, rep.Mode)
		assert.Equal(t, 1.0, rep.RankingConfidence)
		assert.True(t, rep.IsImportantMoment)
	}
	assert.Equal(t, photo.Selection{Mode: photo.ModeManualOverride, PinnedPhotoID: "b", PhotoID: "b", Reason: photo.ReasonManualOverride}, cluster.Selection)
}

func TestApply_StalePinRevertsToAutomatic(t *testing.T) {
	cluster := photo.PhotoCluster{
		ID:        "c",
		Photos:    []photo.Photo{shot("a", 0, 0.9, 0.5), shot("b", 2, 0.3, 0.5)},
		Selection: photo.Selection{Mode: photo.ModeManualOverride, PinnedPhotoID: "gone"},
	}
	rep := newTestSelector().Apply(&cluster)
	assert.Equal(t, "a", rep.Photo.ID)
	assert.Equal(t, photo.ModeAutomatic, cluster.Selection.Mode)
	assert.Empty(t, cluster.Selection.PinnedPhotoID)
	assert.Equal(t, "a", cluster.Selection.PhotoID)
}

func TestRepresentative_DoesNotModifyCluster(t *testing.T) {
	cluster := photo.PhotoCluster{ID: "c", Photos: []photo.Photo{shot("a", 0, 0.9, 0.5)}}
	rep := newTestSelector().Representative(cluster)
	require.Equal(t, "a", rep.Photo.ID)
	assert.Empty(t, cluster.Selection.PhotoID)
}

func TestAutomatic_RepresentativeIsMember(t *testing.T) {
	sel := newTestSelector()
	for n := 1; n <= 8; n++ {
		var photos []photo.Photo
		for i := 0; i < n; i++ {
			p := shot(string(rune('a'+i)), i, float64((i*37)%10)/10, float64((i*53)%10)/10)
			p.Screenshot = i%3 == 2
			photos = append(photos, p)
		}
		cluster := photo.PhotoCluster{Photos: photos}
		rep := sel.Automatic(cluster)
		assert.True(t, cluster.Contains(rep.Photo.ID), "size %d", n)
	}
}

func TestAutomatic_FacialScoreZeroIsKept(t *testing.T) {
	s := newTestSelector()

	rep := s.Automatic(photo.PhotoCluster{Photos: []photo.Photo{withFaces(shot("a", 0, 0.6, 0.5), 1, 0)}})
	assert.Zero(t, rep.FacialQualityScore)

	unscored := shot("b", 0, 0.6, 0.5)
	unscored.Faces = &photo.FaceQuality{Count: 1}
	rep = s.Automatic(photo.PhotoCluster{Photos: []photo.Photo{unscored}})
	assert.InDelta(t, 0.5, rep.FacialQualityScore, 1e-9)
}
