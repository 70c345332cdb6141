package curator

import (
	"github.com/kozaktomas/photo-moments/internal/clustering"
	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/scoring"
)

// Selector picks cluster representatives. It never modifies photos, only the
// cluster's Selection.
type Selector struct {
	scorer          *scoring.Scorer
	dominance       float64
	qualityFloor    float64
	confidenceScale float64
	importantSize   int
}

func NewSelector(scorer *scoring.Scorer, cfg config.CuratorConfig) *Selector {
	s := &Selector{
		scorer:          scorer,
		dominance:       cfg.DominanceThreshold,
		qualityFloor:    cfg.QualityFloor,
		confidenceScale: cfg.ConfidenceScale,
		importantSize:   cfg.ImportantMomentSize,
	}
	if s.confidenceScale <= 0 {
		s.confidenceScale = 0.25
	}
	if s.importantSize <= 0 {
		s.importantSize = 3
	}
	return s
}

type candidate struct {
	photo     photo.Photo
	smart     float64
	facial    float64
	technical float64
	hasFaces  bool
}

func (s *Selector) evaluate(p photo.Photo) candidate {
	technical, _, _ := s.scorer.SubScores(p)
	c := candidate{photo: p, smart: s.scorer.SmartScore(p), technical: technical}
	if p.FaceCount() > 0 {
		c.hasFaces = true
		c.facial = s.scorer.Neutral
		if v, ok := p.Faces.Facial(); ok {
			c.facial = scoring.Clamp01(v)
		}
	}
	return c
}

func (c candidate) combined() float64 {
	if c.hasFaces {
		return (c.smart + c.facial) / 2
	}
	return c.smart
}

// Apply recomputes the representative of cluster and records the outcome in
// cluster.Selection. A manual pin is honoured while its photo is still a
// member; otherwise the cluster falls back to automatic selection.
func (s *Selector) Apply(cluster *photo.PhotoCluster) photo.ClusterRepresentative {
	if cluster.Selection.Mode == photo.ModeManualOverride {
		if p, ok := cluster.Photo(cluster.Selection.PinnedPhotoID); ok {
			cluster.Selection.PhotoID = p.ID
			cluster.Selection.Reason = photo.ReasonManualOverride
			return s.manual(cluster, p)
		}
		cluster.Selection = photo.Selection{Mode: photo.ModeAutomatic}
	}
	rep := s.Automatic(*cluster)
	cluster.Selection = photo.Selection{
		Mode:    photo.ModeAutomatic,
		PhotoID: rep.Photo.ID,
		Reason:  rep.Reason,
	}
	return rep
}

// Representative returns the representative described by the cluster's
// current selection state without modifying it.
func (s *Selector) Representative(cluster photo.PhotoCluster) photo.ClusterRepresentative {
	return s.Apply(&cluster)
}

func (s *Selector) manual(cluster *photo.PhotoCluster, p photo.Photo) photo.ClusterRepresentative {
	c := s.evaluate(p)
	return photo.ClusterRepresentative{
		ClusterID:            cluster.ID,
		Photo:                p,
		QualityScore:         c.smart,
		FacialQualityScore:   c.facial,
		CombinedQualityScore: c.combined(),
		RankingConfidence:    1,
		Reason:               photo.ReasonManualOverride,
		Mode:                 photo.ModeManualOverride,
		IsImportantMoment:    cluster.Size() >= s.importantSize,
	}
}

// Automatic runs the score-based selection, ignoring any manual pin.
// The cluster must not be empty.
func (s *Selector) Automatic(cluster photo.PhotoCluster) photo.ClusterRepresentative {
	ordered := clustering.SortChronologically(cluster.Photos)

	var candidates []candidate
	for _, p := range ordered {
		if !p.Screenshot {
			candidates = append(candidates, s.evaluate(p))
		}
	}
	allScreenshots := len(candidates) == 0
	if allScreenshots {
		for _, p := range ordered {
			candidates = append(candidates, s.evaluate(p))
		}
	}

	winner, runnerUp := 0, -1
	for i := 1; i < len(candidates); i++ {
		if candidates[i].smart > candidates[winner].smart {
			runnerUp = winner
			winner = i
		} else if runnerUp < 0 || candidates[i].smart > candidates[runnerUp].smart {
			runnerUp = i
		}
	}

	best := candidates[winner]
	rep := photo.ClusterRepresentative{
		ClusterID:            cluster.ID,
		Photo:                best.photo,
		QualityScore:         best.smart,
		FacialQualityScore:   best.facial,
		CombinedQualityScore: best.combined(),
		Mode:                 photo.ModeAutomatic,
		IsImportantMoment:    cluster.Size() >= s.importantSize,
	}

	if runnerUp < 0 {
		rep.RankingConfidence = 1
		rep.Reason = photo.ReasonOnlyOptionAvailable
		if allScreenshots {
			rep.Reason = photo.ReasonFallbackSelection
		}
		return rep
	}

	second := candidates[runnerUp]
	rep.RankingConfidence = scoring.Clamp01((best.smart - second.smart) / s.confidenceScale)
	rep.Reason = s.reason(best, second, allScreenshots)
	return rep
}

// reason applies the fixed priority: fallback, facial dominance, technical
// dominance, balanced.
func (s *Selector) reason(best, second candidate, allScreenshots bool) photo.SelectionReason {
	if allScreenshots || best.smart < s.qualityFloor {
		return photo.ReasonFallbackSelection
	}
	facialMargin := best.facial - second.facial
	technicalMargin := best.technical - second.technical
	switch {
	case best.hasFaces && facialMargin > s.dominance && facialMargin >= technicalMargin:
		return photo.ReasonBestFacialQuality
	case technicalMargin > s.dominance:
		return photo.ReasonHighestOverallQuality
	default:
		return photo.ReasonBalancedQualityAndFaces
	}
}
