// Package scoring computes the content-aware "smart score" used to rank
// photos for clustering, representative selection and recommendations.
package scoring

import (
	"time"

	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

// Weights is a (technical, faces, context) weight triple.
type Weights struct {
	Technical float64
	Faces     float64
	Context   float64
}

// Scorer holds the face-count bucket table and the golden-hour bonus.
type Scorer struct {
	NoFaces         Weights // 0 faces
	SingleFace      Weights // 1 face
	SmallGroup      Weights // 2-5 faces
	LargeGroup      Weights // 6+ faces
	GoldenHourBonus float64
	Neutral         float64
}

// New creates a scorer from the curation config.
func New(cfg config.ScoringConfig) *Scorer {
	w := func(c config.WeightConfig) Weights {
		return Weights{Technical: c.Technical, Faces: c.Faces, Context: c.Context}
	}
	neutral := cfg.Neutral
	if neutral == 0 {
		neutral = 0.5
	}
	return &Scorer{
		NoFaces:         w(cfg.Weights.NoFaces),
		SingleFace:      w(cfg.Weights.SingleFace),
		SmallGroup:      w(cfg.Weights.SmallGroup),
		LargeGroup:      w(cfg.Weights.LargeGroup),
		GoldenHourBonus: cfg.GoldenHourBonus,
		Neutral:         neutral,
	}
}

// Default returns a scorer with the embedded curation defaults.
func Default() *Scorer {
	return New(config.DefaultCuration().Scoring)
}

// WeightsFor returns the weight triple of the face-count bucket.
func (s *Scorer) WeightsFor(faceCount int) Weights {
	switch {
	case faceCount <= 0:
		return s.NoFaces
	case faceCount == 1:
		return s.SingleFace
	case faceCount <= 5:
		return s.SmallGroup
	default:
		return s.LargeGroup
	}
}

// SubScores returns the technical, facial and context inputs of a photo.
// Missing measurements fall back to the neutral value.
func (s *Scorer) SubScores(p photo.Photo) (technical, faces, context float64) {
	technical, faces, context = s.Neutral, s.Neutral, s.Neutral
	if p.Technical != nil {
		technical = p.Technical.Overall
	}
	if v, ok := p.Faces.Facial(); ok {
		faces = v
	}
	if p.Score != nil {
		context = p.Score.Context
	}
	return Clamp01(technical), Clamp01(faces), Clamp01(context)
}

// Overall is the weighted sum without the golden-hour bonus. Providers use it
// to fill OverallScore.Overall.
func (s *Scorer) Overall(technical, faces, context float64, faceCount int) float64 {
	w := s.WeightsFor(faceCount)
	return Clamp01(w.Technical*technical + w.Faces*faces + w.Context*context)
}

// SmartScore is Overall plus the golden-hour bonus, clamped to [0,1].
func (s *Scorer) SmartScore(p photo.Photo) float64 {
	t, f, c := s.SubScores(p)
	w := s.WeightsFor(p.FaceCount())
	score := w.Technical*t + w.Faces*f + w.Context*c
	if IsGoldenHour(p.TakenAt) {
		score += s.GoldenHourBonus
	}
	return Clamp01(score)
}

// OverallScore builds the stored score record for a photo.
func (s *Scorer) OverallScore(technical, faces, context float64, faceCount int) *photo.OverallScore {
	return &photo.OverallScore{
		Technical: Clamp01(technical),
		Faces:     Clamp01(faces),
		Context:   Clamp01(context),
		Overall:   s.Overall(technical, faces, context, faceCount),
	}
}

// IsGoldenHour reports whether the local capture hour is in [6,8) or [18,20).
func IsGoldenHour(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	h := t.Hour()
	return (h >= 6 && h < 8) || (h >= 18 && h < 20)
}

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
