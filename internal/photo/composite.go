package photo

import "time"

// ImprovementType names what a face replacement fixed.
type ImprovementType string

const (
	ImprovementEyesClosed     ImprovementType = "eyes_closed"
	ImprovementPoorExpression ImprovementType = "poor_expression"
	ImprovementBadAngle       ImprovementType = "bad_angle"
	ImprovementOverallQuality ImprovementType = "overall_quality"
)

// ImprovementFor maps a fixable face issue to the improvement it yields.
func ImprovementFor(issue FaceIssue) ImprovementType {
	switch issue {
	case IssueEyesClosed:
		return ImprovementEyesClosed
	case IssuePoorExpression:
		return ImprovementPoorExpression
	case IssueBadAngle:
		return ImprovementBadAngle
	default:
		return ImprovementOverallQuality
	}
}

// PersonImprovement records one accepted face replacement.
type PersonImprovement struct {
	PersonID      string          `json:"person_id"`
	SourcePhotoID string          `json:"source_photo_id"`
	Type          ImprovementType `json:"type"`
	Confidence    float64         `json:"confidence"`
}

// CompositeQualityMetrics is the quality gate of a synthesized image.
// EdgeArtifacts is "lower is better"; the other fields are "higher is better".
type CompositeQualityMetrics struct {
	BlendingQuality     float64 `json:"blending_quality"`
	LightingConsistency float64 `json:"lighting_consistency"`
	Naturalness         float64 `json:"naturalness"`
	EdgeArtifacts       float64 `json:"edge_artifacts"`
	OverallQuality      float64 `json:"overall_quality"`
}

// CompositeOrigin marks a photo that was synthesized from a moment. Only
// ResultID is known when a composite is recognised by its file name alone.
type CompositeOrigin struct {
	ResultID      string   `json:"result_id"`
	ClusterID     string   `json:"cluster_id,omitempty"`
	BasePhotoID   string   `json:"base_photo_id,omitempty"`
	DonorPhotoIDs []string `json:"donor_photo_ids,omitempty"`
	// TakenAt is the capture time of the base photo.
	TakenAt   time.Time `json:"taken_at,omitzero"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// PerfectMomentResult is one synthesized composite. Immutable.
type PerfectMomentResult struct {
	ID           string                  `json:"id"`
	Original     Photo                   `json:"original"`
	Image        []byte                  `json:"-"`
	ContentType  string                  `json:"content_type"`
	Improvements []PersonImprovement     `json:"improvements"`
	Metrics      CompositeQualityMetrics `json:"metrics"`
	Duration     time.Duration           `json:"duration"`
	Origin       CompositeOrigin         `json:"origin"`
}
