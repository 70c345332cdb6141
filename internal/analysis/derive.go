package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kozaktomas/photo-moments/internal/ai"
	"github.com/kozaktomas/photo-moments/internal/facematch"
	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/scoring"
)

// Issue thresholds on the model's [0,1] readings and on head pose in degrees.
const (
	poorExpressionBelow = 0.35
	motionBlurBelow     = 0.25
	blurryBelow         = 0.45
	poorLightingBelow   = 0.35
	maxGoodYaw          = 30.0
	maxGoodPitch        = 25.0
	maxGoodRoll         = 25.0

	// angleScale is the pose deviation at which angle optimality reaches zero.
	angleScale = 45.0
)

const unknownPrefix = "unknown-"

// Weights of the quality rank components.
const (
	rankCapture   = 0.25
	rankEyes      = 0.25
	rankSmile     = 0.20
	rankAngle     = 0.15
	rankSharpness = 0.15
)

// QualityRank combines capture quality, eye openness, smile, pose and
// sharpness of one face into [0,1].
func QualityRank(f photo.FaceQualityData) float64 {
	eyes := 0.0
	switch {
	case f.Eyes.BothOpen():
		eyes = 1
	case f.Eyes.LeftOpen || f.Eyes.RightOpen:
		eyes = 0.5
	}
	smile := (f.Smile.Intensity + f.Smile.Naturalness) / 2
	rank := rankCapture*f.CaptureQuality +
		rankEyes*eyes +
		rankSmile*smile +
		rankAngle*AngleOptimality(f.Angle) +
		rankSharpness*f.Sharpness
	return scoring.Clamp01(rank)
}

// AngleOptimality is 1 for a frontal face, falling linearly to 0 at 45
// degrees off on the worst axis.
func AngleOptimality(a photo.FaceAngle) float64 {
	worst := math.Max(math.Abs(a.Pitch), math.Max(math.Abs(a.Yaw), math.Abs(a.Roll)))
	return scoring.Clamp01(1 - worst/angleScale)
}

// Issues tags the defects of one face reading, in canonical order.
func Issues(m ai.FaceMeasurement) []photo.FaceIssue {
	var issues []photo.FaceIssue
	if !m.LeftEyeOpen || !m.RightEyeOpen {
		issues = append(issues, photo.IssueEyesClosed)
	}
	if m.SmileNaturalness < poorExpressionBelow {
		issues = append(issues, photo.IssuePoorExpression)
	}
	if math.Abs(m.Yaw) > maxGoodYaw || math.Abs(m.Pitch) > maxGoodPitch || math.Abs(m.Roll) > maxGoodRoll {
		issues = append(issues, photo.IssueBadAngle)
	}
	switch {
	case m.Sharpness < motionBlurBelow:
		issues = append(issues, photo.IssueMotionBlur)
	case m.Sharpness < blurryBelow:
		issues = append(issues, photo.IssueBlurry)
	}
	if m.Lighting < poorLightingBelow {
		issues = append(issues, photo.IssuePoorLighting)
	}
	return issues
}

// buildFaces turns the model's face readings into FaceQualityData, assigning
// identities from the library's face regions. Faces without a matching named
// region get an id unique to the photo, so they never group with other faces.
func buildFaces(photoID string, readings []ai.FaceMeasurement, regions []facematch.Region, iouThreshold float64) []photo.FaceQualityData {
	// left to right so indexes are stable across shots
	readings = append([]ai.FaceMeasurement(nil), readings...)
	sort.SliceStable(readings, func(i, j int) bool { return readings[i].Box[0] < readings[j].Box[0] })

	boxes := make([]photo.BoundingBox, len(readings))
	for i, r := range readings {
		boxes[i] = facematch.Clamp(photo.BoundingBox{X: r.Box[0], Y: r.Box[1], W: r.Box[2], H: r.Box[3]})
	}
	assigned := facematch.Assign(boxes, regions, iouThreshold)

	faces := make([]photo.FaceQualityData, len(readings))
	for i, r := range readings {
		face := photo.FaceQualityData{
			PhotoID: photoID,
			Index:   i,
			Box:     boxes[i],
			Eyes: photo.EyeState{
				LeftOpen:   r.LeftEyeOpen,
				RightOpen:  r.RightEyeOpen,
				Confidence: r.EyeConfidence,
			},
			Smile: photo.SmileQuality{
				Intensity:   r.SmileIntensity,
				Naturalness: r.SmileNaturalness,
				Confidence:  r.EyeConfidence,
			},
			Angle:          photo.FaceAngle{Pitch: r.Pitch, Yaw: r.Yaw, Roll: r.Roll},
			Sharpness:      r.Sharpness,
			CaptureQuality: r.CaptureQuality,
			Issues:         Issues(r),
		}
		face.PersonID = personID(photoID, i, assigned[i], regions)
		face.QualityRank = QualityRank(face)
		faces[i] = face
	}
	return faces
}

func personID(photoID string, index, region int, regions []facematch.Region) string {
	if region >= 0 {
		r := regions[region]
		if key := facematch.PersonKey(r.Name); key != "" {
			return key
		}
		if r.SubjectID != "" {
			return r.SubjectID
		}
	}
	return fmt.Sprintf("%s%s-%d", unknownPrefix, photoID, index)
}

// IsKnownPerson reports whether id came from a library identity.
func IsKnownPerson(id string) bool {
	return id != "" && !strings.HasPrefix(id, unknownPrefix)
}

// summarizeFaces builds the photo-level face summary and the dominant known
// identity (largest face area).
func summarizeFaces(faces []photo.FaceQualityData) (*photo.FaceQuality, string) {
	summary := &photo.FaceQuality{Count: len(faces), EyesOpen: true, GoodExpression: true}
	if len(faces) == 0 {
		summary.EyesOpen = false
		summary.GoodExpression = false
		return summary, ""
	}

	var total, dominantArea float64
	dominant := ""
	for _, f := range faces {
		total += f.QualityRank
		if f.HasIssue(photo.IssueEyesClosed) {
			summary.EyesOpen = false
		}
		if f.HasIssue(photo.IssuePoorExpression) {
			summary.GoodExpression = false
		}
		if IsKnownPerson(f.PersonID) && f.Box.Area() > dominantArea {
			dominant, dominantArea = f.PersonID, f.Box.Area()
		}
	}
	average := total / float64(len(faces))
	summary.AverageScore = &average
	return summary, dominant
}

// technicalQuality averages the three frame readings.
func technicalQuality(m ai.TechnicalMeasurement) *photo.TechnicalQuality {
	return &photo.TechnicalQuality{
		Sharpness:   m.Sharpness,
		Exposure:    m.Exposure,
		Composition: m.Composition,
		Overall:     scoring.Clamp01((m.Sharpness + m.Exposure + m.Composition) / 3),
	}
}
