package photo

// BoundingBox is a face region in relative image coordinates (0-1).
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Corners returns the box as [x1, y1, x2, y2].
func (b BoundingBox) Corners() []float64 {
	return []float64{b.X, b.Y, b.X + b.W, b.Y + b.H}
}

// Area returns the relative area of the box.
func (b BoundingBox) Area() float64 {
	return b.W * b.H
}

// EyeState describes eye openness for one face.
type EyeState struct {
	LeftOpen   bool    `json:"left_open"`
	RightOpen  bool    `json:"right_open"`
	Confidence float64 `json:"confidence"`
}

// BothOpen reports whether both eyes are open.
func (e EyeState) BothOpen() bool {
	return e.LeftOpen && e.RightOpen
}

// SmileQuality describes the expression of one face.
type SmileQuality struct {
	Intensity   float64 `json:"intensity"`
	Naturalness float64 `json:"naturalness"`
	Confidence  float64 `json:"confidence"`
}

// FaceAngle is the head pose in degrees.
type FaceAngle struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// FaceIssue tags a defect found on a face.
type FaceIssue string

const (
	IssueEyesClosed     FaceIssue = "eyes_closed"
	IssuePoorExpression FaceIssue = "poor_expression"
	IssueBadAngle       FaceIssue = "bad_angle"
	IssueMotionBlur     FaceIssue = "motion_blur"
	IssueBlurry         FaceIssue = "blurry"
	IssuePoorLighting   FaceIssue = "poor_lighting"
)

// AllFaceIssues lists every issue in canonical order.
var AllFaceIssues = []FaceIssue{
	IssueEyesClosed,
	IssuePoorExpression,
	IssueBadAngle,
	IssueMotionBlur,
	IssueBlurry,
	IssuePoorLighting,
}

// Fixable reports whether swapping in another instance of the same face can
// remove the issue. Blur and lighting belong to the whole frame.
func (i FaceIssue) Fixable() bool {
	switch i {
	case IssueEyesClosed, IssuePoorExpression, IssueBadAngle:
		return true
	default:
		return false
	}
}

// FaceQualityData is one detected face instance. Immutable once produced.
type FaceQualityData struct {
	PhotoID        string       `json:"photo_id"`
	PersonID       string       `json:"person_id"`
	Index          int          `json:"index"`
	Box            BoundingBox  `json:"box"`
	Eyes           EyeState     `json:"eyes"`
	Smile          SmileQuality `json:"smile"`
	Angle          FaceAngle    `json:"angle"`
	Sharpness      float64      `json:"sharpness"`
	CaptureQuality float64      `json:"capture_quality"`
	QualityRank    float64      `json:"quality_rank"`
	Issues         []FaceIssue  `json:"issues,omitempty"`
}

// HasIssue reports whether the face carries the given issue.
func (f FaceQualityData) HasIssue(issue FaceIssue) bool {
	for _, i := range f.Issues {
		if i == issue {
			return true
		}
	}
	return false
}

// HasFixableIssue reports whether any of the face issues can be fixed by a face swap.
func (f FaceQualityData) HasFixableIssue() bool {
	for _, i := range f.Issues {
		if i.Fixable() {
			return true
		}
	}
	return false
}

// PersonFaceQualityAnalysis aggregates one person's faces within a cluster.
type PersonFaceQualityAnalysis struct {
	PersonID             string            `json:"person_id"`
	Faces                []FaceQualityData `json:"faces"`
	Best                 FaceQualityData   `json:"best"`
	Worst                FaceQualityData   `json:"worst"`
	ImprovementPotential float64           `json:"improvement_potential"`
	ShouldReplace        bool              `json:"should_replace"`
	IssuesFixed          []FaceIssue       `json:"issues_fixed,omitempty"`
}

// FaceIn returns the person's face on the given photo.
func (a PersonFaceQualityAnalysis) FaceIn(photoID string) (FaceQualityData, bool) {
	for _, f := range a.Faces {
		if f.PhotoID == photoID {
			return f, true
		}
	}
	return FaceQualityData{}, false
}
