// Package photo holds the value types shared by the curation pipeline:
// photos and their provider scores, moments (clusters), per-face quality
// data and the results produced by the curator and the composer.
package photo

import "time"

// Photo is a single library item together with the measurements produced by
// the analysis provider. The core only reads these fields.
type Photo struct {
	ID       string          `json:"id"`
	TakenAt  time.Time       `json:"taken_at"`
	Location *GeoPoint       `json:"location,omitempty"`
	Capture  CaptureMetadata `json:"capture"`

	// Source locates the image bytes (PhotoPrism UID or file path).
	Source     string `json:"source,omitempty"`
	Screenshot bool   `json:"screenshot,omitempty"`

	// DominantPersonID is the identity covering the largest face area, empty when unknown.
	DominantPersonID string `json:"dominant_person_id,omitempty"`
	// PHash is the 64-bit perceptual hash of the image, zero when not computed.
	PHash uint64 `json:"phash,omitempty"`

	Technical *TechnicalQuality `json:"technical,omitempty"`
	Faces     *FaceQuality      `json:"faces,omitempty"`
	Score     *OverallScore     `json:"score,omitempty"`
	Composite *CompositeOrigin  `json:"composite,omitempty"`
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CaptureMetadata is the immutable camera-side information of a photo.
type CaptureMetadata struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Orientation  int     `json:"orientation,omitempty"`
	CameraMake   string  `json:"camera_make,omitempty"`
	CameraModel  string  `json:"camera_model,omitempty"`
	FocalLength  float64 `json:"focal_length,omitempty"`
	Aperture     float64 `json:"aperture,omitempty"`
	ISO          int     `json:"iso,omitempty"`
	ExposureTime string  `json:"exposure_time,omitempty"`
}

// TechnicalQuality holds the image-level measurements, all in [0,1].
type TechnicalQuality struct {
	Sharpness   float64 `json:"sharpness"`
	Exposure    float64 `json:"exposure"`
	Composition float64 `json:"composition"`
	Overall     float64 `json:"overall"`
}

// FaceQuality summarises the faces found on a photo. AverageScore is nil
// when the faces were counted but not scored.
type FaceQuality struct {
	Count          int      `json:"count"`
	AverageScore   *float64 `json:"average_score,omitempty"`
	EyesOpen       bool     `json:"eyes_open"`
	GoodExpression bool     `json:"good_expression"`
}

// ScoredFaces returns a summary of count faces with a measured average quality.
func ScoredFaces(count int, average float64) *FaceQuality {
	return &FaceQuality{Count: count, AverageScore: &average}
}

// Facial returns the average face quality and whether one was measured.
// A photo without faces has no facial score.
func (q *FaceQuality) Facial() (float64, bool) {
	if q == nil || q.Count == 0 || q.AverageScore == nil {
		return 0, false
	}
	return *q.AverageScore, true
}

// OverallScore is the provider's stored score. Overall is derived from the
// other three fields and the face-count bucket.
type OverallScore struct {
	Technical float64 `json:"technical"`
	Faces     float64 `json:"faces"`
	Context   float64 `json:"context"`
	Overall   float64 `json:"overall"`
}

// FaceCount returns the number of detected faces, zero when the photo was not analysed for faces.
func (p Photo) FaceCount() int {
	if p.Faces == nil {
		return 0
	}
	return p.Faces.Count
}

// IsComposite reports whether the photo is itself a synthesized Perfect Moment.
func (p Photo) IsComposite() bool {
	return p.Composite != nil
}

// ContentBucket groups photos by face count: no faces, a single face, or a group.
type ContentBucket int

const (
	BucketNoFaces ContentBucket = iota
	BucketSingleFace
	BucketGroup
)

// String returns the bucket name used in API responses.
func (b ContentBucket) String() string {
	switch b {
	case BucketSingleFace:
		return "single_face"
	case BucketGroup:
		return "group"
	default:
		return "no_faces"
	}
}

// Bucket returns the content-type bucket of the photo.
func (p Photo) Bucket() ContentBucket {
	switch n := p.FaceCount(); {
	case n == 0:
		return BucketNoFaces
	case n == 1:
		return BucketSingleFace
	default:
		return BucketGroup
	}
}
