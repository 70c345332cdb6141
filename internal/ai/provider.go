package ai

import "context"

// PhotoMetadata contains metadata about a photo that may help with analysis.
type PhotoMetadata struct {
	FileName    string  // Original or current filename
	TakenAt     string  // Capture time from EXIF or file
	CameraModel string  // Camera make and model
	Lat         float64 // GPS latitude
	Lng         float64 // GPS longitude
	Width       int     // Image width
	Height      int     // Image height
}

// Provider defines the interface for vision backends measuring photo quality.
type Provider interface {
	Name() string
	AnalyzePhoto(ctx context.Context, imageData []byte, metadata *PhotoMetadata) (*PhotoAnalysis, error)

	// Usage tracking.
	GetUsage() Usage
	ResetUsage()
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	Requests     int
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens
type RequestPricing struct {
	Input  float64
	Output float64
}

// TechnicalMeasurement rates the whole frame.
type TechnicalMeasurement struct {
	Sharpness   float64 `json:"sharpness"`
	Exposure    float64 `json:"exposure"`
	Composition float64 `json:"composition"`
}

// FaceMeasurement is the model's reading of one visible face.
type FaceMeasurement struct {
	// Box is x, y, w, h relative to the image size.
	Box              [4]float64 `json:"box"`
	LeftEyeOpen      bool       `json:"left_eye_open"`
	RightEyeOpen     bool       `json:"right_eye_open"`
	EyeConfidence    float64    `json:"eye_confidence"`
	SmileIntensity   float64    `json:"smile_intensity"`
	SmileNaturalness float64    `json:"smile_naturalness"`
	Pitch            float64    `json:"pitch"`
	Yaw              float64    `json:"yaw"`
	Roll             float64    `json:"roll"`
	Sharpness        float64    `json:"sharpness"`
	Lighting         float64    `json:"lighting"`
	CaptureQuality   float64    `json:"capture_quality"`
}

// PhotoAnalysis contains the model's measurements of a photo.
type PhotoAnalysis struct {
	Technical   TechnicalMeasurement `json:"technical"`
	Context     float64              `json:"context"`
	Description string               `json:"description"`
	Faces       []FaceMeasurement    `json:"faces"`
}
