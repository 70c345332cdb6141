package ai

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
)

//go:embed prompts/photo_quality.txt
var photoQualityPrompt string

// maxRetries bounds the attempts to get valid JSON out of a model.
const maxRetries = 5

// visionMaxSize is the longest edge sent to vision models.
const visionMaxSize = 800

// errEmptyResponse is returned when a model answers with no content.
var errEmptyResponse = errors.New("empty response from model")

func buildPhotoQualityPrompt() string {
	return photoQualityPrompt
}

func buildUserMessage(metadata *PhotoMetadata) string {
	if metadata == nil {
		return "Assess this photo."
	}

	parts := []string{"Assess this photo."}
	if metadata.FileName != "" {
		parts = append(parts, "Filename: "+metadata.FileName)
	}
	if metadata.TakenAt != "" {
		parts = append(parts, "Taken at: "+metadata.TakenAt)
	}
	if metadata.CameraModel != "" {
		parts = append(parts, "Camera: "+metadata.CameraModel)
	}
	if metadata.Lat != 0 || metadata.Lng != 0 {
		parts = append(parts, fmt.Sprintf("GPS coordinates: %.6f, %.6f", metadata.Lat, metadata.Lng))
	}
	if metadata.Width > 0 && metadata.Height > 0 {
		parts = append(parts, fmt.Sprintf("Dimensions: %dx%d", metadata.Width, metadata.Height))
	}
	return strings.Join(parts, "\n")
}

// retryFeedback is sent back to the model after a malformed answer.
func retryFeedback(err error) string {
	return fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again. Respond with the JSON object only.", err)
}

// ParseAnalysis decodes a model answer and clamps every measurement into its
// valid range. Faces with an empty box are dropped.
func ParseAnalysis(content string) (*PhotoAnalysis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var analysis PhotoAnalysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return nil, err
	}

	analysis.Technical.Sharpness = clamp01(analysis.Technical.Sharpness)
	analysis.Technical.Exposure = clamp01(analysis.Technical.Exposure)
	analysis.Technical.Composition = clamp01(analysis.Technical.Composition)
	analysis.Context = clamp01(analysis.Context)

	faces := analysis.Faces[:0]
	for _, f := range analysis.Faces {
		for i := range f.Box {
			f.Box[i] = clamp01(f.Box[i])
		}
		if f.Box[2] <= 0 || f.Box[3] <= 0 {
			continue
		}
		f.EyeConfidence = clamp01(f.EyeConfidence)
		f.SmileIntensity = clamp01(f.SmileIntensity)
		f.SmileNaturalness = clamp01(f.SmileNaturalness)
		f.Sharpness = clamp01(f.Sharpness)
		f.Lighting = clamp01(f.Lighting)
		f.CaptureQuality = clamp01(f.CaptureQuality)
		f.Pitch = clampAngle(f.Pitch)
		f.Yaw = clampAngle(f.Yaw)
		f.Roll = clampAngle(f.Roll)
		faces = append(faces, f)
	}
	analysis.Faces = faces
	return &analysis, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

func clampAngle(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(90, math.Max(-90, v))
}

// usageMeter accumulates token usage. Providers are called from parallel
// analysis workers.
type usageMeter struct {
	mu      sync.Mutex
	usage   Usage
	pricing RequestPricing
}

func (m *usageMeter) track(inputTokens, outputTokens int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.Requests++
	m.usage.InputTokens += int(inputTokens)
	m.usage.OutputTokens += int(outputTokens)
	m.usage.TotalCost += float64(inputTokens) / 1_000_000 * m.pricing.Input
	m.usage.TotalCost += float64(outputTokens) / 1_000_000 * m.pricing.Output
}

func (m *usageMeter) get() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

func (m *usageMeter) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = Usage{}
}
