package analysis

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/photo-moments/internal/ai"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

// SidecarSuffix is appended to a photo file path to find its stored analysis.
const SidecarSuffix = ".analysis.json"

// AIVision adapts an ai.Provider, downscaling images before upload.
type AIVision struct {
	provider ai.Provider
	maxSize  int
}

func FromAI(provider ai.Provider, maxSize int) *AIVision {
	return &AIVision{provider: provider, maxSize: maxSize}
}

func (v *AIVision) Analyze(ctx context.Context, p photo.Photo, imageData []byte) (*ai.PhotoAnalysis, error) {
	resized, err := ai.ResizeImage(imageData, v.maxSize)
	if err != nil {
		return nil, err
	}
	meta := &ai.PhotoMetadata{
		FileName:    p.Source,
		CameraModel: p.Capture.CameraModel,
		Width:       p.Capture.Width,
		Height:      p.Capture.Height,
	}
	if !p.TakenAt.IsZero() {
		meta.TakenAt = p.TakenAt.Format("2006-01-02 15:04:05")
	}
	if p.Location != nil {
		meta.Lat, meta.Lng = p.Location.Lat, p.Location.Lng
	}
	return v.provider.AnalyzePhoto(ctx, resized, meta)
}

// Usage returns the token usage of the wrapped provider.
func (v *AIVision) Usage() ai.Usage {
	return v.provider.GetUsage()
}

// Sidecar reads precomputed measurements from "<file>.analysis.json" next
// to a local photo. The file holds the same JSON a vision model answers with.
type Sidecar struct{}

func (Sidecar) Analyze(_ context.Context, p photo.Photo, _ []byte) (*ai.PhotoAnalysis, error) {
	if p.Source == "" {
		return nil, fmt.Errorf("photo %s has no file path", p.ID)
	}
	data, err := os.ReadFile(p.Source + SidecarSuffix)
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	analysis, err := ai.ParseAnalysis(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse sidecar %s: %w", p.Source+SidecarSuffix, err)
	}
	return analysis, nil
}
