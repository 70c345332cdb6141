// Package analysis is the analysis provider of the curation pipeline. It
// fetches photo images, asks a vision backend for measurements, matches the
// detected faces to library identities and fills in the scores the rest of
// the pipeline reads.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/kozaktomas/photo-moments/internal/ai"
	"github.com/kozaktomas/photo-moments/internal/constants"
	"github.com/kozaktomas/photo-moments/internal/facematch"
	"github.com/kozaktomas/photo-moments/internal/fingerprint"
	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/photo"
	"github.com/kozaktomas/photo-moments/internal/scoring"
)

// ErrAnalysisFailure wraps every error of a single photo analysis.
var ErrAnalysisFailure = errors.New("analysis failure")

// ImageFetcher returns the encoded image bytes of a photo.
type ImageFetcher interface {
	FetchImage(ctx context.Context, p photo.Photo) ([]byte, error)
}

// RegionLookup returns the named face regions the library already knows for a photo.
type RegionLookup interface {
	Regions(ctx context.Context, p photo.Photo) ([]facematch.Region, error)
}

// Vision measures one photo.
type Vision interface {
	Analyze(ctx context.Context, p photo.Photo, imageData []byte) (*ai.PhotoAnalysis, error)
}

// Options configures a Provider. Regions may be nil.
type Options struct {
	Vision  Vision
	Images  ImageFetcher
	Regions RegionLookup
	Scorer  *scoring.Scorer
	Log     *logger.Logger
}

// Provider analyses photos and caches the faces it found, so the composer
// does not ask the vision backend twice for the same photo.
type Provider struct {
	vision  Vision
	images  ImageFetcher
	regions RegionLookup
	scorer  *scoring.Scorer
	log     *logger.Logger

	mu    sync.RWMutex
	faces map[string][]photo.FaceQualityData
}

func New(opts Options) *Provider {
	scorer := opts.Scorer
	if scorer == nil {
		scorer = scoring.Default()
	}
	return &Provider{
		vision:  opts.Vision,
		images:  opts.Images,
		regions: opts.Regions,
		scorer:  scorer,
		log:     logger.OrNop(opts.Log),
		faces:   make(map[string][]photo.FaceQualityData),
	}
}

// Analyze measures p and returns a copy with Technical, Faces, Score,
// DominantPersonID and PHash filled in, plus the per-face data.
func (pr *Provider) Analyze(ctx context.Context, p photo.Photo) (photo.Photo, []photo.FaceQualityData, error) {
	data, err := pr.images.FetchImage(ctx, p)
	if err != nil {
		return p, nil, fmt.Errorf("%w: fetch image of %s: %w", ErrAnalysisFailure, p.ID, err)
	}

	if hashes, err := fingerprint.ComputeHashes(data); err == nil {
		p.PHash = hashes.PHash
	} else {
		pr.log.Warn("could not hash photo", "photo", p.ID, "error", err)
	}

	measured, err := pr.vision.Analyze(ctx, p, data)
	if err != nil {
		return p, nil, fmt.Errorf("%w: measure %s: %w", ErrAnalysisFailure, p.ID, err)
	}

	var regions []facematch.Region
	if pr.regions != nil && len(measured.Faces) > 0 {
		regions, err = pr.regions.Regions(ctx, p)
		if err != nil {
			// identities are optional, faces stay anonymous
			pr.log.Warn("could not load face regions", "photo", p.ID, "error", err)
			regions = nil
		}
	}

	faces := buildFaces(p.ID, measured.Faces, regions, constants.IoUThreshold)
	summary, dominant := summarizeFaces(faces)

	p.Technical = technicalQuality(measured.Technical)
	p.Faces = summary
	p.DominantPersonID = dominant
	facial := pr.scorer.Neutral
	if v, ok := summary.Facial(); ok {
		facial = v
	}
	p.Score = pr.scorer.OverallScore(p.Technical.Overall, facial, measured.Context, summary.Count)

	pr.mu.Lock()
	pr.faces[p.ID] = faces
	pr.mu.Unlock()
	return p, faces, nil
}

// AnalyzeFaces returns the faces of p, running the analysis when they are
// not cached yet.
func (pr *Provider) AnalyzeFaces(ctx context.Context, p photo.Photo) ([]photo.FaceQualityData, error) {
	pr.mu.RLock()
	faces, ok := pr.faces[p.ID]
	pr.mu.RUnlock()
	if ok {
		return faces, nil
	}
	_, faces, err := pr.Analyze(ctx, p)
	return faces, err
}

// LoadImage fetches and decodes the image of p with EXIF orientation applied,
// matching the coordinate space of the face boxes.
func (pr *Provider) LoadImage(ctx context.Context, p photo.Photo) (image.Image, error) {
	data, err := pr.images.FetchImage(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("fetch image of %s: %w", p.ID, err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image of %s: %w", p.ID, err)
	}
	return img, nil
}
