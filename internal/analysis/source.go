package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

// Lister discovers the raw photos of a library.
type Lister interface {
	Photos(ctx context.Context, onProgress func(done, total int)) ([]photo.Photo, error)
}

// Preparer warms up a similarity backend before clustering.
type Preparer interface {
	Prepare(ctx context.Context, photos []photo.Photo, concurrency int) error
}

// Source lists photos and analyses them, so the curator receives scored
// photos. Listing and analysis each take half of the reported progress.
type Source struct {
	lister      Lister
	provider    *Provider
	preparer    Preparer
	concurrency int
	log         *logger.Logger

	mu   sync.Mutex
	last *Report
}

// NewSource wraps lister. preparer may be nil.
func NewSource(lister Lister, provider *Provider, preparer Preparer, concurrency int, log *logger.Logger) *Source {
	return &Source{
		lister:      lister,
		provider:    provider,
		preparer:    preparer,
		concurrency: concurrency,
		log:         logger.OrNop(log),
	}
}

func (s *Source) Photos(ctx context.Context, onProgress func(done, total int)) ([]photo.Photo, error) {
	report := func(done, total int) {
		if onProgress != nil {
			onProgress(done, total)
		}
	}

	listed, err := s.lister.Photos(ctx, func(done, total int) {
		report(done, 2*max(total, 1))
	})
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	n := len(listed)
	if n == 0 {
		report(1, 1)
		return listed, nil
	}

	photos, rep, err := s.provider.AnalyzeAll(ctx, listed, s.concurrency, func(done, _ int) {
		report(n+done, 2*n)
	})
	if err != nil {
		return nil, fmt.Errorf("analyze photos: %w", err)
	}
	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()
	s.log.Info("photos analyzed", "analyzed", rep.Analyzed, "screenshots", rep.Screenshots, "failed", len(rep.Failures))

	if s.preparer != nil {
		if err := s.preparer.Prepare(ctx, photos, s.concurrency); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("could not prepare similarity data", "error", err)
		}
	}
	return photos, nil
}

// LastReport returns the report of the most recent analysis, nil before the first.
func (s *Source) LastReport() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
