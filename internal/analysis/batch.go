package analysis

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/photo-moments/internal/constants"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

// Failure is a photo whose analysis failed. The photo is kept unscored.
type Failure struct {
	PhotoID string `json:"photo_id"`
	Error   string `json:"error"`
}

// Report summarises a batch analysis.
type Report struct {
	Analyzed    int       `json:"analyzed"`
	Screenshots int       `json:"screenshots"`
	Failures    []Failure `json:"failures,omitempty"`
}

// AnalyzeAll analyses photos in parallel and returns them in input order.
// Screenshots are passed through untouched. A failed photo keeps its input
// values, so the scorer falls back to neutral scores for it. The only
// returned error is a cancelled context.
func (pr *Provider) AnalyzeAll(ctx context.Context, photos []photo.Photo, concurrency int, onProgress func(done, total int)) ([]photo.Photo, *Report, error) {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrency
	}

	out := make([]photo.Photo, len(photos))
	copy(out, photos)
	report := &Report{}

	var mu sync.Mutex
	done := 0
	finish := func(failure *Failure, screenshot bool) {
		mu.Lock()
		defer mu.Unlock()
		done++
		switch {
		case screenshot:
			report.Screenshots++
		case failure != nil:
			report.Failures = append(report.Failures, *failure)
		default:
			report.Analyzed++
		}
		if onProgress != nil {
			onProgress(done, len(photos))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range photos {
		if photos[i].Screenshot {
			finish(nil, true)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			analyzed, _, err := pr.Analyze(gctx, photos[i])
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				pr.log.Warn("photo analysis failed, using neutral scores", "photo", photos[i].ID, "error", err)
				finish(&Failure{PhotoID: photos[i].ID, Error: err.Error()}, false)
				return nil
			}
			out[i] = analyzed
			finish(nil, false)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return out, report, nil
}
