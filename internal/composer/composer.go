// Package composer builds "perfect moment" composites: it picks the best
// backdrop photo of a moment and swaps in each person's best face from the
// sibling shots.
package composer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/faceranking"
	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

var (
	// ErrAnalysisTimeout is reported when composition exceeds its wall-clock budget.
	ErrAnalysisTimeout = errors.New("perfect moment analysis timed out")
	// ErrSynthesisFailed is reported when an eligible composite could not be built.
	ErrSynthesisFailed = errors.New("perfect moment synthesis failed")
)

// Status is the kind of outcome of a composition request.
type Status string

const (
	StatusComposed   Status = "composed"
	StatusIneligible Status = "ineligible"
	StatusTimedOut   Status = "timed_out"
	// StatusFailed keeps the original after images could not be loaded or blended.
	StatusFailed Status = "failed"
)

// IneligibleReason tags why no composite was attempted.
type IneligibleReason string

const (
	ReasonSinglePhoto        IneligibleReason = "single_photo"
	ReasonNoImprovableFaces  IneligibleReason = "no_improvable_faces"
	ReasonBaseQualityTooLow  IneligibleReason = "base_quality_too_low"
	ReasonNoCompatibleDonors IneligibleReason = "no_compatible_donors"
)

// FaceAnalyzer extracts per-face measurements of one photo. Implementations
// are not expected to cope with concurrent calls.
type FaceAnalyzer interface {
	AnalyzeFaces(ctx context.Context, p photo.Photo) ([]photo.FaceQualityData, error)
}

// ImageLoader decodes the full-resolution image of a photo.
type ImageLoader interface {
	LoadImage(ctx context.Context, p photo.Photo) (image.Image, error)
}

// AnalysisFailure records a photo whose faces could not be analysed. The
// photo is then treated as having no faces.
type AnalysisFailure struct {
	PhotoID string `json:"photo_id"`
	Error   string `json:"error"`
}

// Outcome is the answer to a composition request.
type Outcome struct {
	Status   Status                     `json:"status"`
	Reason   IneligibleReason           `json:"reason,omitempty"`
	Original photo.Photo                `json:"original"`
	Result   *photo.PerfectMomentResult `json:"result,omitempty"`
	// QualityWarning is set when the composite scored below the quality floor.
	QualityWarning bool `json:"quality_warning"`
	// UseOriginalAvailable offers keeping Original instead of the composite.
	UseOriginalAvailable bool                                       `json:"use_original_available"`
	Notice               string                                     `json:"notice,omitempty"`
	Failures             []AnalysisFailure                          `json:"failures,omitempty"`
	Analyses             map[string]photo.PersonFaceQualityAnalysis `json:"analyses,omitempty"`
}

// Err returns ErrAnalysisTimeout or ErrSynthesisFailed for the matching
// outcomes and nil otherwise.
func (o *Outcome) Err() error {
	if o == nil {
		return nil
	}
	switch o.Status {
	case StatusTimedOut:
		return ErrAnalysisTimeout
	case StatusFailed:
		return ErrSynthesisFailed
	default:
		return nil
	}
}

type Composer struct {
	analyzer FaceAnalyzer
	loader   ImageLoader
	ranker   *faceranking.Ranker
	cfg      config.ComposerConfig
	log      *logger.Logger

	// analysisMu serialises face analysis across concurrent requests
	analysisMu sync.Mutex
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	now        func() time.Time
}

func New(analyzer FaceAnalyzer, loader ImageLoader, ranker *faceranking.Ranker, cfg config.ComposerConfig, log *logger.Logger) *Composer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 3
	}
	log = logger.OrNop(log)

	limit := rate.Inf
	if cfg.AnalysisDelay > 0 {
		limit = rate.Every(cfg.AnalysisDelay)
	}

	failures := uint32(cfg.BreakerFailures)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "face-analysis",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("face analysis breaker changed state", "from", from.String(), "to", to.String())
		},
	})

	return &Composer{
		analyzer: analyzer,
		loader:   loader,
		ranker:   ranker,
		cfg:      cfg,
		log:      log,
		limiter:  rate.NewLimiter(limit, 1),
		breaker:  breaker,
		now:      time.Now,
	}
}

// Compose builds a perfect moment for the cluster. Ineligible, timed out and
// failed requests are reported through Outcome.Status, not as errors; an
// error is only returned when ctx is done.
func (c *Composer) Compose(ctx context.Context, cluster photo.PhotoCluster) (*Outcome, error) {
	original := displayedPhoto(cluster)
	cluster = withoutComposites(cluster)
	if cluster.Size() < 2 {
		return ineligible(original, ReasonSinglePhoto), nil
	}

	type result struct {
		outcome *Outcome
		err     error
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		o, err := c.compose(taskCtx, cluster, original)
		done <- result{outcome: o, err: err}
	}()

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.outcome, r.err
	case <-timer.C:
		cancel()
		c.log.Warn("perfect moment timed out", "cluster", cluster.ID, "timeout", c.cfg.Timeout)
		return &Outcome{
			Status:               StatusTimedOut,
			Original:             original,
			UseOriginalAvailable: true,
			Notice:               ErrAnalysisTimeout.Error(),
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Composer) compose(ctx context.Context, cluster photo.PhotoCluster, original photo.Photo) (*Outcome, error) {
	start := c.now()

	faces, failures, err := c.CollectFaces(ctx, cluster.Photos)
	if err != nil {
		return nil, err
	}
	analyses := c.ranker.Rank(faceranking.GroupByPerson(faces))

	out := ineligible(original, "")
	out.Failures = failures
	out.Analyses = analyses

	replaceable := faceranking.Replaceable(analyses)
	if len(replaceable) == 0 {
		out.Reason = ReasonNoImprovableFaces
		return out, nil
	}

	base := c.selectBase(cluster.Photos, faces)
	if storedQuality(base) < c.cfg.MinBaseQuality {
		out.Reason = ReasonBaseQualityTooLow
		return out, nil
	}

	plan := c.planReplacements(base, replaceable)
	if len(plan) == 0 {
		out.Reason = ReasonNoCompatibleDonors
		return out, nil
	}

	result, err := c.synthesize(ctx, cluster, base, plan)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn("perfect moment synthesis failed", "cluster", cluster.ID, "base", base.ID, "error", err)
		out.Status = StatusFailed
		out.Notice = fmt.Sprintf("%s: %v", ErrSynthesisFailed, err)
		return out, nil
	}
	result.Duration = c.now().Sub(start)

	out.Status = StatusComposed
	out.Reason = ""
	out.Original = base
	out.Result = result
	out.UseOriginalAvailable = true
	out.QualityWarning = NeedsQualityWarning(result.Metrics, c.cfg.QualityWarning)
	if out.QualityWarning {
		out.Notice = "composite quality is low, consider keeping the original photo"
	}
	c.log.Info("perfect moment composed", "cluster", cluster.ID, "base", base.ID,
		"replacements", len(plan), "quality", result.Metrics.OverallQuality, "duration", result.Duration)
	return out, nil
}

// CollectFaces analyses the photos one at a time, waiting between calls.
// A failing photo is recorded and skipped; only ctx errors abort.
//
// The analysis lock is held for the whole pass. After a timeout the next
// caller waits until the abandoned pass sees its cancelled context and the
// in-flight analyzer call returns.
func (c *Composer) CollectFaces(ctx context.Context, photos []photo.Photo) ([]photo.FaceQualityData, []AnalysisFailure, error) {
	c.analysisMu.Lock()
	defer c.analysisMu.Unlock()

	var faces []photo.FaceQualityData
	var failures []AnalysisFailure
	for _, p := range photos {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.analyzer.AnalyzeFaces(ctx, p)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			c.log.Warn("face analysis failed, treating photo as faceless", "photo", p.ID, "error", err)
			failures = append(failures, AnalysisFailure{PhotoID: p.ID, Error: err.Error()})
			continue
		}
		found, _ := res.([]photo.FaceQualityData)
		for _, f := range found {
			f.PhotoID = p.ID
			faces = append(faces, f)
		}
	}
	return faces, failures, nil
}

// withoutComposites drops earlier perfect moments; they never serve as a
// base or a donor.
func withoutComposites(cluster photo.PhotoCluster) photo.PhotoCluster {
	shots := make([]photo.Photo, 0, len(cluster.Photos))
	for _, p := range cluster.Photos {
		if !p.IsComposite() {
			shots = append(shots, p)
		}
	}
	cluster.Photos = shots
	return cluster
}

// displayedPhoto is the photo the user currently sees for the cluster.
func displayedPhoto(cluster photo.PhotoCluster) photo.Photo {
	if p, ok := cluster.Photo(cluster.Selection.PhotoID); ok {
		return p
	}
	if len(cluster.Photos) > 0 {
		return cluster.Photos[0]
	}
	return photo.Photo{}
}

func ineligible(original photo.Photo, reason IneligibleReason) *Outcome {
	return &Outcome{
		Status:               StatusIneligible,
		Reason:               reason,
		Original:             original,
		UseOriginalAvailable: true,
	}
}
