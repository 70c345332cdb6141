// Package progress turns per-phase (done, total) counts into a single
// monotonic progress figure weighted by phase.
package progress

import (
	"fmt"
	"math"
	"sync"
)

// Scale is the total reported for overall progress.
const Scale = 1000

// Func receives overall progress as (completed, total) plus a phase label.
type Func func(completed, total int, phaseText string)

// Phase names a weighted pipeline stage.
type Phase struct {
	Name   string
	Label  string
	Weight float64
}

var (
	Discovery        = Phase{Name: "discovery", Label: "Discovering photos", Weight: 0.15}
	Clustering       = Phase{Name: "clustering", Label: "Clustering moments", Weight: 0.25}
	QualityAnalysis  = Phase{Name: "quality_analysis", Label: "Analyzing quality", Weight: 0.25}
	Ranking          = Phase{Name: "ranking", Label: "Ranking representatives", Weight: 0.25}
	Persistence      = Phase{Name: "persistence", Label: "Saving results", Weight: 0.10}
	AnalysisPipeline = []Phase{Discovery, Clustering, QualityAnalysis, Ranking, Persistence}
)

// Tracker reports the weighted sum of phase progress. Reports never go backwards.
type Tracker struct {
	mu       sync.Mutex
	fn       Func
	offsets  map[string]float64
	weights  map[string]float64
	total    float64
	reported int
}

// NewTracker creates a tracker over phases. Weights are normalised, so they
// need not sum to one. A nil fn makes every report a no-op.
func NewTracker(fn Func, phases ...Phase) *Tracker {
	t := &Tracker{
		fn:      fn,
		offsets: make(map[string]float64, len(phases)),
		weights: make(map[string]float64, len(phases)),
	}
	for _, p := range phases {
		t.total += p.Weight
	}
	var offset float64
	for _, p := range phases {
		w := 0.0
		if t.total > 0 {
			w = p.Weight / t.total
		}
		t.offsets[p.Name] = offset
		t.weights[p.Name] = w
		offset += w
	}
	return t
}

// Update reports done of total items of phase p.
func (t *Tracker) Update(p Phase, done, total int) {
	if t == nil {
		return
	}
	frac := 1.0
	if total > 0 {
		frac = math.Min(1, math.Max(0, float64(done)/float64(total)))
	}
	text := p.Label
	if total > 0 {
		text = fmt.Sprintf("%s (%d/%d)", p.Label, done, total)
	}
	t.report(p, frac, text)
}

// Complete marks phase p as finished.
func (t *Tracker) Complete(p Phase) {
	if t == nil {
		return
	}
	t.report(p, 1, p.Label)
}

// Reporter returns a (done, total) callback bound to phase p.
func (t *Tracker) Reporter(p Phase) func(done, total int) {
	return func(done, total int) { t.Update(p, done, total) }
}

func (t *Tracker) report(p Phase, frac float64, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fn == nil {
		return
	}
	offset, ok := t.offsets[p.Name]
	if !ok {
		return
	}
	completed := int(math.Round((offset + t.weights[p.Name]*frac) * Scale))
	if completed < t.reported {
		completed = t.reported
	}
	t.reported = completed
	t.fn(completed, Scale, text)
}
