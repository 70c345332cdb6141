package progress

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// BarSink renders tracker output as a terminal progress bar.
type BarSink struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// NewBarSink creates a bar writing to w.
func NewBarSink(w io.Writer) *BarSink {
	bar := progressbar.NewOptions(Scale,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Starting"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &BarSink{bar: bar}
}

// Report satisfies Func.
func (b *BarSink) Report(completed, total int, phaseText string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar.Describe(phaseText)
	_ = b.bar.Set(completed)
}

// Finish completes the bar.
func (b *BarSink) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Finish()
}
