// Package sequencer advances a processing run through its fixed list of
// simulated stages, pausing a random amount of time after each one.
package sequencer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/raphaelgruber/cloudcast/internal/models"
)

// Stage is one named step of the simulated pipeline.
type Stage struct {
	Key   string
	Label string
}

// DefaultStages is the fixed stage order. Stages are never skipped or reordered.
var DefaultStages = []Stage{
	{Key: "load", Label: "Loading images..."},
	{Key: "preprocess", Label: "Preprocessing images (resize, normalize)..."},
	{Key: "init-model", Label: "Initializing UNet Conditional Diffusion Model..."},
	{Key: "encode-temporal", Label: "Encoding temporal features..."},
	{Key: "forward-pass", Label: "Running diffusion forward pass..."},
	{Key: "generate-frames", Label: "Generating predicted frames..."},
	{Key: "compute-metrics", Label: "Calculating evaluation metrics..."},
	{Key: "finalize", Label: "Finalizing results..."},
}

// DelayWindow bounds the pause after each stage.
type DelayWindow struct {
	Min time.Duration
	Max time.Duration
}

// DefaultDelayWindow matches the 800-1200ms pacing of the demo.
var DefaultDelayWindow = DelayWindow{Min: 800 * time.Millisecond, Max: 1200 * time.Millisecond}

// Validate checks the window is non-negative and ordered.
func (w DelayWindow) Validate() error {
	if w.Min < 0 || w.Max < 0 {
		return fmt.Errorf("delay window must be non-negative, got [%s, %s]", w.Min, w.Max)
	}
	if w.Max < w.Min {
		return fmt.Errorf("delay window max %s is below min %s", w.Max, w.Min)
	}
	return nil
}

// Sample draws a duration uniformly from [Min, Max].
func (w DelayWindow) Sample(rng *rand.Rand) time.Duration {
	span := w.Max - w.Min
	if span <= 0 {
		return w.Min
	}
	return w.Min + time.Duration(rng.Float64()*float64(span))
}

// Progress describes a stage transition. It is reported before the stage's pause.
type Progress struct {
	Index   int
	Total   int
	Stage   Stage
	Percent float64
}

// Final reports whether this is the last stage of the run.
func (p Progress) Final() bool {
	return p.Index == p.Total-1
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sequencer runs the stage list. It holds no per-run state and is safe for
// concurrent use as long as each run brings its own random source.
type Sequencer struct {
	stages []Stage
	window DelayWindow
	sleep  SleepFunc
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithStages overrides the stage list.
func WithStages(stages []Stage) Option {
	return func(s *Sequencer) {
		s.stages = stages
	}
}

// WithSleep overrides the pause implementation (tests).
func WithSleep(fn SleepFunc) Option {
	return func(s *Sequencer) {
		s.sleep = fn
	}
}

// New creates a sequencer with the given delay window.
func New(window DelayWindow, opts ...Option) *Sequencer {
	s := &Sequencer{
		stages: DefaultStages,
		window: window,
		sleep:  timerSleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stages returns a copy of the configured stage list.
func (s *Sequencer) Stages() []Stage {
	out := make([]Stage, len(s.stages))
	copy(out, s.stages)
	return out
}

// Window returns the configured delay window.
func (s *Sequencer) Window() DelayWindow {
	return s.window
}

// Run walks every stage in order. For each stage it calls report with the new
// label and percentage, then pauses. It returns ctx.Err() if the run is
// cancelled during a pause; the pending timer is released.
func (s *Sequencer) Run(ctx context.Context, imageCount int, rng *rand.Rand, report func(Progress)) error {
	if imageCount < 1 {
		return fmt.Errorf("start sequence with %d images: %w", imageCount, models.ErrInvalidInput)
	}

	total := len(s.stages)
	for i, stage := range s.stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		if report != nil {
			report(Progress{
				Index:   i,
				Total:   total,
				Stage:   stage,
				Percent: Percent(i, total),
			})
		}

		if err := s.sleep(ctx, s.window.Sample(rng)); err != nil {
			return err
		}
	}
	return nil
}

// Percent returns the completion percentage after stage index of total.
// The last stage always yields exactly 100.
func Percent(index, total int) float64 {
	if total <= 0 || index >= total-1 {
		return 100
	}
	return 100 * float64(index+1) / float64(total)
}

func timerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
