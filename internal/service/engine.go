// Package service orchestrates processing runs: it drives the stage
// sequencer, assembles the results record and publishes events.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/cloudcast/internal/evaluation"
	"github.com/raphaelgruber/cloudcast/internal/generator"
	"github.com/raphaelgruber/cloudcast/internal/intake"
	"github.com/raphaelgruber/cloudcast/internal/metrics"
	"github.com/raphaelgruber/cloudcast/internal/models"
	"github.com/raphaelgruber/cloudcast/internal/sequencer"
)

// DefaultMaxPredictions caps the number of predicted frames per run.
const DefaultMaxPredictions = 3

// Listener receives engine events. Calls are serialized; a listener must not
// block for long since it holds up every later event. A panicking listener is
// logged and skipped. Listeners must not call Close or Wait.
type Listener func(models.Event)

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Sequencer      *sequencer.Sequencer
	Generator      generator.PredictionGenerator
	Synthesizer    *evaluation.Synthesizer
	Collector      *metrics.Collector
	Logger         *slog.Logger
	MaxUploads     int
	MaxPredictions int
	// Seed fixes the per-run random streams (stage delays, metrics). Zero
	// draws a fresh seed per run.
	Seed uint64
}

// Engine runs at most one processing run at a time. Submitting a new batch
// supersedes the active run: its pending pause is cancelled and nothing it
// produces afterwards is published.
type Engine struct {
	seq            *sequencer.Sequencer
	gen            generator.PredictionGenerator
	synth          *evaluation.Synthesizer
	collector      *metrics.Collector
	logger         *slog.Logger
	maxUploads     int
	maxPredictions int
	seed           uint64

	mu         sync.RWMutex
	generation uint64
	current    *run
	results    *models.ResultsRecord
	cancel     context.CancelFunc
	listeners  map[int]Listener
	nextID     int
	closed     bool

	// emitMu serializes delivery so a stale event can never follow an
	// event of the run that replaced it.
	emitMu sync.Mutex
	wg     sync.WaitGroup
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		seq:            opts.Sequencer,
		gen:            opts.Generator,
		synth:          opts.Synthesizer,
		collector:      opts.Collector,
		logger:         opts.Logger,
		maxUploads:     opts.MaxUploads,
		maxPredictions: opts.MaxPredictions,
		seed:           opts.Seed,
		listeners:      make(map[int]Listener),
	}
	if e.seq == nil {
		e.seq = sequencer.New(sequencer.DefaultDelayWindow)
	}
	if e.gen == nil {
		e.gen = generator.NewMock()
	}
	if e.synth == nil {
		e.synth = evaluation.NewSynthesizer(evaluation.DefaultRanges)
	}
	if e.collector == nil {
		e.collector = metrics.NewCollector()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.maxUploads <= 0 {
		e.maxUploads = intake.MaxUploads
	}
	if e.maxPredictions <= 0 {
		e.maxPredictions = DefaultMaxPredictions
	}
	return e
}

// Collector returns the engine's statistics collector.
func (e *Engine) Collector() *metrics.Collector {
	return e.collector
}

// Stages returns the stage list runs walk through.
func (e *Engine) Stages() []sequencer.Stage {
	return e.seq.Stages()
}

// DelayWindow returns the pause bounds applied after each stage.
func (e *Engine) DelayWindow() sequencer.DelayWindow {
	return e.seq.Window()
}

// Subscribe registers a listener and returns a function that removes it.
func (e *Engine) Subscribe(l Listener) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Submit starts a run over batch, superseding any active run and clearing
// the previous results. An empty batch, or one larger than the accepted
// count, is rejected with models.ErrInvalidInput and changes nothing.
//
// The run outlives ctx; it ends on completion, failure, the next Submit or
// Close.
func (e *Engine) Submit(ctx context.Context, batch []models.UploadedImage) (models.RunSnapshot, error) {
	if len(batch) == 0 {
		return models.RunSnapshot{}, fmt.Errorf("submit empty batch: %w", models.ErrInvalidInput)
	}
	if len(batch) > e.maxUploads {
		return models.RunSnapshot{}, fmt.Errorf("submit %d images, at most %d accepted: %w", len(batch), e.maxUploads, models.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return models.RunSnapshot{}, err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return models.RunSnapshot{}, ErrClosed
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.generation++
	gen := e.generation

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := newRun(uuid.New().String()[:8], gen, len(batch), len(e.seq.Stages()))
	e.current = r
	e.results = nil
	e.cancel = cancel
	e.wg.Add(1)
	e.mu.Unlock()

	seed := e.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, gen))

	e.collector.Add(metrics.CountRunsStarted, 1)
	var bytes int
	for _, img := range batch {
		bytes += img.Size()
	}
	e.logger.Info("run started", "run_id", r.snap.ID, "generation", gen, "images", len(batch), "bytes", bytes)

	go e.execute(runCtx, r, batch, rng)
	return r.Snapshot(), nil
}

// Snapshot returns the current run and the latest results.
func (e *Engine) Snapshot() models.EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var state models.EngineState
	if e.current != nil {
		snap := e.current.Snapshot()
		state.Run = &snap
	}
	state.Results = e.results
	return state
}

// Results returns the latest published results record, or nil.
func (e *Engine) Results() *models.ResultsRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.results
}

// Wait blocks until no run is executing.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close cancels the active run and waits for it to stop. Nothing is
// published after Close returns. It must not be called from a Listener.
func (e *Engine) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		e.generation++
		if e.cancel != nil {
			e.cancel()
		}
	}
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Engine) isCurrent(gen uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return gen == e.generation
}

// deliver publishes the event built by build if gen is still current.
// build runs under the state lock so it may update engine state.
func (e *Engine) deliver(gen uint64, build func() models.Event) bool {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return false
	}
	ev := build()
	listeners := make([]Listener, 0, len(e.listeners))
	for id := 0; id < e.nextID; id++ {
		if l, ok := e.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	e.mu.Unlock()

	for _, l := range listeners {
		e.notify(l, ev)
	}
	return true
}

func (e *Engine) notify(l Listener, ev models.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("listener panicked", "run_id", ev.Run.ID, "event", ev.Type, "panic", rec)
		}
	}()
	l(ev)
}

func (e *Engine) execute(ctx context.Context, r *run, batch []models.UploadedImage, rng *rand.Rand) {
	defer e.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("run goroutine panicked", "run_id", r.snap.ID, "panic", rec)
			if !r.Snapshot().IsTerminal() {
				e.fail(r, fmt.Errorf("internal panic: %v", rec))
			}
		}
	}()

	gen := r.generation()
	start := time.Now()
	stageStart := start

	err := e.seq.Run(ctx, len(batch), rng, func(p sequencer.Progress) {
		if p.Index > 0 {
			e.collector.RecordTiming(metrics.OpStage, time.Since(stageStart))
		}
		stageStart = time.Now()

		e.deliver(gen, func() models.Event {
			r.advance(p)
			return models.Event{Type: models.EventProgress, Run: r.Snapshot()}
		})
		e.logger.Debug("stage", "run_id", r.snap.ID, "index", p.Index, "stage", p.Stage.Key, "percent", p.Percent)
	})
	if err != nil {
		if ctx.Err() != nil || !e.isCurrent(gen) {
			e.supersede(r)
			return
		}
		e.fail(r, err)
		return
	}
	e.collector.RecordTiming(metrics.OpStage, time.Since(stageStart))

	if !e.isCurrent(gen) {
		e.supersede(r)
		return
	}

	rec, err := e.assemble(ctx, r, batch, rng)
	if err != nil {
		if ctx.Err() != nil || !e.isCurrent(gen) {
			e.supersede(r)
			return
		}
		e.fail(r, err)
		return
	}

	published := e.deliver(gen, func() models.Event {
		e.results = rec
		r.finish(models.RunStatusCompleted, nil)
		return models.Event{Type: models.EventCompleted, Run: r.Snapshot(), Results: rec}
	})
	if !published {
		e.supersede(r)
		return
	}

	e.collector.RecordTiming(metrics.OpRun, time.Since(start))
	e.collector.Add(metrics.CountRunsCompleted, 1)
	e.logger.Info("run completed",
		"run_id", rec.RunID,
		"input_frames", len(rec.InputFrames),
		"predicted_frames", len(rec.PredictedFrames),
		"decode_failures", rec.DecodeFailures())
}

// assemble builds the results record once every stage has been reported.
func (e *Engine) assemble(ctx context.Context, r *run, batch []models.UploadedImage, rng *rand.Rand) (*models.ResultsRecord, error) {
	decodeStart := time.Now()
	inputs := intake.ToInputFrames(batch)
	e.collector.RecordTiming(metrics.OpDecode, time.Since(decodeStart))
	e.collector.Add(metrics.CountInputFrames, int64(len(inputs)))
	for _, f := range inputs {
		if f.Failed() {
			e.collector.Add(metrics.CountDecodeFailures, 1)
			e.logger.Warn("input frame not decodable", "run_id", r.snap.ID, "name", f.Name, "error", f.Error)
		}
	}

	count := min(e.maxPredictions, len(batch))
	renderStart := time.Now()
	predicted, err := e.gen.Predict(ctx, batch, count)
	if err != nil {
		return nil, fmt.Errorf("generate %d predictions: %w", count, err)
	}
	e.collector.RecordTiming(metrics.OpRender, time.Since(renderStart))
	e.collector.Add(metrics.CountPredictedFrames, int64(len(predicted)))

	return &models.ResultsRecord{
		RunID:           r.snap.ID,
		InputFrames:     inputs,
		PredictedFrames: predicted,
		Metrics:         e.synth.Metrics(rng),
		ProcessingTime:  e.synth.Elapsed(rng),
		CompletedAt:     time.Now(),
	}, nil
}

func (e *Engine) fail(r *run, err error) {
	published := e.deliver(r.generation(), func() models.Event {
		r.finish(models.RunStatusFailed, err)
		return models.Event{Type: models.EventFailed, Run: r.Snapshot(), Error: err.Error()}
	})
	if !published {
		e.supersede(r)
		return
	}
	e.collector.Add(metrics.CountRunsFailed, 1)
	e.logger.Error("run failed", "run_id", r.snap.ID, "error", err)
}

func (e *Engine) supersede(r *run) {
	r.finish(models.RunStatusSuperseded, nil)
	e.collector.Add(metrics.CountRunsSuperseded, 1)
	e.logger.Info("stale run discarded", "run_id", r.snap.ID, "generation", r.generation())
}
