package service

import (
	"sync"
	"time"

	"github.com/raphaelgruber/cloudcast/internal/models"
	"github.com/raphaelgruber/cloudcast/internal/sequencer"
)

// run is the mutable state of one processing run. Callers outside the
// engine only ever see snapshots.
type run struct {
	mu   sync.RWMutex
	snap models.RunSnapshot
}

func newRun(id string, generation uint64, images, totalStages int) *run {
	return &run{snap: models.RunSnapshot{
		ID:          id,
		Generation:  generation,
		Status:      models.RunStatusRunning,
		TotalStages: totalStages,
		Active:      true,
		ImageCount:  images,
		StartedAt:   time.Now(),
	}}
}

func (r *run) generation() uint64 {
	return r.snap.Generation
}

// advance records a stage transition. Percent never moves backwards.
func (r *run) advance(p sequencer.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snap.StageIndex = p.Index
	r.snap.TotalStages = p.Total
	r.snap.StageKey = p.Stage.Key
	r.snap.StageLabel = p.Stage.Label
	if p.Percent > r.snap.Percent {
		r.snap.Percent = p.Percent
	}
}

// finish moves the run to a terminal status and marks it inactive.
func (r *run) finish(status models.RunStatus, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snap.Status != models.RunStatusRunning {
		return
	}
	r.snap.Status = status
	r.snap.Active = false
	now := time.Now()
	r.snap.CompletedAt = &now
	if err != nil {
		r.snap.Error = err.Error()
	}
}

// Snapshot returns a thread-safe copy of run state.
func (r *run) Snapshot() models.RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}
