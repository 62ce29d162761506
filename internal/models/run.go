package models

import "time"

// RunStatus represents the lifecycle state of a processing run.
type RunStatus string

const (
	RunStatusRunning    RunStatus = "running"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusSuperseded RunStatus = "superseded"
)

// RunSnapshot is a read-only copy of a processing run's state.
type RunSnapshot struct {
	ID          string     `json:"id"`
	Generation  uint64     `json:"generation"`
	Status      RunStatus  `json:"status"`
	StageIndex  int        `json:"stage_index"`
	TotalStages int        `json:"total_stages"`
	StageKey    string     `json:"stage_key"`
	StageLabel  string     `json:"stage_label"`
	Percent     float64    `json:"percent"`
	Active      bool       `json:"active"`
	ImageCount  int        `json:"image_count"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// IsTerminal reports whether the run has stopped for good.
func (r RunSnapshot) IsTerminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusSuperseded:
		return true
	}
	return false
}

// EventType identifies what an Event reports.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event is delivered to engine subscribers. Results is set only on
// EventCompleted, Error only on EventFailed.
type Event struct {
	Type    EventType      `json:"type"`
	Run     RunSnapshot    `json:"run"`
	Results *ResultsRecord `json:"results,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// EngineState is the snapshot handed to presentation layers.
type EngineState struct {
	Run     *RunSnapshot   `json:"run,omitempty"`
	Results *ResultsRecord `json:"results,omitempty"`
}
