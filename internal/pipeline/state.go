package pipeline

import (
	"context"
	"time"

	"eraser/internal/jobstore"
)

// State is a job lifecycle position.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateResolving  State = "resolving"
	StateStreaming  State = "streaming"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether s ends the job.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

func (s State) persisted() jobstore.State {
	return jobstore.State(s)
}

// Transition describes one state change.
type Transition struct {
	JobID string
	From  State
	To    State
	At    time.Time
	// Err is set when To is StateFailed.
	Err error
}

// Observer receives job events. Calls happen on the orchestrating goroutine.
type Observer interface {
	StateChanged(ctx context.Context, t Transition)
	Progress(ctx context.Context, done, total int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) StateChanged(context.Context, Transition) {}

func (NopObserver) Progress(context.Context, int, int) {}

// Recorder persists job history. *jobstore.Store satisfies it.
type Recorder interface {
	CreateJob(ctx context.Context, job *jobstore.Job) error
	UpdateJob(ctx context.Context, job *jobstore.Job) error
}
