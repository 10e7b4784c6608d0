package jobstore

import (
	"strings"
	"time"
)

// State mirrors the pipeline lifecycle for persisted jobs.
type State string

const (
	StateValidating State = "validating"
	StateResolving  State = "resolving"
	StateStreaming  State = "streaming"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ParseState normalizes a user-supplied state filter. Unknown values report false.
func ParseState(value string) (State, bool) {
	state := State(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range AllStates() {
		if state == known {
			return state, true
		}
	}
	return "", false
}

// AllStates lists every persisted state in lifecycle order.
func AllStates() []State {
	return []State{StateValidating, StateResolving, StateStreaming, StateFinalizing, StateDone, StateFailed}
}

// Job is one recorded reconstruction run.
type Job struct {
	ID           string
	InputPath    string
	OutputPath   string
	RegionKind   string
	Quality      string
	User         string
	State        State
	FramesDone   int
	FramesTotal  int
	ErrorKind    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// Progress returns the completed fraction in [0, 1].
func (j *Job) Progress() float64 {
	if j == nil || j.FramesTotal <= 0 {
		return 0
	}
	p := float64(j.FramesDone) / float64(j.FramesTotal)
	return min(1, max(0, p))
}

// Duration returns the elapsed time for finished jobs and zero otherwise.
func (j *Job) Duration() time.Duration {
	if j == nil || j.FinishedAt == nil || j.CreatedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.CreatedAt)
}

// User is an access-control account.
type User struct {
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
