package history

import "time"

// Outcome is how a launch attempt ended.
type Outcome string

const (
	OutcomeReady       Outcome = "ready"
	OutcomeReadyAssume Outcome = "ready_assumed"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeTerminated  Outcome = "terminated"
	OutcomeSpawnFailed Outcome = "spawn_failed"
	OutcomeWaitFailed  Outcome = "wait_failed"
)

// Attempt is one journal row.
type Attempt struct {
	ID         int64
	AttemptID  string
	Renderer   string
	StartedAt  time.Time
	FinishedAt time.Time
	PID        int
	Outcome    Outcome
	ErrorTimes int
	Detail     string
}

// Duration is the time from spawn to the recorded outcome.
func (a Attempt) Duration() time.Duration {
	if a.FinishedAt.Before(a.StartedAt) {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}
