package entities

import "time"

// RunStatus represents the outcome of a verification run
type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusPassed  RunStatus = "passed"
	RunStatusFailed  RunStatus = "failed"
)

// StepResult represents the outcome of one step
type StepResult struct {
	Index     int           `json:"index"`
	Name      string        `json:"name"`
	Type      StepType      `json:"type"`
	Passed    bool          `json:"passed"`
	Duration  time.Duration `json:"duration"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Report represents one verification run
type Report struct {
	ID         string       `json:"id"`
	Scenario   string       `json:"scenario"`
	Driver     string       `json:"driver"`
	Status     RunStatus    `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Steps      []StepResult `json:"steps"`
	Screenshot string       `json:"screenshot,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Duration returns how long the run took
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Passed reports whether every step succeeded
func (r *Report) Passed() bool {
	return r.Status == RunStatusPassed
}
