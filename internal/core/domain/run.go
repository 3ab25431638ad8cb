package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus describes how a fetch run ended
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusEmpty     RunStatus = "empty"
	RunStatusFailed    RunStatus = "failed"
)

// String returns the string representation of RunStatus
func (s RunStatus) String() string {
	return string(s)
}

// IsFinished reports whether the run has ended
func (s RunStatus) IsFinished() bool {
	return s == RunStatusCompleted || s == RunStatusEmpty || s == RunStatusFailed
}

// Run is the history entry of one fetch run
type Run struct {
	ID         string
	Slug       string
	Address    string
	Chain      string
	Directory  string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time

	Attempted      int
	Fetched        int
	NotFound       int
	Failed         int
	DownloadFailed int
	LastError      string
}

// NewRun starts a run record for the given slug
func NewRun(slug, directory string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Slug:      slug,
		Directory: directory,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the end time and final status
func (r *Run) Finish(status RunStatus) {
	r.Status = status
	r.FinishedAt = time.Now().UTC()
}

// Duration returns how long the run took, or time so far
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
