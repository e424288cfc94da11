package storage

import (
	"context"
	"errors"
	"time"

	"factlint/internal/ir"
	"factlint/internal/report"
)

var ErrRunNotFound = errors.New("run not found")

// Store keeps the history of analysis runs.
type Store interface {
	RunStore
	Close() error
}

// RunStore defines operations for persisting analysis runs.
type RunStore interface {
	// SaveRun stores the report under a new run and fills run.ID.
	SaveRun(ctx context.Context, run *Run, rep *report.Report) error

	// LoadRun returns a run and its report. ref is a run ID, a unique ID
	// prefix or "latest".
	LoadRun(ctx context.Context, ref string) (*Run, *report.Report, error)

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// DiffRuns compares the findings of two runs by fingerprint.
	DiffRuns(ctx context.Context, base, head string) (*Diff, error)
}

// Run describes one invocation of the analyzer.
type Run struct {
	ID        string         `json:"id"`
	StartedAt time.Time      `json:"started_at"`
	Root      string         `json:"root"`
	Revision  string         `json:"revision,omitempty"`
	Rules     []string       `json:"rules"`
	Summary   report.Summary `json:"summary"`
}

// Diff is the change in findings from Base to Head.
type Diff struct {
	Base      string       `json:"base"`
	Head      string       `json:"head"`
	New       []ir.Finding `json:"new"`
	Fixed     []ir.Finding `json:"fixed"`
	Unchanged int          `json:"unchanged"`
}
