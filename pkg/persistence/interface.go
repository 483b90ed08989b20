package persistence

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Journal defines the interface for all run journal backends
type Journal interface {
	// BeginRun records a run that has started.
	BeginRun(run Run) error
	// RecordObject records the outcome of one declared object in a started run.
	RecordObject(entry ObjectEntry) error
	// FinishRun marks a run as finished with the number of errors it reported.
	FinishRun(runID string, finishedAt time.Time, errors int) error

	// Runs returns up to limit runs, most recent first. limit <= 0 means all.
	Runs(limit int) ([]Run, error)
	// Objects returns the entries of a run in the order they were recorded.
	Objects(runID string) ([]ObjectEntry, error)

	// Lifecycle
	Initialize() error
	Close() error
}

// Config for journal implementations
type Config struct {
	Type string `json:"type"` // "sqlite", "json" or "none"
	Path string `json:"path"` // database file for sqlite, directory for json
}
