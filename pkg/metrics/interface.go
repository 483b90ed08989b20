package metrics

import (
	"time"

	"github.com/ottermq/otterconf/internal/core/models"
)

// Recorder receives the measurements of reconciliation runs.
// This interface allows for easy mocking in tests.
type Recorder interface {
	// RecordOutcome counts one declared object handled by a run.
	RecordOutcome(kind models.Kind, outcome models.Outcome)
	// RecordFetchError counts a failed attempt to read existing objects.
	RecordFetchError(kind models.Kind)
	// ObservePass records how long the pass over one kind took.
	ObservePass(kind models.Kind, elapsed time.Duration)
	// RecordRun records a finished run.
	RecordRun(mode string, errors int, elapsed time.Duration)
}

// Ensure Collector implements Recorder
var _ Recorder = (*Collector)(nil)

// Discard drops every measurement.
var Discard Recorder = nopRecorder{}

type nopRecorder struct{}

func (nopRecorder) RecordOutcome(models.Kind, models.Outcome) {}
func (nopRecorder) RecordFetchError(models.Kind)              {}
func (nopRecorder) ObservePass(models.Kind, time.Duration)    {}
func (nopRecorder) RecordRun(string, int, time.Duration)      {}
