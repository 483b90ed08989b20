package persistence

import "time"

// Run is one apply or verify invocation.
type Run struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Source     string    `json:"source,omitempty"` // desired-state document
	Broker     string    `json:"broker,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Errors     int       `json:"errors"`
}

// Finished reports whether FinishRun has been recorded for the run.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// ObjectEntry is the outcome of one declared object within a run.
type ObjectEntry struct {
	RunID      string    `json:"run_id"`
	Kind       string    `json:"kind"`
	Key        string    `json:"key"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
