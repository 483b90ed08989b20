package models

// Outcome is what a reconciliation run did with one declared object.
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeCreated   Outcome = "created"
	OutcomeMissing   Outcome = "missing" // absent, not created because the run is read-only
	OutcomeConflict  Outcome = "conflict"
	OutcomeFailed    Outcome = "failed"
	OutcomeInvalid   Outcome = "invalid"
)

var Outcomes = []Outcome{
	OutcomeUnchanged, OutcomeCreated, OutcomeMissing, OutcomeConflict, OutcomeFailed, OutcomeInvalid,
}

// IsError reports whether the outcome contributes an error to the run.
func (o Outcome) IsError() bool {
	return o == OutcomeConflict || o == OutcomeFailed || o == OutcomeInvalid
}
