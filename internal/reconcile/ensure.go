package reconcile

import (
	"fmt"

	"github.com/ottermq/otterconf/internal/core/models"
)

// resource is a declared value that can be compared with its observed counterpart.
type resource[T any] interface {
	Equal(T) bool
	fmt.Stringer
}

// ensurePresent decides what to do with one declared object given what the
// broker reported for its key. A nil create means the run is read-only and
// absent objects are only reported as missing.
func ensurePresent[T resource[T]](kind models.Kind, key string, declared, observed T, found bool, create func() error) (models.Outcome, error) {
	if found {
		if observed.Equal(declared) {
			return models.OutcomeUnchanged, nil
		}
		return models.OutcomeConflict, &ConflictError{
			Kind:     kind,
			Key:      key,
			Observed: observed.String(),
			Expected: declared.String(),
		}
	}
	if create == nil {
		return models.OutcomeMissing, nil
	}
	if err := create(); err != nil {
		return models.OutcomeFailed, &CreateError{Kind: kind, Key: key, Err: err}
	}
	return models.OutcomeCreated, nil
}
