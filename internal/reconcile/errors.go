package reconcile

import (
	"fmt"
	"strings"

	"github.com/ottermq/otterconf/internal/core/models"
	"go.uber.org/multierr"
)

// ConfigError reports a declaration that cannot be reconciled as written.
type ConfigError struct {
	Kind models.Kind
	Key  string
	Err  error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// FetchError reports a failed read of existing objects. Scope names what was
// being read: empty for a whole-kind listing, a vhost or a resource key otherwise.
type FetchError struct {
	Kind  models.Kind
	Scope string
	Err   error
}

func (e *FetchError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("failed to fetch existing %s objects: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("failed to fetch existing %s '%s': %v", e.Kind, e.Scope, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CreateError reports a failed create call.
type CreateError struct {
	Kind models.Kind
	Key  string
	Err  error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("failed to create %s '%s': %v", e.Kind, e.Key, e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// ConflictError reports an existing object whose attributes differ from the
// declaration. The object is left as it is.
type ConflictError struct {
	Kind     models.Kind
	Key      string
	Observed string
	Expected string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s '%s' exists with conflicting configuration: observed %s, expected %s",
		e.Kind, e.Key, e.Observed, e.Expected)
}

// AggregateError carries every error of a run, in the order they occurred.
type AggregateError struct {
	err error
}

func (a *AggregateError) add(err error) {
	a.err = multierr.Append(a.err, err)
}

// Errors returns the individual errors.
func (a *AggregateError) Errors() []error {
	return multierr.Errors(a.err)
}

func (a *AggregateError) Len() int {
	return len(a.Errors())
}

func (a *AggregateError) Error() string {
	errs := a.Errors()
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("reconciliation failed with %d error(s): %s", len(errs), strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is and errors.As reach the individual errors.
func (a *AggregateError) Unwrap() []error {
	return a.Errors()
}
