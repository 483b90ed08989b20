package gateway

import "fmt"

// StatusError is returned when the management API answers with an unexpected status.
type StatusError struct {
	Method   string
	Path     string
	Status   int
	Expected []int
	Reason   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: response with HTTP status %d, expected %v", e.Method, e.Path, e.Status, e.Expected)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// MissingFieldError is returned before any request is sent when a declared
// object lacks a field the broker requires.
type MissingFieldError struct {
	Type  string
	Name  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s %s missing required field: %s", e.Type, e.Name, e.Field)
}

// DestinationTypeError is returned for a binding whose destination type is
// neither queue nor exchange.
type DestinationTypeError struct {
	Exchange string
	VHost    string
	Type     string
}

func (e *DestinationTypeError) Error() string {
	return fmt.Sprintf("unsupported destination_type '%s' for binding at %s@%s", e.Type, e.Exchange, e.VHost)
}
