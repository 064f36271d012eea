package workflowerrors

import "fmt"

// DeterminismError indicates that during replay the workflow code produced a
// different operation than the one recorded in the instance history. It is
// always permanent; a retry would deterministically hit the same mismatch.
type DeterminismError struct {
	message string
}

func (de *DeterminismError) Error() string {
	return de.message
}

var _ error = (*DeterminismError)(nil)

// NewDeterminismError creates an error describing the mismatch between the
// command the code path produced and the event found in the recorded history.
func NewDeterminismError(expected, observed string) error {
	return &DeterminismError{
		message: fmt.Sprintf("non-deterministic workflow execution: expected %s, history contains %s", expected, observed),
	}
}

// IsDeterminismError reports whether err is a determinism violation.
func IsDeterminismError(err error) bool {
	_, ok := err.(*DeterminismError)
	return ok
}
