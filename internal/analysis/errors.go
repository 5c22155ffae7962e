package analysis

import (
	"fmt"

	"github.com/ppiankov/sanhita/internal/reason"
)

// ErrNoProvider is returned when the delegated strategy is requested without
// a configured completion provider
var ErrNoProvider = reason.ErrNoProvider

// InputError reports a request rejected before any work was done
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

// ServiceError reports a reasoning-service failure. No partial result is
// returned alongside it.
type ServiceError struct {
	Stage string // summary, substantive or procedural
	Err   error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("reasoning service failed during %s: %v", e.Stage, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
