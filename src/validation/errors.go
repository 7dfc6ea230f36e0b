package validation

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every constraint a payload violated, not just
// the first.
type ValidationError struct {
	Violations []string
}

// Error ...
func (e *ValidationError) Error() string {
	return fmt.Sprintf("incident validation failed: %s", strings.Join(e.Violations, "; "))
}

// IsValidation checks whether err is a ValidationError.
func IsValidation(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// UnknownContextError signals a payload declaring a context URL for which no
// checker is registered. During a pull this rejects the single item; when
// authoring it is a hard rejection.
type UnknownContextError struct {
	Context string
}

// Error ...
func (e *UnknownContextError) Error() string {
	return fmt.Sprintf("no schema registered for context %q", e.Context)
}

// IsUnknownContext checks whether err is an UnknownContextError.
func IsUnknownContext(err error) bool {
	_, ok := err.(*UnknownContextError)
	return ok
}
