package schema

import "fmt"

// NotFoundError signals that the raw definition backing a requested artifact
// does not exist. It is a configuration gap to surface to an operator, not a
// data-integrity bug.
type NotFoundError struct {
	Kind      Kind
	Namespace string
	Type      string
}

// Error ...
func (e *NotFoundError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema not found: %s/%s/%s", e.Namespace, e.Kind, e.Type)
	}
	return fmt.Sprintf("schema not found: %s/%s", e.Namespace, e.Kind)
}

// IsNotFound checks whether err is a schema NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// InvalidError signals that a raw definition exists but is structurally
// malformed. Unlike NotFoundError, this is a data-integrity bug.
type InvalidError struct {
	Kind      Kind
	Namespace string
	Type      string
	Reason    string
}

// Error ...
func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid schema definition %s/%s: %s", e.Namespace, e.Kind, e.Reason)
}

// IsInvalid checks whether err is a schema InvalidError.
func IsInvalid(err error) bool {
	_, ok := err.(*InvalidError)
	return ok
}

// CompositionError signals an irreconcilable conflict between the core and
// local definitions of the same key during a merge.
type CompositionError struct {
	Key string
}

// Error ...
func (e *CompositionError) Error() string {
	return fmt.Sprintf("schema composition conflict on %q", e.Key)
}

// IsComposition checks whether err is a CompositionError.
func IsComposition(err error) bool {
	_, ok := err.(*CompositionError)
	return ok
}

// UnsupportedVersionError signals a request for a schema version other than
// the fixed Version. It maps to a client error at the service boundary.
type UnsupportedVersionError struct {
	Requested string
}

// Error ...
func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported schema version %q, only %s is served", e.Requested, Version)
}
