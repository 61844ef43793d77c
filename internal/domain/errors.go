package domain

import "fmt"

// ValidationError names the specific field or token that failed
// validation. It is surfaced to callers verbatim, never coerced away.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
