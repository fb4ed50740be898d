package services

import "fmt"

// ValidationError marks a malformed ingestion item. It is never retried; the
// item is reported back as invalid.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid entry: %s %s", e.Field, e.Reason)
}
