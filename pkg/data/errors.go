package data

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("not found")

// DuplicateEntryError reports a natural-key collision during a chunk insert.
// ExternalID identifies the offending item so the coordinator can single it
// out and re-run the rest of the chunk.
type DuplicateEntryError struct {
	Kind       MediaKind
	ExternalID int64
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("duplicate %s entry: external id %d already exists", e.Kind, e.ExternalID)
}

// IsDuplicate reports whether err is a natural-key collision.
func IsDuplicate(err error) bool {
	var dup *DuplicateEntryError
	return errors.As(err, &dup)
}

// isDuplicateKey detects DuckDB unique-constraint violations. The driver
// surfaces them as plain errors, so message sniffing is the only option.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "Constraint Error")
}
