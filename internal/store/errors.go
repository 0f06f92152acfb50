package store

import (
	"errors"
	"fmt"
)

// Errors returned by EventRepository implementations. Match them with
// errors.Is; the text may carry detail about the offending event.
var (
	ErrNotFound = errors.New("store: event or series not found")
	// ErrConflict means the event's current state does not allow the write,
	// such as restoring an event that is not in the trash.
	ErrConflict = errors.New("store: conflicting event state")
	// ErrIdempotencyConflict means a create was retried with a known
	// idempotency key but different content.
	ErrIdempotencyConflict = errors.New("store: idempotency key reused with different content")
)

// Conflictf wraps ErrConflict with a description of the rejected write.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
