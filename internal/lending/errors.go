// Package lending implements the borrow/return/reservation
// lifecycle: copy accounting, per-user limits, FIFO queue promotion,
// fine computation and the notifications those transitions emit.
package lending

import (
	"errors"

	"github.com/iliyamo/university-library/internal/repository"
)

// Sentinel errors returned by engine operations.  All of them are
// recoverable and user-facing; callers wrap them into HTTP status
// codes.  Operations attach detail with fmt.Errorf("%w: ...") so
// errors.Is keeps working on the wrapped value.
var (
	// ErrInsufficientCopies means every copy is checked out; the
	// remedy is to reserve instead.
	ErrInsufficientCopies = errors.New("no copies available")

	// ErrLimitExceeded means the user is at their borrowing cap.
	// The wrapped message states the numeric cap.
	ErrLimitExceeded = errors.New("borrowing limit reached")

	// ErrAlreadyReturned means the transaction has already reached
	// its terminal state; a second return mutates nothing.
	ErrAlreadyReturned = errors.New("book already returned")

	// ErrConflict means the requested transition is invalid for the
	// entity's current state (reserving an available book, borrowing
	// from a non-ready reservation, ...).
	ErrConflict = errors.New("conflict")

	// ErrForbidden means the actor lacks rights over the target
	// entity.
	ErrForbidden = errors.New("forbidden")
)

// isNotFound reports whether err denotes a missing entity in any
// store backend.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
