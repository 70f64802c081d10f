package lending

import (
	"context"
	"time"

	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/queue"
)

// The engine depends on these narrow store interfaces rather than
// concrete repositories, so the relational backend and the
// in-memory backend used by tests are interchangeable.  Every
// method that looks up a single entity returns
// repository.ErrNotFound (possibly wrapped) when the entity does
// not exist.

// BookStore provides the catalog reads and copy-count mutations the
// engine needs.
type BookStore interface {
	// GetBook returns the book with the given id.
	GetBook(ctx context.Context, id uint64) (*model.Book, error)
	// AdjustCopies applies delta to copies_available and returns the
	// updated book.  Implementations must keep the result within
	// [0, copies_total].
	AdjustCopies(ctx context.Context, id uint64, delta int) (*model.Book, error)
	// ListBooks returns a page of the catalog in insertion order.
	ListBooks(ctx context.Context, limit, offset int) ([]model.Book, error)
}

// UserStore provides the user reads and borrowed-count mutations
// the engine needs.
type UserStore interface {
	// GetUser returns the user with the given id.
	GetUser(ctx context.Context, id uint64) (*model.User, error)
	// AdjustBorrowedCount applies delta to borrowed_count, flooring
	// the result at zero.
	AdjustBorrowedCount(ctx context.Context, id uint64, delta int) error
}

// TransactionStore persists lending transactions.
type TransactionStore interface {
	// GetTransaction returns the transaction with the given id.
	GetTransaction(ctx context.Context, id uint64) (*model.BookTransaction, error)
	// CreateTransaction inserts a new transaction and assigns its ID.
	CreateTransaction(ctx context.Context, t *model.BookTransaction) error
	// UpdateTransaction overwrites the stored row for t.ID.
	UpdateTransaction(ctx context.Context, t *model.BookTransaction) error
	// ListTransactionsByUser returns all of a user's transactions,
	// newest first.
	ListTransactionsByUser(ctx context.Context, userID uint64) ([]model.BookTransaction, error)
	// ListActiveDueBetween returns active transactions whose due
	// date falls within [from, to], for the due-reminder sweep.
	ListActiveDueBetween(ctx context.Context, from, to time.Time) ([]model.BookTransaction, error)
}

// ReservationStore persists the per-book FIFO reservation queues.
type ReservationStore interface {
	// GetReservation returns the reservation with the given id.
	GetReservation(ctx context.Context, id uint64) (*model.BookReservation, error)
	// CreateReservation inserts a new reservation and assigns its ID.
	CreateReservation(ctx context.Context, r *model.BookReservation) error
	// UpdateReservation overwrites the stored row for r.ID.
	UpdateReservation(ctx context.Context, r *model.BookReservation) error
	// ListReservationsByUser returns all of a user's reservations,
	// regardless of status.
	ListReservationsByUser(ctx context.Context, userID uint64) ([]model.BookReservation, error)
	// ActiveReservationForUser returns the user's pending or ready
	// reservation for the book, if any.
	ActiveReservationForUser(ctx context.Context, bookID, userID uint64) (*model.BookReservation, error)
	// OldestPending returns the pending reservation for the book
	// with the earliest reservation date, ties broken by lowest id.
	OldestPending(ctx context.Context, bookID uint64) (*model.BookReservation, error)
	// ListExpiredReady returns ready reservations whose expiry date
	// is at or before cutoff.
	ListExpiredReady(ctx context.Context, cutoff time.Time) ([]model.BookReservation, error)
}

// NotificationStore persists the in-app notifications emitted by
// state transitions.  The stored row is the authoritative delivery
// record; email is best-effort on top of it.
type NotificationStore interface {
	// CreateNotification inserts a notification and assigns its ID.
	CreateNotification(ctx context.Context, n *model.Notification) error
	// DueReminderSent reports whether a due_date reminder
	// referencing the transaction has already been created.
	DueReminderSent(ctx context.Context, transactionID uint64) (bool, error)
}

// EventPublisher posts notification events to the message broker
// for asynchronous email delivery.  Publishing is fire-and-forget:
// the engine logs failures and never unwinds state because of them.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}
