package model

import "time"

// Reservation status values.  A reservation starts pending, is
// promoted to ready when a copy comes back and it is the oldest
// pending entry for the book, and terminates as completed (borrowed
// from the reservation), canceled (explicitly or by expiry sweep).
const (
	ReservationPending   = "pending"
	ReservationReady     = "ready"
	ReservationCanceled  = "canceled"
	ReservationCompleted = "completed"
)

// BookReservation is a queued request for a currently unavailable
// book.  The queue is FIFO by ReservationDate with ties broken by
// the lower id.  This struct corresponds to a row in the
// `book_reservations` table.
//
// Fields:
//  ID              – primary key identifier.
//  BookID          – reserved book.
//  UserID          – reserving user.
//  ReservationDate – when the user joined the queue.
//  ExpiryDate      – pickup deadline; reset to promotion time + 3
//                    days when the reservation becomes ready.
//  Status          – pending, ready, canceled or completed.
//  NotifiedAt      – when the "book available" notice went out (nil
//                    until promoted).
type BookReservation struct {
	ID              uint64     `json:"id"`                    // book_reservations.id
	BookID          uint64     `json:"book_id"`               // book_reservations.book_id
	UserID          uint64     `json:"user_id"`               // book_reservations.user_id
	ReservationDate time.Time  `json:"reservation_date"`      // book_reservations.reservation_date
	ExpiryDate      time.Time  `json:"expiry_date"`           // book_reservations.expiry_date
	Status          string     `json:"status"`                // book_reservations.status
	NotifiedAt      *time.Time `json:"notified_at,omitempty"` // book_reservations.notified_at (nullable)
}

// Active reports whether the reservation still occupies a queue
// slot (pending or ready).
func (r *BookReservation) Active() bool {
	return r.Status == ReservationPending || r.Status == ReservationReady
}
