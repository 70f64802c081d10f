package lending

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/queue"
)

// Loan and reservation timing rules.
const (
	// LoanPeriod is how long a borrowed copy may be kept.
	LoanPeriod = 14 * 24 * time.Hour
	// PickupWindow is how long a promoted reservation stays ready
	// before the expiry sweep cancels it.
	PickupWindow = 3 * 24 * time.Hour
	// DueSoonWindow is the horizon used for due-soon statistics and
	// the reminder sweep.
	DueSoonWindow = 3 * 24 * time.Hour
)

// Engine orchestrates borrow, return, reserve and queue-promotion
// transitions across the catalog and user stores.  Each mutating
// operation runs inside a critical section keyed on the book id
// (and the user id for the limit check), so two concurrent borrows
// of the last copy can never both succeed.  In-app notifications
// are written synchronously and are the authoritative delivery
// record; email events go to the broker fire-and-forget after the
// critical section.
type Engine struct {
	books         BookStore
	users         UserStore
	transactions  TransactionStore
	reservations  ReservationStore
	notifications NotificationStore
	events        EventPublisher // may be nil when no broker is configured

	bookLocks *keyedMutex
	userLocks *keyedMutex

	now func() time.Time // injectable clock for tests
}

// NewEngine constructs an Engine over the given stores.  The event
// publisher may be nil, in which case email events are dropped; all
// other dependencies must be non-nil.
func NewEngine(books BookStore, users UserStore, transactions TransactionStore, reservations ReservationStore, notifications NotificationStore, events EventPublisher) *Engine {
	if books == nil || users == nil || transactions == nil || reservations == nil || notifications == nil {
		panic("nil store passed to NewEngine")
	}
	return &Engine{
		books:         books,
		users:         users,
		transactions:  transactions,
		reservations:  reservations,
		notifications: notifications,
		events:        events,
		bookLocks:     newKeyedMutex(),
		userLocks:     newKeyedMutex(),
		now:           time.Now,
	}
}

// Borrow creates an active loan of one copy of the book to the
// user.  It fails with repository.ErrNotFound when the book or user
// does not exist, ErrInsufficientCopies when no copy is on the
// shelf, and ErrLimitExceeded when the user is at their borrowing
// cap.  On success the copy count is decremented, the user's
// borrowed count incremented, a transaction created with a due date
// 14 days out, and a due_date notification written for the user.
func (e *Engine) Borrow(ctx context.Context, bookID, userID uint64) (*model.BookTransaction, error) {
	unlockBook := e.bookLocks.Lock(bookID)
	defer unlockBook()
	unlockUser := e.userLocks.Lock(userID)
	defer unlockUser()

	book, err := e.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("borrow: book %d: %w", bookID, err)
	}
	if book.CopiesAvailable < 1 {
		return nil, fmt.Errorf("%w for %q, reserve instead", ErrInsufficientCopies, book.Title)
	}
	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("borrow: user %d: %w", userID, err)
	}
	if user.BorrowedCount >= user.MaxBooks {
		return nil, fmt.Errorf("%w: maximum of %d books", ErrLimitExceeded, user.MaxBooks)
	}
	return e.createLoan(ctx, book, user)
}

// createLoan applies the shared borrow effects: decrement
// availability, increment the user's count, insert the transaction
// and write the due_date notification.  The caller must hold both
// entity locks and have validated availability and the limit.  If a
// step after the copy decrement fails, the decrement is rolled back
// so the invariant "one decrement per active transaction" holds.
func (e *Engine) createLoan(ctx context.Context, book *model.Book, user *model.User) (*model.BookTransaction, error) {
	if _, err := e.books.AdjustCopies(ctx, book.ID, -1); err != nil {
		return nil, fmt.Errorf("borrow: adjust copies: %w", err)
	}
	if err := e.users.AdjustBorrowedCount(ctx, user.ID, +1); err != nil {
		if _, rbErr := e.books.AdjustCopies(ctx, book.ID, +1); rbErr != nil {
			log.Printf("lending: rollback of copy count for book %d failed: %v", book.ID, rbErr)
		}
		return nil, fmt.Errorf("borrow: adjust borrowed count: %w", err)
	}

	now := e.now().UTC()
	txn := &model.BookTransaction{
		BookID:    book.ID,
		UserID:    user.ID,
		IssueDate: now,
		DueDate:   now.Add(LoanPeriod),
		Status:    model.TransactionActive,
	}
	if err := e.transactions.CreateTransaction(ctx, txn); err != nil {
		if _, rbErr := e.books.AdjustCopies(ctx, book.ID, +1); rbErr != nil {
			log.Printf("lending: rollback of copy count for book %d failed: %v", book.ID, rbErr)
		}
		if rbErr := e.users.AdjustBorrowedCount(ctx, user.ID, -1); rbErr != nil {
			log.Printf("lending: rollback of borrowed count for user %d failed: %v", user.ID, rbErr)
		}
		return nil, fmt.Errorf("borrow: create transaction: %w", err)
	}

	e.notify(ctx, &model.Notification{
		UserID:  user.ID,
		Title:   "Book Borrowed",
		Message: fmt.Sprintf("You borrowed %q. It is due on %s.", book.Title, txn.DueDate.Format("Jan 2, 2006")),
		Type:    model.NotificationDueDate,
		RelatedData: map[string]uint64{
			"transaction_id": txn.ID,
			"book_id":        book.ID,
		},
	})
	return txn, nil
}

// Return closes an active loan.  The actor must be the borrower or
// hold a faculty/admin role.  It fails with repository.ErrNotFound
// when the transaction does not exist, ErrAlreadyReturned on a
// second return, and ErrForbidden when the actor lacks rights.  On
// success the copy count is incremented, the borrower's count
// decremented (floored at zero), the fine computed, and the oldest
// pending reservation for the book promoted to ready.
func (e *Engine) Return(ctx context.Context, transactionID, actorID uint64, actorRole model.Role) (*model.BookTransaction, error) {
	txn, err := e.transactions.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("return: transaction %d: %w", transactionID, err)
	}
	if !actorRole.CanActFor(actorID, txn.UserID) {
		return nil, fmt.Errorf("%w: you can only return your own borrowed books", ErrForbidden)
	}

	unlockBook := e.bookLocks.Lock(txn.BookID)
	defer unlockBook()
	unlockUser := e.userLocks.Lock(txn.UserID)
	defer unlockUser()

	// Re-read inside the critical section so a concurrent return of
	// the same transaction cannot double-apply the effects.
	txn, err = e.transactions.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("return: transaction %d: %w", transactionID, err)
	}
	if txn.Status == model.TransactionReturned {
		return nil, ErrAlreadyReturned
	}

	book, err := e.books.AdjustCopies(ctx, txn.BookID, +1)
	if err != nil {
		return nil, fmt.Errorf("return: adjust copies: %w", err)
	}
	if err := e.users.AdjustBorrowedCount(ctx, txn.UserID, -1); err != nil {
		return nil, fmt.Errorf("return: adjust borrowed count: %w", err)
	}

	now := e.now().UTC()
	returnDate := now
	txn.ReturnDate = &returnDate
	txn.FineAmount = Fine(txn.DueDate, now)
	txn.Status = model.TransactionReturned
	if err := e.transactions.UpdateTransaction(ctx, txn); err != nil {
		// The loan is still active; put the copy back off the shelf
		// and restore the borrower's count.
		if _, rbErr := e.books.AdjustCopies(ctx, txn.BookID, -1); rbErr != nil {
			log.Printf("lending: rollback of copy count for book %d failed: %v", txn.BookID, rbErr)
		}
		if rbErr := e.users.AdjustBorrowedCount(ctx, txn.UserID, +1); rbErr != nil {
			log.Printf("lending: rollback of borrowed count for user %d failed: %v", txn.UserID, rbErr)
		}
		return nil, fmt.Errorf("return: update transaction: %w", err)
	}

	if txn.FineAmount > 0 {
		e.notify(ctx, &model.Notification{
			UserID:  txn.UserID,
			Title:   "Overdue Fine",
			Message: fmt.Sprintf("You returned %q late and owe a fine of %.2f.", book.Title, txn.FineAmount),
			Type:    model.NotificationFine,
			RelatedData: map[string]uint64{
				"transaction_id": txn.ID,
				"book_id":        book.ID,
			},
		})
	}

	// A copy is back on the shelf; hand it to the front of the
	// reservation queue if anyone is waiting.
	e.promoteNext(ctx, book)
	return txn, nil
}

// promoteNext moves the oldest pending reservation for the book to
// ready, stamps the notification time and pickup deadline, writes
// the in-app notice and publishes the book-available email event.
// The caller must hold the book lock.  Promotion failures are
// logged, never propagated: the triggering return has already
// committed.
func (e *Engine) promoteNext(ctx context.Context, book *model.Book) {
	res, err := e.reservations.OldestPending(ctx, book.ID)
	if err != nil {
		if !isNotFound(err) {
			log.Printf("lending: find pending reservation for book %d: %v", book.ID, err)
		}
		return
	}

	now := e.now().UTC()
	notified := now
	res.Status = model.ReservationReady
	res.NotifiedAt = &notified
	res.ExpiryDate = now.Add(PickupWindow)
	if err := e.reservations.UpdateReservation(ctx, res); err != nil {
		log.Printf("lending: promote reservation %d: %v", res.ID, err)
		return
	}

	e.notify(ctx, &model.Notification{
		UserID:  res.UserID,
		Title:   "Book Available",
		Message: fmt.Sprintf("The book %q you reserved is now available for pickup.", book.Title),
		Type:    model.NotificationReservation,
		RelatedData: map[string]uint64{
			"reservation_id": res.ID,
			"book_id":        book.ID,
		},
	})

	if user, err := e.users.GetUser(ctx, res.UserID); err == nil {
		e.publish(ctx, queue.NotificationEvent{
			Kind:         queue.KindBookAvailable,
			Email:        user.Email,
			UserName:     user.Name,
			BookTitle:    book.Title,
			BookAuthor:   book.Author,
			BookLocation: book.Location,
			ExpiryDate:   res.ExpiryDate.Format(time.RFC3339),
			OccurredAt:   now.Format(time.RFC3339),
		})
	} else {
		log.Printf("lending: load user %d for availability email: %v", res.UserID, err)
	}
}

// Reserve queues the user for a currently unavailable book.  It
// fails with repository.ErrNotFound when the book does not exist
// and ErrConflict when a copy is available (borrow instead) or the
// user already holds a pending or ready reservation for the book;
// in the duplicate case the existing reservation is returned
// alongside the error.
func (e *Engine) Reserve(ctx context.Context, bookID, userID uint64) (*model.BookReservation, error) {
	unlock := e.bookLocks.Lock(bookID)
	defer unlock()

	book, err := e.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("reserve: book %d: %w", bookID, err)
	}
	if book.CopiesAvailable > 0 {
		return nil, fmt.Errorf("%w: book is available for borrowing, no need to reserve", ErrConflict)
	}
	if existing, err := e.reservations.ActiveReservationForUser(ctx, bookID, userID); err == nil {
		return existing, fmt.Errorf("%w: you already have a reservation for this book", ErrConflict)
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("reserve: check existing reservation: %w", err)
	}

	now := e.now().UTC()
	res := &model.BookReservation{
		BookID:          bookID,
		UserID:          userID,
		ReservationDate: now,
		// Placeholder until promotion resets it relative to the
		// notification time.
		ExpiryDate: now.Add(PickupWindow),
		Status:     model.ReservationPending,
	}
	if err := e.reservations.CreateReservation(ctx, res); err != nil {
		return nil, fmt.Errorf("reserve: create reservation: %w", err)
	}

	e.notify(ctx, &model.Notification{
		UserID:  userID,
		Title:   "Reservation Placed",
		Message: fmt.Sprintf("You were added to the reservation queue for %q.", book.Title),
		Type:    model.NotificationReservation,
		RelatedData: map[string]uint64{
			"reservation_id": res.ID,
			"book_id":        bookID,
		},
	})
	return res, nil
}

// BorrowFromReservation converts a ready reservation into an active
// loan for its owner.  It fails with repository.ErrNotFound when
// the reservation does not exist, ErrForbidden when the caller is
// not its owner, ErrConflict when the reservation is not ready or
// the copy has been taken by a walk-in borrower in the meantime,
// and ErrLimitExceeded at the borrowing cap.  On success the
// reservation is marked completed and a fresh transaction created.
func (e *Engine) BorrowFromReservation(ctx context.Context, reservationID, userID uint64) (*model.BookTransaction, error) {
	res, err := e.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("borrow from reservation %d: %w", reservationID, err)
	}
	if res.UserID != userID {
		return nil, fmt.Errorf("%w: reservation belongs to another user", ErrForbidden)
	}

	unlockBook := e.bookLocks.Lock(res.BookID)
	defer unlockBook()
	unlockUser := e.userLocks.Lock(userID)
	defer unlockUser()

	res, err = e.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("borrow from reservation %d: %w", reservationID, err)
	}
	if res.Status != model.ReservationReady {
		return nil, fmt.Errorf("%w: reservation is %s, not ready", ErrConflict, res.Status)
	}

	book, err := e.books.GetBook(ctx, res.BookID)
	if err != nil {
		return nil, fmt.Errorf("borrow from reservation: book %d: %w", res.BookID, err)
	}
	// Promotion does not hold a copy out of the pool, so a walk-in
	// borrow may have taken it back.
	if book.CopiesAvailable < 1 {
		return nil, fmt.Errorf("%w: the reserved copy is no longer available", ErrConflict)
	}
	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("borrow from reservation: user %d: %w", userID, err)
	}
	if user.BorrowedCount >= user.MaxBooks {
		return nil, fmt.Errorf("%w: maximum of %d books", ErrLimitExceeded, user.MaxBooks)
	}

	txn, err := e.createLoan(ctx, book, user)
	if err != nil {
		return nil, err
	}
	res.Status = model.ReservationCompleted
	if err := e.reservations.UpdateReservation(ctx, res); err != nil {
		// The loan stands; the stale ready row will be caught by the
		// expiry sweep.
		log.Printf("lending: mark reservation %d completed: %v", res.ID, err)
	}
	return txn, nil
}

// CancelReservation cancels a pending or ready reservation.  The
// actor must be its owner or hold a faculty/admin role.  Canceling
// a ready reservation frees the shelf copy for the next queued
// user, so the queue head is re-promoted when possible.
func (e *Engine) CancelReservation(ctx context.Context, reservationID, actorID uint64, actorRole model.Role) (*model.BookReservation, error) {
	res, err := e.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("cancel reservation %d: %w", reservationID, err)
	}
	if !actorRole.CanActFor(actorID, res.UserID) {
		return nil, fmt.Errorf("%w: reservation belongs to another user", ErrForbidden)
	}

	unlock := e.bookLocks.Lock(res.BookID)
	defer unlock()

	res, err = e.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("cancel reservation %d: %w", reservationID, err)
	}
	if !res.Active() {
		return nil, fmt.Errorf("%w: reservation is already %s", ErrConflict, res.Status)
	}
	wasReady := res.Status == model.ReservationReady
	res.Status = model.ReservationCanceled
	if err := e.reservations.UpdateReservation(ctx, res); err != nil {
		return nil, fmt.Errorf("cancel reservation: update: %w", err)
	}

	if wasReady {
		if book, err := e.books.GetBook(ctx, res.BookID); err == nil && book.CopiesAvailable > 0 {
			e.promoteNext(ctx, book)
		}
	}
	return res, nil
}

// notify writes an in-app notification.  Creation failures are
// logged and swallowed: notifications are a side effect and must
// never fail or roll back the primary transition.
func (e *Engine) notify(ctx context.Context, n *model.Notification) {
	n.CreatedAt = e.now().UTC()
	if err := e.notifications.CreateNotification(ctx, n); err != nil {
		log.Printf("lending: create notification for user %d: %v", n.UserID, err)
	}
}

// publish posts an email event to the broker, logging failures.
func (e *Engine) publish(ctx context.Context, ev queue.NotificationEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		log.Printf("lending: publish %s event: %v", ev.Kind, err)
	}
}
