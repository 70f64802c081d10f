package lending

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/queue"
)

// ExpireReservations cancels ready reservations whose pickup
// deadline has passed and hands the freed copy to the next queued
// user.  It returns the number of reservations expired.  Each
// reservation is re-checked under its book lock so a pickup racing
// the sweep wins cleanly.
func (e *Engine) ExpireReservations(ctx context.Context) (int, error) {
	now := e.now().UTC()
	expired, err := e.reservations.ListExpiredReady(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire reservations: list: %w", err)
	}

	count := 0
	for i := range expired {
		id := expired[i].ID
		bookID := expired[i].BookID

		unlock := e.bookLocks.Lock(bookID)
		res, err := e.reservations.GetReservation(ctx, id)
		if err != nil || res.Status != model.ReservationReady || res.ExpiryDate.After(now) {
			unlock()
			continue
		}
		res.Status = model.ReservationCanceled
		if err := e.reservations.UpdateReservation(ctx, res); err != nil {
			unlock()
			log.Printf("lending: expire reservation %d: %v", id, err)
			continue
		}
		count++

		e.notify(ctx, &model.Notification{
			UserID:  res.UserID,
			Title:   "Reservation Expired",
			Message: "Your reserved book was not picked up in time and the reservation was canceled.",
			Type:    model.NotificationSystem,
			RelatedData: map[string]uint64{
				"reservation_id": res.ID,
				"book_id":        bookID,
			},
		})

		if book, err := e.books.GetBook(ctx, bookID); err == nil && book.CopiesAvailable > 0 {
			e.promoteNext(ctx, book)
		}
		unlock()
	}
	return count, nil
}

// SendDueReminders emits one due_date notification and one reminder
// email event for every active loan due within the next three days.
// A transaction is reminded at most once, tracked through the
// notification's related data.  It returns the number of reminders
// sent.
func (e *Engine) SendDueReminders(ctx context.Context) (int, error) {
	now := e.now().UTC()
	due, err := e.transactions.ListActiveDueBetween(ctx, now, now.Add(DueSoonWindow))
	if err != nil {
		return 0, fmt.Errorf("due reminders: list: %w", err)
	}

	count := 0
	for i := range due {
		txn := &due[i]
		sent, err := e.notifications.DueReminderSent(ctx, txn.ID)
		if err != nil {
			log.Printf("lending: check reminder for transaction %d: %v", txn.ID, err)
			continue
		}
		if sent {
			continue
		}

		book, err := e.books.GetBook(ctx, txn.BookID)
		if err != nil {
			log.Printf("lending: load book %d for reminder: %v", txn.BookID, err)
			continue
		}
		e.notify(ctx, &model.Notification{
			UserID:  txn.UserID,
			Title:   "Book Due Soon",
			Message: fmt.Sprintf("%q is due on %s. Return it in time to avoid late fees.", book.Title, txn.DueDate.Format("Jan 2, 2006")),
			Type:    model.NotificationDueDate,
			RelatedData: map[string]uint64{
				"transaction_id": txn.ID,
				"book_id":        book.ID,
				"reminder":       1,
			},
		})
		count++

		if user, err := e.users.GetUser(ctx, txn.UserID); err == nil {
			e.publish(ctx, queue.NotificationEvent{
				Kind:       queue.KindDueReminder,
				Email:      user.Email,
				UserName:   user.Name,
				BookTitle:  book.Title,
				BookAuthor: book.Author,
				DueDate:    txn.DueDate.Format(time.RFC3339),
				OccurredAt: now.Format(time.RFC3339),
			})
		}
	}
	return count, nil
}

// RunSweeper blocks, running both sweeps every interval until the
// context is canceled.  Intended to be started as a goroutine from
// main.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := e.ExpireReservations(ctx); err != nil {
				log.Printf("sweeper: expire reservations: %v", err)
			} else if n > 0 {
				log.Printf("sweeper: expired %d reservation(s)", n)
			}
			if n, err := e.SendDueReminders(ctx); err != nil {
				log.Printf("sweeper: due reminders: %v", err)
			} else if n > 0 {
				log.Printf("sweeper: sent %d due reminder(s)", n)
			}
		}
	}
}
