package lending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/queue"
)

func TestExpireReservations(t *testing.T) {
	e, store, _, clock := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	borrower := store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})
	sleeper := store.AddUser(model.User{Name: "Bea"})
	next := store.AddUser(model.User{Name: "Cal"})

	txn, err := e.Borrow(ctx, book.ID, borrower.ID)
	require.NoError(t, err)
	stale, err := e.Reserve(ctx, book.ID, sleeper.ID)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = e.Reserve(ctx, book.ID, next.ID)
	require.NoError(t, err)
	_, err = e.Return(ctx, txn.ID, borrower.ID, model.RoleStudent)
	require.NoError(t, err)

	// Nothing to do while the pickup window is open.
	n, err := e.ExpireReservations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The sleeper never picks up; past the window the sweep cancels
	// the hold and promotes the next queued user.
	clock.Advance(PickupWindow + time.Hour)
	n, err = e.ExpireReservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetReservation(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCanceled, got.Status)

	promoted, err := store.ActiveReservationForUser(ctx, book.ID, next.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationReady, promoted.Status)

	var systemNotes int
	for _, note := range store.NotificationsByUser(sleeper.ID) {
		if note.Type == model.NotificationSystem {
			systemNotes++
		}
	}
	assert.Equal(t, 1, systemNotes)
}

func TestSendDueRemindersOncePerLoan(t *testing.T) {
	e, store, pub, clock := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	user := store.AddUser(model.User{Name: "Ada", Email: "ada@uni.edu", Role: model.RoleStudent})

	_, err := e.Borrow(ctx, book.ID, user.ID)
	require.NoError(t, err)

	// Too early: the loan is not yet inside the due-soon window.
	n, err := e.SendDueReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(LoanPeriod - 48*time.Hour)
	n, err = e.SendDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	events := pub.byKind(queue.KindDueReminder)
	require.Len(t, events, 1)
	assert.Equal(t, "ada@uni.edu", events[0].Email)

	// A second sweep must not remind again.
	n, err = e.SendDueReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
