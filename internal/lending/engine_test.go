package lending

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/queue"
	"github.com/iliyamo/university-library/internal/repository"
	"github.com/iliyamo/university-library/internal/repository/memory"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []queue.NotificationEvent
}

func (p *capturePublisher) Publish(_ context.Context, ev queue.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) byKind(kind string) []queue.NotificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []queue.NotificationEvent
	for _, ev := range p.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// testClock is a settable clock for the engine.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T) (*Engine, *memory.Store, *capturePublisher, *testClock) {
	t.Helper()
	store := memory.NewStore()
	pub := &capturePublisher{}
	e := NewEngine(store, store, store, store, store, pub)
	clock := &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	e.now = clock.Now
	return e, store, pub, clock
}

func TestBorrowCreatesLoan(t *testing.T) {
	e, store, _, clock := newTestEngine(t)
	ctx := context.Background()

	book := store.AddBook(model.Book{Title: "Clean Architecture", CopiesTotal: 3, CopiesAvailable: 3})
	user := store.AddUser(model.User{Name: "Ada", Email: "ada@uni.edu", Role: model.RoleStudent})

	txn, err := e.Borrow(ctx, book.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionActive, txn.Status)
	assert.Equal(t, clock.Now().Add(LoanPeriod), txn.DueDate)
	assert.Zero(t, txn.FineAmount)

	got, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CopiesAvailable)

	u, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.BorrowedCount)

	notes := store.NotificationsByUser(user.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationDueDate, notes[0].Type)
	assert.Equal(t, txn.ID, notes[0].RelatedData["transaction_id"])
}

func TestBorrowUnknownBook(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	user := store.AddUser(model.User{Name: "Ada"})

	_, err := e.Borrow(context.Background(), 99, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBorrowNoCopies(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	book := store.AddBook(model.Book{Title: "Rare", CopiesTotal: 1, CopiesAvailable: 0})
	user := store.AddUser(model.User{Name: "Ada"})

	_, err := e.Borrow(context.Background(), book.ID, user.ID)
	assert.ErrorIs(t, err, ErrInsufficientCopies)
}

func TestBorrowAtLimit(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	ctx := context.Background()
	first := store.AddBook(model.Book{Title: "One", CopiesTotal: 1, CopiesAvailable: 1})
	second := store.AddBook(model.Book{Title: "Two", CopiesTotal: 1, CopiesAvailable: 1})
	user := store.AddUser(model.User{Name: "Ada", MaxBooks: 1})

	_, err := e.Borrow(ctx, first.ID, user.ID)
	require.NoError(t, err)

	_, err = e.Borrow(ctx, second.ID, user.ID)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	// The rejected borrow must not touch the shelf.
	got, err := store.GetBook(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CopiesAvailable)
}

func TestConcurrentBorrowLastCopy(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "Last Copy", CopiesTotal: 1, CopiesAvailable: 1})

	const borrowers = 8
	users := make([]model.User, borrowers)
	for i := range users {
		users[i] = store.AddUser(model.User{Name: "u"})
	}

	var wg sync.WaitGroup
	errs := make([]error, borrowers)
	for i := 0; i < borrowers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Borrow(ctx, book.ID, users[i].ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientCopies)
		}
	}
	assert.Equal(t, 1, succeeded)

	got, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CopiesAvailable)
}

func TestReturnOnTime(t *testing.T) {
	e, store, _, clock := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 2, CopiesAvailable: 2})
	user := store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})

	txn, err := e.Borrow(ctx, book.ID, user.ID)
	require.NoError(t, err)

	clock.Advance(7 * 24 * time.Hour)
	returned, err := e.Return(ctx, txn.ID, user.ID, model.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionReturned, returned.Status)
	assert.Zero(t, returned.FineAmount)
	require.NotNil(t, returned.ReturnDate)

	got, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CopiesAvailable)

	u, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, u.BorrowedCount)
}

func TestReturnLateComputesFine(t *testing.T) {
	e, store, _, clock := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	user := store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})

	txn, err := e.Borrow(ctx, book.ID, user.ID)
	require.NoError(t, err)

	// 14-day loan returned on day 19: five days overdue.
	clock.Advance(19 * 24 * time.Hour)
	returned, err := e.Return(ctx, txn.ID, user.ID, model.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, 2.5, returned.FineAmount)

	var fineNotes int
	for _, n := range store.NotificationsByUser(user.ID) {
		if n.Type == model.NotificationFine {
			fineNotes++
		}
	}
	assert.Equal(t, 1, fineNotes)
}

func TestReturnTwice(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	user := store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})

	txn, err := e.Borrow(ctx, book.ID, user.ID)
	require.NoError(t, err)
	_, err = e.Return(ctx, txn.ID, user.ID, model.RoleStudent)
	require.NoError(t, err)

	_, err = e.Return(ctx, txn.ID, user.ID, model.RoleStudent)
	assert.ErrorIs(t, err, ErrAlreadyReturned)

	// The second return must not double-increment the shelf.
	got, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CopiesAvailable)
}

// flakyTxnStore fails UpdateTransaction on demand so tests can hit
// the failure path after the count adjustments have been applied.
type flakyTxnStore struct {
	*memory.Store
	failUpdate bool
}

func (s *flakyTxnStore) UpdateTransaction(ctx context.Context, txn *model.BookTransaction) error {
	if s.failUpdate {
		return errors.New("storage offline")
	}
	return s.Store.UpdateTransaction(ctx, txn)
}

func TestReturnRollsBackWhenUpdateFails(t *testing.T) {
	store := memory.NewStore()
	txns := &flakyTxnStore{Store: store}
	e := NewEngine(store, store, txns, store, store, nil)
	ctx := context.Background()

	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	user := store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})
	txn, err := e.Borrow(ctx, book.ID, user.ID)
	require.NoError(t, err)

	txns.failUpdate = true
	_, err = e.Return(ctx, txn.ID, user.ID, model.RoleStudent)
	require.Error(t, err)

	// The loan is still active, so the copy stays off the shelf and
	// the borrower's count stays up.
	got, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CopiesAvailable)
	u, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.BorrowedCount)
	stored, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionActive, stored.Status)

	// Once the store recovers, the same return goes through.
	txns.failUpdate = false
	_, err = e.Return(ctx, txn.ID, user.ID, model.RoleStudent)
	require.NoError(t, err)
	got, err = store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CopiesAvailable)
}

func TestReturnPermissions(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 2, CopiesAvailable: 2})
	owner := store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})
	stranger := store.AddUser(model.User{Name: "Eve", Role: model.RoleStudent})
	librarian := store.AddUser(model.User{Name: "Lin", Role: model.RoleFaculty})

	txn, err := e.Borrow(ctx, book.ID, owner.ID)
	require.NoError(t, err)

	_, err = e.Return(ctx, txn.ID, stranger.ID, model.RoleStudent)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.Return(ctx, txn.ID, librarian.ID, model.RoleFaculty)
	assert.NoError(t, err)
}

func TestReserveAvailableBook(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	user := store.AddUser(model.User{Name: "Ada"})

	_, err := e.Reserve(context.Background(), book.ID, user.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestReserveDuplicate(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 0})
	user := store.AddUser(model.User{Name: "Ada"})

	first, err := e.Reserve(ctx, book.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationPending, first.Status)

	dup, err := e.Reserve(ctx, book.ID, user.ID)
	assert.ErrorIs(t, err, ErrConflict)
	require.NotNil(t, dup)
	assert.Equal(t, first.ID, dup.ID)
}

func TestReturnPromotesOldestReservation(t *testing.T) {
	e, store, pub, clock := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", Location: "Shelf 3B", CopiesTotal: 1, CopiesAvailable: 1})
	borrower := store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})
	first := store.AddUser(model.User{Name: "Bea", Email: "bea@uni.edu"})
	second := store.AddUser(model.User{Name: "Cal", Email: "cal@uni.edu"})

	txn, err := e.Borrow(ctx, book.ID, borrower.ID)
	require.NoError(t, err)

	_, err = e.Reserve(ctx, book.ID, first.ID)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = e.Reserve(ctx, book.ID, second.ID)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	_, err = e.Return(ctx, txn.ID, borrower.ID, model.RoleStudent)
	require.NoError(t, err)

	// The earlier reservation wins the copy.
	firstRes, err := store.ActiveReservationForUser(ctx, book.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationReady, firstRes.Status)
	require.NotNil(t, firstRes.NotifiedAt)
	assert.Equal(t, clock.Now().Add(PickupWindow), firstRes.ExpiryDate)

	secondRes, err := store.ActiveReservationForUser(ctx, book.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationPending, secondRes.Status)

	events := pub.byKind(queue.KindBookAvailable)
	require.Len(t, events, 1)
	assert.Equal(t, "bea@uni.edu", events[0].Email)
	assert.Equal(t, "SICP", events[0].BookTitle)
	assert.Equal(t, "Shelf 3B", events[0].BookLocation)
}

func TestBorrowFromReservation(t *testing.T) {
	e, store, _, clock := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	borrower := store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})
	waiter := store.AddUser(model.User{Name: "Bea", Email: "bea@uni.edu"})

	txn, err := e.Borrow(ctx, book.ID, borrower.ID)
	require.NoError(t, err)
	res, err := e.Reserve(ctx, book.ID, waiter.ID)
	require.NoError(t, err)

	// Not ready yet.
	_, err = e.BorrowFromReservation(ctx, res.ID, waiter.ID)
	assert.ErrorIs(t, err, ErrConflict)

	clock.Advance(24 * time.Hour)
	_, err = e.Return(ctx, txn.ID, borrower.ID, model.RoleStudent)
	require.NoError(t, err)

	// Wrong user cannot pick it up.
	_, err = e.BorrowFromReservation(ctx, res.ID, borrower.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	loan, err := e.BorrowFromReservation(ctx, res.ID, waiter.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionActive, loan.Status)
	assert.Equal(t, waiter.ID, loan.UserID)

	done, err := store.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCompleted, done.Status)

	got, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CopiesAvailable)
}

func TestBorrowFromReservationCopyTakenByWalkIn(t *testing.T) {
	e, store, _, clock := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	borrower := store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})
	waiter := store.AddUser(model.User{Name: "Bea"})
	walkIn := store.AddUser(model.User{Name: "Cal"})

	txn, err := e.Borrow(ctx, book.ID, borrower.ID)
	require.NoError(t, err)
	res, err := e.Reserve(ctx, book.ID, waiter.ID)
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)
	_, err = e.Return(ctx, txn.ID, borrower.ID, model.RoleStudent)
	require.NoError(t, err)

	// A ready reservation does not hold the copy out of the pool.
	_, err = e.Borrow(ctx, book.ID, walkIn.ID)
	require.NoError(t, err)

	_, err = e.BorrowFromReservation(ctx, res.ID, waiter.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCancelReadyReservationPromotesNext(t *testing.T) {
	e, store, _, clock := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	borrower := store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})
	first := store.AddUser(model.User{Name: "Bea"})
	second := store.AddUser(model.User{Name: "Cal"})

	txn, err := e.Borrow(ctx, book.ID, borrower.ID)
	require.NoError(t, err)
	firstRes, err := e.Reserve(ctx, book.ID, first.ID)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = e.Reserve(ctx, book.ID, second.ID)
	require.NoError(t, err)
	_, err = e.Return(ctx, txn.ID, borrower.ID, model.RoleStudent)
	require.NoError(t, err)

	canceled, err := e.CancelReservation(ctx, firstRes.ID, first.ID, model.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCanceled, canceled.Status)

	next, err := store.ActiveReservationForUser(ctx, book.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationReady, next.Status)
}

func TestCancelReservationPermissions(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	ctx := context.Background()
	book := store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 0})
	owner := store.AddUser(model.User{Name: "Ada"})
	stranger := store.AddUser(model.User{Name: "Eve"})
	admin := store.AddUser(model.User{Name: "Root", Role: model.RoleAdmin})

	res, err := e.Reserve(ctx, book.ID, owner.ID)
	require.NoError(t, err)

	_, err = e.CancelReservation(ctx, res.ID, stranger.ID, model.RoleStudent)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.CancelReservation(ctx, res.ID, admin.ID, model.RoleAdmin)
	assert.NoError(t, err)

	_, err = e.CancelReservation(ctx, res.ID, owner.ID, model.RoleStudent)
	assert.ErrorIs(t, err, ErrConflict)
}
