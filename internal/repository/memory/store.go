// Package memory provides an in-memory implementation of the
// lending engine's store interfaces.  It mirrors the relational
// backend's contract (auto-increment ids, repository sentinel
// errors) and backs the engine tests, which run without MySQL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/repository"
)

// Store holds every collection behind one mutex.  The lending
// engine brings its own per-entity serialization; the mutex here
// only protects map access.
type Store struct {
	mu sync.RWMutex

	books         map[uint64]model.Book
	users         map[uint64]model.User
	transactions  map[uint64]model.BookTransaction
	reservations  map[uint64]model.BookReservation
	notifications map[uint64]model.Notification

	nextBookID         uint64
	nextUserID         uint64
	nextTransactionID  uint64
	nextReservationID  uint64
	nextNotificationID uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		books:         make(map[uint64]model.Book),
		users:         make(map[uint64]model.User),
		transactions:  make(map[uint64]model.BookTransaction),
		reservations:  make(map[uint64]model.BookReservation),
		notifications: make(map[uint64]model.Notification),
	}
}

// AddBook seeds a catalog entry, assigning its id, and returns the
// stored copy.
func (s *Store) AddBook(b model.Book) model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBookID++
	b.ID = s.nextBookID
	if b.AddedAt.IsZero() {
		b.AddedAt = time.Now().UTC()
	}
	s.books[b.ID] = b
	return b
}

// AddUser seeds a user account, assigning its id, and returns the
// stored copy.
func (s *Store) AddUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u.ID = s.nextUserID
	if u.MaxBooks == 0 {
		u.MaxBooks = model.DefaultMaxBooks
	}
	s.users[u.ID] = u
	return u
}

// GetBook implements lending.BookStore.
func (s *Store) GetBook(_ context.Context, id uint64) (*model.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, fmt.Errorf("book %d: %w", id, repository.ErrNotFound)
	}
	return &b, nil
}

// AdjustCopies implements lending.BookStore.  The result is kept
// within [0, copies_total]; a delta that would leave the range is
// rejected.
func (s *Store) AdjustCopies(_ context.Context, id uint64, delta int) (*model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, fmt.Errorf("book %d: %w", id, repository.ErrNotFound)
	}
	next := b.CopiesAvailable + delta
	if next < 0 || next > b.CopiesTotal {
		return nil, fmt.Errorf("book %d: copies_available %d out of range", id, next)
	}
	b.CopiesAvailable = next
	s.books[id] = b
	return &b, nil
}

// ListBooks implements lending.BookStore, returning books in
// insertion (id) order.
func (s *Store) ListBooks(_ context.Context, limit, offset int) ([]model.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint64, 0, len(s.books))
	for id := range s.books {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]model.Book, 0, limit)
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, s.books[ids[i]])
	}
	return out, nil
}

// GetUser implements lending.UserStore.
func (s *Store) GetUser(_ context.Context, id uint64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, repository.ErrNotFound)
	}
	return &u, nil
}

// AdjustBorrowedCount implements lending.UserStore, flooring the
// count at zero.
func (s *Store) AdjustBorrowedCount(_ context.Context, id uint64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, repository.ErrNotFound)
	}
	u.BorrowedCount += delta
	if u.BorrowedCount < 0 {
		u.BorrowedCount = 0
	}
	s.users[id] = u
	return nil
}

// GetTransaction implements lending.TransactionStore.
func (s *Store) GetTransaction(_ context.Context, id uint64) (*model.BookTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, repository.ErrNotFound)
	}
	return &t, nil
}

// CreateTransaction implements lending.TransactionStore.
func (s *Store) CreateTransaction(_ context.Context, t *model.BookTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTransactionID++
	t.ID = s.nextTransactionID
	s.transactions[t.ID] = *t
	return nil
}

// UpdateTransaction implements lending.TransactionStore.
func (s *Store) UpdateTransaction(_ context.Context, t *model.BookTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[t.ID]; !ok {
		return fmt.Errorf("transaction %d: %w", t.ID, repository.ErrNotFound)
	}
	s.transactions[t.ID] = *t
	return nil
}

// ListTransactionsByUser implements lending.TransactionStore,
// newest first.
func (s *Store) ListTransactionsByUser(_ context.Context, userID uint64) ([]model.BookTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BookTransaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ListActiveDueBetween implements lending.TransactionStore.
func (s *Store) ListActiveDueBetween(_ context.Context, from, to time.Time) ([]model.BookTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BookTransaction
	for _, t := range s.transactions {
		if t.Status != model.TransactionActive {
			continue
		}
		if t.DueDate.Before(from) || t.DueDate.After(to) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetReservation implements lending.ReservationStore.
func (s *Store) GetReservation(_ context.Context, id uint64) (*model.BookReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %d: %w", id, repository.ErrNotFound)
	}
	return &r, nil
}

// CreateReservation implements lending.ReservationStore.
func (s *Store) CreateReservation(_ context.Context, r *model.BookReservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextReservationID++
	r.ID = s.nextReservationID
	s.reservations[r.ID] = *r
	return nil
}

// UpdateReservation implements lending.ReservationStore.
func (s *Store) UpdateReservation(_ context.Context, r *model.BookReservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[r.ID]; !ok {
		return fmt.Errorf("reservation %d: %w", r.ID, repository.ErrNotFound)
	}
	s.reservations[r.ID] = *r
	return nil
}

// ListReservationsByUser implements lending.ReservationStore.
func (s *Store) ListReservationsByUser(_ context.Context, userID uint64) ([]model.BookReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BookReservation
	for _, r := range s.reservations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ActiveReservationForUser implements lending.ReservationStore.
func (s *Store) ActiveReservationForUser(_ context.Context, bookID, userID uint64) (*model.BookReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reservations {
		if r.BookID == bookID && r.UserID == userID && r.Active() {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("reservation for book %d user %d: %w", bookID, userID, repository.ErrNotFound)
}

// OldestPending implements lending.ReservationStore: earliest
// reservation date wins, ties broken by the lower id.
func (s *Store) OldestPending(_ context.Context, bookID uint64) (*model.BookReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *model.BookReservation
	for id := range s.reservations {
		r := s.reservations[id]
		if r.BookID != bookID || r.Status != model.ReservationPending {
			continue
		}
		if best == nil ||
			r.ReservationDate.Before(best.ReservationDate) ||
			(r.ReservationDate.Equal(best.ReservationDate) && r.ID < best.ID) {
			c := r
			best = &c
		}
	}
	if best == nil {
		return nil, fmt.Errorf("pending reservation for book %d: %w", bookID, repository.ErrNotFound)
	}
	return best, nil
}

// ListExpiredReady implements lending.ReservationStore.
func (s *Store) ListExpiredReady(_ context.Context, cutoff time.Time) ([]model.BookReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.BookReservation
	for _, r := range s.reservations {
		if r.Status == model.ReservationReady && !r.ExpiryDate.After(cutoff) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateNotification implements lending.NotificationStore.
func (s *Store) CreateNotification(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNotificationID++
	n.ID = s.nextNotificationID
	s.notifications[n.ID] = *n
	return nil
}

// DueReminderSent implements lending.NotificationStore.  Reminders
// are distinguished from the borrow confirmation by the "reminder"
// marker in their related data.
func (s *Store) DueReminderSent(_ context.Context, transactionID uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notifications {
		if n.Type != model.NotificationDueDate {
			continue
		}
		if n.RelatedData["transaction_id"] == transactionID && n.RelatedData["reminder"] == 1 {
			return true, nil
		}
	}
	return false, nil
}

// NotificationsByUser returns a user's notifications newest first.
// Test helper mirroring the relational repository's listing.
func (s *Store) NotificationsByUser(userID uint64) []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}
