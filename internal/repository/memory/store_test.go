package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/repository"
)

func TestAdjustCopiesRange(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	book := s.AddBook(model.Book{Title: "A", CopiesTotal: 2, CopiesAvailable: 1})

	_, err := s.AdjustCopies(ctx, book.ID, -2)
	assert.Error(t, err)

	_, err = s.AdjustCopies(ctx, book.ID, +2)
	assert.Error(t, err)

	got, err := s.AdjustCopies(ctx, book.ID, +1)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CopiesAvailable)

	_, err = s.AdjustCopies(ctx, 99, +1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAdjustBorrowedCountFloorsAtZero(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	user := s.AddUser(model.User{Name: "Ada"})

	require.NoError(t, s.AdjustBorrowedCount(ctx, user.ID, -3))
	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.BorrowedCount)
}

func TestOldestPendingOrdering(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	book := s.AddBook(model.Book{Title: "A", CopiesTotal: 1})

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := model.BookReservation{BookID: book.ID, UserID: 1, ReservationDate: base.Add(time.Hour), Status: model.ReservationPending}
	require.NoError(t, s.CreateReservation(ctx, &later))
	earlier := model.BookReservation{BookID: book.ID, UserID: 2, ReservationDate: base, Status: model.ReservationPending}
	require.NoError(t, s.CreateReservation(ctx, &earlier))
	tied := model.BookReservation{BookID: book.ID, UserID: 3, ReservationDate: base, Status: model.ReservationPending}
	require.NoError(t, s.CreateReservation(ctx, &tied))

	// Earliest date wins; on equal dates the lower id does.
	head, err := s.OldestPending(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, earlier.ID, head.ID)

	_, err = s.OldestPending(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
