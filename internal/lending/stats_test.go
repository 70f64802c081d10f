package lending

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/university-library/internal/model"
)

func TestDashboardStats(t *testing.T) {
	e, store, _, clock := newTestEngine(t)
	ctx := context.Background()

	// Subjects: "Algorithms" appears twice, "Databases" twice, so the
	// first-encountered of the tied subjects wins.
	overdueBook := store.AddBook(model.Book{Title: "A", Subjects: []string{"Algorithms"}, CopiesTotal: 1, CopiesAvailable: 1})
	dueSoonBook := store.AddBook(model.Book{Title: "B", Subjects: []string{"Algorithms", "Databases"}, CopiesTotal: 1, CopiesAvailable: 1})
	freshBook := store.AddBook(model.Book{Title: "C", Subjects: []string{"Databases"}, CopiesTotal: 1, CopiesAvailable: 1})
	emptyBook := store.AddBook(model.Book{Title: "D", CopiesTotal: 1, CopiesAvailable: 0})

	user := store.AddUser(model.User{Name: "Ada", MaxBooks: 10, Role: model.RoleStudent})
	other := store.AddUser(model.User{Name: "Bea"})

	// Overdue: borrowed, then the clock moves past its due date.
	_, err := e.Borrow(ctx, overdueBook.ID, user.ID)
	require.NoError(t, err)
	clock.Advance(LoanPeriod + 24*time.Hour)

	// Due soon: due date lands inside the window.
	_, err = e.Borrow(ctx, dueSoonBook.ID, user.ID)
	require.NoError(t, err)
	clock.Advance(LoanPeriod - 48*time.Hour)

	// Fresh: due well outside the window.
	_, err = e.Borrow(ctx, freshBook.ID, user.ID)
	require.NoError(t, err)

	// One pending reservation for the user, another user's does not count.
	_, err = e.Reserve(ctx, emptyBook.ID, user.ID)
	require.NoError(t, err)
	_, err = e.Reserve(ctx, emptyBook.ID, other.ID)
	require.NoError(t, err)

	stats, err := e.DashboardStats(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.BorrowedCount)
	assert.Equal(t, 1, stats.OverdueCount)
	assert.Equal(t, 1, stats.DueSoonCount)
	assert.Equal(t, 1, stats.ReservationCount)
	assert.Equal(t, 0, stats.AvailableReservations)
	assert.Equal(t, 4, stats.TotalBookCount)
	assert.Equal(t, "Algorithms", stats.PopularCategory)
	assert.Equal(t, 2, stats.PopularCategoryCount)
}

func TestDashboardStatsSpansCatalogPages(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	user := store.AddUser(model.User{Name: "Ada"})

	// One more book than a single scan page.  Every book carries the
	// same subject, so the tally only reaches the full count when the
	// scan walks past the first page.
	total := statsCatalogPage + 1
	for i := 0; i < total; i++ {
		store.AddBook(model.Book{
			Title:           fmt.Sprintf("Volume %d", i+1),
			Subjects:        []string{"History"},
			CopiesTotal:     1,
			CopiesAvailable: 1,
		})
	}

	stats, err := e.DashboardStats(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, total, stats.TotalBookCount)
	assert.Equal(t, "History", stats.PopularCategory)
	assert.Equal(t, total, stats.PopularCategoryCount)
}

func TestDashboardStatsEmptyUser(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	user := store.AddUser(model.User{Name: "Ada"})

	stats, err := e.DashboardStats(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.BorrowedCount)
	assert.Zero(t, stats.ReservationCount)
	assert.Empty(t, stats.PopularCategory)
}
