package lending

import (
	"context"
	"fmt"

	"github.com/iliyamo/university-library/internal/model"
)

// statsCatalogPage is the page size used when scanning the catalog
// for the dashboard aggregates.  The scan walks every page, so the
// totals cover the whole catalog regardless of its size.
const statsCatalogPage = 1000

// Stats is the per-user dashboard aggregate.  It is derived on
// demand from the current transaction, reservation and book
// collections and has no side effects.
type Stats struct {
	BorrowedCount         int    `json:"borrowed_count"`
	DueSoonCount          int    `json:"due_soon_count"`
	OverdueCount          int    `json:"overdue_count"`
	ReservationCount      int    `json:"reservation_count"`
	AvailableReservations int    `json:"available_reservations"`
	TotalBookCount        int    `json:"total_book_count"`
	PopularCategory       string `json:"popular_category"`
	PopularCategoryCount  int    `json:"popular_category_count"`
}

// DashboardStats computes the dashboard numbers for one user:
// active loans, loans due within the next three days, overdue
// loans, reservations in any state, ready reservations, the catalog
// size and the most frequent subject tag across the catalog (ties
// keep the first subject encountered).
func (e *Engine) DashboardStats(ctx context.Context, userID uint64) (*Stats, error) {
	now := e.now().UTC()
	dueSoonCutoff := now.Add(DueSoonWindow)

	txns, err := e.transactions.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stats: list transactions: %w", err)
	}
	reservations, err := e.reservations.ListReservationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stats: list reservations: %w", err)
	}
	var books []model.Book
	for offset := 0; ; offset += statsCatalogPage {
		page, err := e.books.ListBooks(ctx, statsCatalogPage, offset)
		if err != nil {
			return nil, fmt.Errorf("stats: list books: %w", err)
		}
		books = append(books, page...)
		if len(page) < statsCatalogPage {
			break
		}
	}

	stats := &Stats{TotalBookCount: len(books), ReservationCount: len(reservations)}
	for i := range txns {
		t := &txns[i]
		if t.Status != model.TransactionActive {
			continue
		}
		stats.BorrowedCount++
		if t.DueDate.Before(now) {
			stats.OverdueCount++
		} else if !t.DueDate.After(dueSoonCutoff) {
			stats.DueSoonCount++
		}
	}
	for i := range reservations {
		if reservations[i].Status == model.ReservationReady {
			stats.AvailableReservations++
		}
	}

	counts := make(map[string]int)
	var order []string // subjects in first-encountered order
	for _, b := range books {
		for _, subject := range b.Subjects {
			if subject == "" {
				continue
			}
			if _, seen := counts[subject]; !seen {
				order = append(order, subject)
			}
			counts[subject]++
		}
	}
	// Strict greater-than keeps the first-encountered subject on
	// count ties.
	for _, subject := range order {
		if counts[subject] > stats.PopularCategoryCount {
			stats.PopularCategory = subject
			stats.PopularCategoryCount = counts[subject]
		}
	}
	return stats, nil
}
