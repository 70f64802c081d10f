package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/repository"
)

// recommendationPage bounds the catalog scan when building
// suggestions.
const recommendationPage = 1000

// RecommendationHandler serves per-user book suggestions derived
// from borrowing history: books sharing a subject with something
// the user has already borrowed.
type RecommendationHandler struct {
	Recommendations *repository.RecommendationRepo
	Books           *repository.BookRepo
	Transactions    *repository.TransactionRepo
}

func NewRecommendationHandler(rc *repository.RecommendationRepo, b *repository.BookRepo, t *repository.TransactionRepo) *RecommendationHandler {
	return &RecommendationHandler{Recommendations: rc, Books: b, Transactions: t}
}

// List returns the caller's stored suggestions newest first.
func (h *RecommendationHandler) List(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	out, err := h.Recommendations.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Refresh rebuilds the caller's suggestions from their borrowing
// history and returns the fresh list.  Books the user has already
// borrowed or already been recommended are skipped.
func (h *RecommendationHandler) Refresh(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	subjects, err := h.Recommendations.SubjectsBorrowedBy(ctx, userID)
	if err != nil {
		return engineError(c, err)
	}
	subjectSet := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		subjectSet[s] = struct{}{}
	}

	txns, err := h.Transactions.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return engineError(c, err)
	}
	borrowed := make(map[uint64]struct{}, len(txns))
	for i := range txns {
		borrowed[txns[i].BookID] = struct{}{}
	}

	existing, err := h.Recommendations.ListByUser(ctx, userID)
	if err != nil {
		return engineError(c, err)
	}
	suggested := make(map[uint64]struct{}, len(existing))
	for i := range existing {
		suggested[existing[i].BookID] = struct{}{}
	}

	books, err := h.Books.ListBooks(ctx, recommendationPage, 0)
	if err != nil {
		return engineError(c, err)
	}
	now := time.Now().UTC()
	for i := range books {
		b := &books[i]
		if _, ok := borrowed[b.ID]; ok {
			continue
		}
		if _, ok := suggested[b.ID]; ok {
			continue
		}
		for _, subject := range b.Subjects {
			if _, ok := subjectSet[subject]; !ok {
				continue
			}
			rec := &model.Recommendation{
				UserID:    userID,
				BookID:    b.ID,
				Reason:    "You borrowed other books about " + subject,
				CreatedAt: now,
			}
			if err := h.Recommendations.Create(ctx, rec); err != nil {
				return engineError(c, err)
			}
			break
		}
	}

	out, err := h.Recommendations.ListByUser(ctx, userID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
