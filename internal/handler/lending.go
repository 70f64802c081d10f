package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-library/internal/lending"
	"github.com/iliyamo/university-library/internal/model"
)

// LendingHandler exposes the borrow/return/reservation lifecycle.
// Every state transition goes through the engine; the stores are
// only read here to decorate listings with book details.
type LendingHandler struct {
	Engine       *lending.Engine
	Books        lending.BookStore
	Transactions lending.TransactionStore
	Reservations lending.ReservationStore
}

func NewLendingHandler(e *lending.Engine, b lending.BookStore, t lending.TransactionStore, r lending.ReservationStore) *LendingHandler {
	return &LendingHandler{Engine: e, Books: b, Transactions: t, Reservations: r}
}

// Borrow checks out a copy of the book for the caller.
func (h *LendingHandler) Borrow(c echo.Context) error {
	bookID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	txn, err := h.Engine.Borrow(c.Request().Context(), bookID, userID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, txn)
}

// Return closes out a loan.  The owner can return their own book;
// staff can return on anyone's behalf.
func (h *LendingHandler) Return(c echo.Context) error {
	txnID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	txn, err := h.Engine.Return(c.Request().Context(), txnID, userID, currentRole(c))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, txn)
}

// Reserve places the caller in the book's hold queue.  Only
// possible while no copy is available.
func (h *LendingHandler) Reserve(c echo.Context) error {
	bookID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Engine.Reserve(c.Request().Context(), bookID, userID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// BorrowFromReservation converts the caller's ready reservation into
// a loan.
func (h *LendingHandler) BorrowFromReservation(c echo.Context) error {
	resID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	txn, err := h.Engine.BorrowFromReservation(c.Request().Context(), resID, userID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, txn)
}

// CancelReservation drops an active reservation.  The owner or
// staff may cancel.
func (h *LendingHandler) CancelReservation(c echo.Context) error {
	resID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Engine.CancelReservation(c.Request().Context(), resID, userID, currentRole(c))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type loanResp struct {
	model.BookTransaction
	Book *model.Book `json:"book,omitempty"`
}

// MyBooks lists the caller's loans newest first, each joined with
// its catalog entry.
func (h *LendingHandler) MyBooks(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	txns, err := h.Transactions.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return engineError(c, err)
	}
	out := make([]loanResp, 0, len(txns))
	for i := range txns {
		entry := loanResp{BookTransaction: txns[i]}
		if book, err := h.Books.GetBook(ctx, txns[i].BookID); err == nil {
			entry.Book = book
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, out)
}

type reservationResp struct {
	model.BookReservation
	Book *model.Book `json:"book,omitempty"`
}

// MyReservations lists the caller's reservations newest first, each
// joined with its catalog entry.
func (h *LendingHandler) MyReservations(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	reservations, err := h.Reservations.ListReservationsByUser(ctx, userID)
	if err != nil {
		return engineError(c, err)
	}
	out := make([]reservationResp, 0, len(reservations))
	for i := range reservations {
		entry := reservationResp{BookReservation: reservations[i]}
		if book, err := h.Books.GetBook(ctx, reservations[i].BookID); err == nil {
			entry.Book = book
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, out)
}
