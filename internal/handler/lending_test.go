package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/university-library/internal/lending"
	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/repository/memory"
)

// lendingFixture wires a handler over the in-memory store the way
// the router does, minus auth middleware: tests inject the identity
// directly into the context.
type lendingFixture struct {
	e       *echo.Echo
	store   *memory.Store
	handler *LendingHandler
}

func newLendingFixture(t *testing.T) *lendingFixture {
	t.Helper()
	store := memory.NewStore()
	engine := lending.NewEngine(store, store, store, store, store, nil)
	return &lendingFixture{
		e:       echo.New(),
		store:   store,
		handler: NewLendingHandler(engine, store, store, store),
	}
}

// call runs a handler with the JWT claims a real request would
// carry.  JWT numeric claims arrive as float64.
func (f *lendingFixture) call(t *testing.T, h echo.HandlerFunc, userID uint64, role model.Role, paramName, paramValue string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	c.Set("user_id", float64(userID))
	c.Set("role", string(role))
	if paramName != "" {
		c.SetParamNames(paramName)
		c.SetParamValues(paramValue)
	}
	require.NoError(t, h(c))
	return rec
}

func TestBorrowEndpoint(t *testing.T) {
	f := newLendingFixture(t)
	book := f.store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	user := f.store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})

	rec := f.call(t, f.handler.Borrow, user.ID, model.RoleStudent, "id", strconv.FormatUint(book.ID, 10))
	require.Equal(t, http.StatusCreated, rec.Code)

	var txn model.BookTransaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txn))
	assert.Equal(t, book.ID, txn.BookID)
	assert.Equal(t, user.ID, txn.UserID)
	assert.Equal(t, model.TransactionActive, txn.Status)
}

func TestBorrowEndpointNoCopies(t *testing.T) {
	f := newLendingFixture(t)
	book := f.store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 0})
	user := f.store.AddUser(model.User{Name: "Ada"})

	rec := f.call(t, f.handler.Borrow, user.ID, model.RoleStudent, "id", strconv.FormatUint(book.ID, 10))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no copies available")
}

func TestBorrowEndpointUnknownBook(t *testing.T) {
	f := newLendingFixture(t)
	user := f.store.AddUser(model.User{Name: "Ada"})

	rec := f.call(t, f.handler.Borrow, user.ID, model.RoleStudent, "id", "999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBorrowEndpointBadID(t *testing.T) {
	f := newLendingFixture(t)
	user := f.store.AddUser(model.User{Name: "Ada"})

	rec := f.call(t, f.handler.Borrow, user.ID, model.RoleStudent, "id", "not-a-number")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReturnEndpointForbiddenForStranger(t *testing.T) {
	f := newLendingFixture(t)
	book := f.store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	owner := f.store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})
	stranger := f.store.AddUser(model.User{Name: "Eve", Role: model.RoleStudent})

	rec := f.call(t, f.handler.Borrow, owner.ID, model.RoleStudent, "id", strconv.FormatUint(book.ID, 10))
	require.Equal(t, http.StatusCreated, rec.Code)
	var txn model.BookTransaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txn))

	txnID := strconv.FormatUint(txn.ID, 10)
	rec = f.call(t, f.handler.Return, stranger.ID, model.RoleStudent, "id", txnID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Faculty can return on the borrower's behalf.
	faculty := f.store.AddUser(model.User{Name: "Lin", Role: model.RoleFaculty})
	rec = f.call(t, f.handler.Return, faculty.ID, model.RoleFaculty, "id", txnID)
	assert.Equal(t, http.StatusOK, rec.Code)

	// And a second return conflicts.
	rec = f.call(t, f.handler.Return, owner.ID, model.RoleStudent, "id", txnID)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReserveEndpointAvailableBook(t *testing.T) {
	f := newLendingFixture(t)
	book := f.store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	user := f.store.AddUser(model.User{Name: "Ada"})

	rec := f.call(t, f.handler.Reserve, user.ID, model.RoleStudent, "id", strconv.FormatUint(book.ID, 10))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "available for borrowing")
}

func TestMyBooksEndpoint(t *testing.T) {
	f := newLendingFixture(t)
	book := f.store.AddBook(model.Book{Title: "SICP", CopiesTotal: 1, CopiesAvailable: 1})
	user := f.store.AddUser(model.User{Name: "Ada", Role: model.RoleStudent})

	rec := f.call(t, f.handler.Borrow, user.ID, model.RoleStudent, "id", strconv.FormatUint(book.ID, 10))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.call(t, f.handler.MyBooks, user.ID, model.RoleStudent, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var loans []loanResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loans))
	require.Len(t, loans, 1)
	require.NotNil(t, loans[0].Book)
	assert.Equal(t, "SICP", loans[0].Book.Title)
}
