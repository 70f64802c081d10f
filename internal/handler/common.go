// Package handler contains the HTTP layer: request parsing, auth
// context plumbing and the translation of engine errors into status
// codes.  All domain decisions live in the lending engine and the
// repositories.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-library/internal/lending"
	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/repository"
)

// currentUserID extracts the authenticated user's id placed in the
// context by the JWT middleware.  JWT numeric claims decode as
// float64.
func currentUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case int:
		return uint64(v), true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// currentRole extracts the authenticated user's role claim.
func currentRole(c echo.Context) model.Role {
	claim, _ := c.Get("role").(string)
	return model.ParseRole(claim)
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// engineError maps lending and repository sentinels onto JSON error
// responses.  Unknown errors become opaque 500s; the detail stays in
// the server log, not the response.
func engineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, lending.ErrInsufficientCopies):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, lending.ErrLimitExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, lending.ErrAlreadyReturned):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, lending.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, lending.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
