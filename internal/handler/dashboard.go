package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-library/internal/lending"
)

// DashboardHandler serves the per-user dashboard aggregates.
type DashboardHandler struct {
	Engine *lending.Engine
}

func NewDashboardHandler(e *lending.Engine) *DashboardHandler {
	return &DashboardHandler{Engine: e}
}

// Stats returns the caller's dashboard numbers: active loans, loans
// due soon, overdue loans, reservation counts and catalog totals.
func (h *DashboardHandler) Stats(c echo.Context) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	stats, err := h.Engine.DashboardStats(c.Request().Context(), userID)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
