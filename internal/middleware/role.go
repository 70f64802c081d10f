package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-library/internal/model"
)

// requireCapability returns a middleware that admits only roles for
// which the capability predicate holds.  It must run after JWTAuth,
// which puts the role claim in the context.
func requireCapability(allowed func(model.Role) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claim, _ := c.Get("role").(string)
			if !allowed(model.ParseRole(claim)) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient role"})
			}
			return next(c)
		}
	}
}

// RequireStaff admits faculty and admin accounts.  Catalog, course
// and paper management routes sit behind this.
func RequireStaff() echo.MiddlewareFunc {
	return requireCapability(model.Role.CanManageCatalog)
}

// RequireAdmin admits admin accounts only.
func RequireAdmin() echo.MiddlewareFunc {
	return requireCapability(model.Role.CanAdminister)
}
