package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/repository"
)

// UserHandler serves the admin-only account management endpoints.
type UserHandler struct {
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewUserHandler(u *repository.UserRepo, t *repository.TokenRepo) *UserHandler {
	return &UserHandler{Users: u, Tokens: t}
}

// Get returns one account.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	u, err := h.Users.GetUser(c.Request().Context(), id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

type userUpdateReq struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     *string `json:"role"`
	MaxBooks *int    `json:"max_books"`
}

// Update edits an account's profile, role or borrowing cap.  A role
// change revokes the user's refresh tokens so the old role cannot
// outlive its access token.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req userUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx := c.Request().Context()
	u, err := h.Users.GetUser(ctx, id)
	if err != nil {
		return engineError(c, err)
	}

	roleChanged := false
	if req.Name != "" {
		u.Name = strings.TrimSpace(req.Name)
	}
	if req.Email != "" {
		u.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if req.Role != nil {
		role := model.Role(strings.ToLower(strings.TrimSpace(*req.Role)))
		if !role.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
		}
		roleChanged = role != u.Role
		u.Role = role
	}
	if req.MaxBooks != nil {
		if *req.MaxBooks < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_books must not be negative"})
		}
		u.MaxBooks = *req.MaxBooks
	}

	if err := h.Users.UpdateProfile(ctx, u); err != nil {
		return engineError(c, err)
	}
	if roleChanged {
		if err := h.Tokens.DeleteForUser(ctx, u.ID); err != nil {
			c.Logger().Warnf("revoke sessions for user %d: %v", u.ID, err)
		}
	}
	return c.JSON(http.StatusOK, u)
}
