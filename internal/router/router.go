// Package router wires every HTTP route to its handler and the
// middleware protecting it.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/university-library/internal/config"
	"github.com/iliyamo/university-library/internal/handler"
	"github.com/iliyamo/university-library/internal/middleware"
)

// Handlers bundles every handler the API serves.
type Handlers struct {
	Auth            *handler.AuthHandler
	Books           *handler.BookHandler
	Lending         *handler.LendingHandler
	Courses         *handler.CourseHandler
	Papers          *handler.PaperHandler
	Notifications   *handler.NotificationHandler
	Recommendations *handler.RecommendationHandler
	Dashboard       *handler.DashboardHandler
	Users           *handler.UserHandler
}

// Register wires every route.  The layout is three tiers:
//
//	public     – health check, auth, catalog browsing
//	user       – anything behind a valid access token
//	staff      – catalog/course/paper management (faculty or admin)
//
// The Redis-backed cache only fronts the public catalog reads; the
// rate limiter fronts everything.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	e.GET("/healthz", handler.Health)

	// Session endpoints; no token required.
	auth := e.Group("/api/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Catalog browsing is public and cacheable.
	browse := e.Group("/api/v1", middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	browse.GET("/books", h.Books.List)
	browse.GET("/books/:id", h.Books.Get)
	browse.GET("/courses", h.Courses.List)
	browse.GET("/courses/:id", h.Courses.Get)

	// Everything below requires a valid access token.
	user := e.Group("/api/v1", middleware.JWTAuth(cfg.JWTSecret))
	user.POST("/auth/logout-all", h.Auth.LogoutAll)
	user.GET("/me", h.Auth.Me)
	user.GET("/me/books", h.Lending.MyBooks)
	user.GET("/me/reservations", h.Lending.MyReservations)
	user.GET("/me/recommendations", h.Recommendations.List)
	user.POST("/me/recommendations/refresh", h.Recommendations.Refresh)
	user.GET("/me/dashboard", h.Dashboard.Stats)

	user.POST("/books/:id/borrow", h.Lending.Borrow)
	user.POST("/books/:id/reserve", h.Lending.Reserve)
	user.POST("/transactions/:id/return", h.Lending.Return)
	user.POST("/reservations/:id/borrow", h.Lending.BorrowFromReservation)
	user.POST("/reservations/:id/cancel", h.Lending.CancelReservation)

	user.POST("/books/:id/reviews", h.Books.CreateReview)

	user.GET("/papers", h.Papers.List)
	user.GET("/papers/:id", h.Papers.Get)
	user.POST("/papers/:id/share", h.Papers.Share)

	user.GET("/notifications", h.Notifications.List)
	user.POST("/notifications/:id/read", h.Notifications.MarkRead)

	// Catalog and course management is restricted to staff.
	staff := e.Group("/api/v1", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireStaff())
	staff.POST("/books", h.Books.Create)
	staff.PUT("/books/:id", h.Books.Update)
	staff.POST("/courses", h.Courses.Create, middleware.RequireAdmin())
	staff.POST("/courses/:id/books", h.Courses.AddBook)
	staff.POST("/papers", h.Papers.Create)

	// Account administration is admin only.
	admin := e.Group("/api/v1/admin", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireAdmin())
	admin.GET("/users/:id", h.Users.Get)
	admin.PUT("/users/:id", h.Users.Update)
}
