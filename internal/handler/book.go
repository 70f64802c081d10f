package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/repository"
)

// BookHandler serves the catalog: listing, search, detail with
// reviews, and the staff-only create/update endpoints.
type BookHandler struct {
	Books   *repository.BookRepo
	Reviews *repository.ReviewRepo
}

func NewBookHandler(b *repository.BookRepo, rv *repository.ReviewRepo) *BookHandler {
	return &BookHandler{Books: b, Reviews: rv}
}

const defaultPageSize = 50

// List returns a page of the catalog.  ?q= switches to search over
// title, author and ISBN.
func (h *BookHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		books, err := h.Books.Search(ctx, q)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, books)
	}

	limit := defaultPageSize
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	offset := 0
	if s := c.QueryParam("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}
	books, err := h.Books.ListBooks(ctx, limit, offset)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, books)
}

type bookDetailResp struct {
	*model.Book
	Reviews       []repository.ReviewWithAuthor `json:"reviews"`
	AverageRating float64                       `json:"average_rating"`
	ReviewCount   int                           `json:"review_count"`
}

// Get returns one catalog entry with its reviews and rating summary.
func (h *BookHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	ctx := c.Request().Context()
	book, err := h.Books.GetBook(ctx, id)
	if err != nil {
		return engineError(c, err)
	}
	reviews, err := h.Reviews.ListByBook(ctx, id)
	if err != nil {
		return engineError(c, err)
	}
	avg, count, err := h.Reviews.AverageRating(ctx, id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, bookDetailResp{
		Book:          book,
		Reviews:       reviews,
		AverageRating: avg,
		ReviewCount:   count,
	})
}

type bookReq struct {
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	Publisher       string   `json:"publisher"`
	ISBN            string   `json:"isbn"`
	Year            int      `json:"year"`
	Edition         *string  `json:"edition"`
	Description     string   `json:"description"`
	Subjects        []string `json:"subjects"`
	Location        string   `json:"location"`
	CopiesTotal     int      `json:"copies_total"`
	CopiesAvailable *int     `json:"copies_available"`
	CoverImage      *string  `json:"cover_image"`
}

// Create adds a catalog entry.  Staff only (enforced by the route
// group).  New entries start with every copy available unless the
// request says otherwise.
func (h *BookHandler) Create(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" || strings.TrimSpace(req.ISBN) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title, author and isbn required"})
	}
	if req.CopiesTotal < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "copies_total must be at least 1"})
	}
	available := req.CopiesTotal
	if req.CopiesAvailable != nil {
		available = *req.CopiesAvailable
	}
	if available < 0 || available > req.CopiesTotal {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "copies_available out of range"})
	}

	userID, _ := currentUserID(c)
	book := &model.Book{
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		Publisher:       strings.TrimSpace(req.Publisher),
		ISBN:            strings.TrimSpace(req.ISBN),
		Year:            req.Year,
		Edition:         req.Edition,
		Description:     req.Description,
		Subjects:        req.Subjects,
		Location:        req.Location,
		CopiesTotal:     req.CopiesTotal,
		CopiesAvailable: available,
		CoverImage:      req.CoverImage,
		AddedBy:         &userID,
	}
	if err := h.Books.Create(c.Request().Context(), book); err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, book)
}

// Update edits a catalog entry's descriptive fields.  Staff only.
func (h *BookHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx := c.Request().Context()
	book, err := h.Books.GetBook(ctx, id)
	if err != nil {
		return engineError(c, err)
	}
	if req.Title != "" {
		book.Title = strings.TrimSpace(req.Title)
	}
	if req.Author != "" {
		book.Author = strings.TrimSpace(req.Author)
	}
	if req.Publisher != "" {
		book.Publisher = strings.TrimSpace(req.Publisher)
	}
	if req.ISBN != "" {
		book.ISBN = strings.TrimSpace(req.ISBN)
	}
	if req.Year != 0 {
		book.Year = req.Year
	}
	if req.Edition != nil {
		book.Edition = req.Edition
	}
	if req.Description != "" {
		book.Description = req.Description
	}
	if req.Subjects != nil {
		book.Subjects = req.Subjects
	}
	if req.Location != "" {
		book.Location = req.Location
	}
	if req.CopiesTotal > 0 {
		book.CopiesTotal = req.CopiesTotal
	}
	if req.CoverImage != nil {
		book.CoverImage = req.CoverImage
	}
	if err := h.Books.Update(ctx, book); err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, book)
}

type reviewReq struct {
	Rating int     `json:"rating"`
	Review *string `json:"review"`
}

// CreateReview records the caller's rating of a book.  One review
// per user per book.
func (h *BookHandler) CreateReview(c echo.Context) error {
	bookID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
	}
	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	if _, err := h.Books.GetBook(ctx, bookID); err != nil {
		return engineError(c, err)
	}
	review := &model.BookReview{
		BookID:    bookID,
		UserID:    userID,
		Rating:    req.Rating,
		Review:    req.Review,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "you already reviewed this book"})
		}
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, review)
}
