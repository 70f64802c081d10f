package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/repository"
)

// CourseHandler serves courses and their reading lists.
type CourseHandler struct {
	Courses *repository.CourseRepo
	Books   *repository.BookRepo
}

func NewCourseHandler(co *repository.CourseRepo, b *repository.BookRepo) *CourseHandler {
	return &CourseHandler{Courses: co, Books: b}
}

// List returns every course.
func (h *CourseHandler) List(c echo.Context) error {
	courses, err := h.Courses.ListCourses(c.Request().Context())
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, courses)
}

type courseDetailResp struct {
	*model.Course
	ReadingList []repository.ReadingListEntry `json:"reading_list"`
}

// Get returns one course with its reading list in priority order.
func (h *CourseHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}
	ctx := c.Request().Context()
	course, err := h.Courses.GetCourse(ctx, id)
	if err != nil {
		return engineError(c, err)
	}
	list, err := h.Courses.ReadingList(ctx, id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, courseDetailResp{Course: course, ReadingList: list})
}

type courseReq struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Department  string  `json:"department"`
}

// Create adds a course.  Staff only.
func (h *CourseHandler) Create(c echo.Context) error {
	var req courseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and name required"})
	}
	course := &model.Course{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Department:  strings.TrimSpace(req.Department),
	}
	if err := h.Courses.CreateCourse(c.Request().Context(), course); err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, course)
}

type courseBookReq struct {
	BookID     uint64 `json:"book_id"`
	Priority   int    `json:"priority"`
	IsRequired bool   `json:"is_required"`
}

// AddBook links a book into a course reading list.  Staff only.
func (h *CourseHandler) AddBook(c echo.Context) error {
	courseID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}
	var req courseBookReq
	if err := c.Bind(&req); err != nil || req.BookID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "book_id required"})
	}
	userID, _ := currentUserID(c)

	ctx := c.Request().Context()
	if _, err := h.Courses.GetCourse(ctx, courseID); err != nil {
		return engineError(c, err)
	}
	if _, err := h.Books.GetBook(ctx, req.BookID); err != nil {
		return engineError(c, err)
	}
	cb := &model.CourseBook{
		CourseID:   courseID,
		BookID:     req.BookID,
		AddedBy:    userID,
		Priority:   req.Priority,
		IsRequired: req.IsRequired,
	}
	if err := h.Courses.AddBook(ctx, cb); err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, cb)
}
