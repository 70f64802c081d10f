package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/university-library/internal/config"
	"github.com/iliyamo/university-library/internal/lending"
	"github.com/iliyamo/university-library/internal/model"
	"github.com/iliyamo/university-library/internal/queue"
	"github.com/iliyamo/university-library/internal/repository"
)

// PaperHandler serves the research paper archive: listing, detail,
// upload and sharing.  Sharing rides the same notification queue as
// the lending events.
type PaperHandler struct {
	Cfg           config.Config
	Papers        *repository.PaperRepo
	Users         *repository.UserRepo
	Notifications *repository.NotificationRepo
	Events        lending.EventPublisher
}

func NewPaperHandler(cfg config.Config, p *repository.PaperRepo, u *repository.UserRepo, n *repository.NotificationRepo, ev lending.EventPublisher) *PaperHandler {
	return &PaperHandler{Cfg: cfg, Papers: p, Users: u, Notifications: n, Events: ev}
}

// List returns papers newest first; ?q= filters by title, author or
// subject.
func (h *PaperHandler) List(c echo.Context) error {
	papers, err := h.Papers.ListPapers(c.Request().Context(), strings.TrimSpace(c.QueryParam("q")))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, papers)
}

// Get returns one paper.
func (h *PaperHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid paper id"})
	}
	paper, err := h.Papers.GetPaper(c.Request().Context(), id)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, paper)
}

type paperReq struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Journal     *string `json:"journal"`
	PublishDate string  `json:"publish_date"` // YYYY-MM-DD
	Subject     string  `json:"subject"`
	Abstract    *string `json:"abstract"`
	FilePath    string  `json:"file_path"`
}

// Create uploads a paper record.  Staff only.
func (h *PaperHandler) Create(c echo.Context) error {
	var req paperReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and author required"})
	}
	published, err := time.Parse("2006-01-02", req.PublishDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "publish_date must be YYYY-MM-DD"})
	}
	userID, _ := currentUserID(c)

	paper := &model.ResearchPaper{
		Title:       strings.TrimSpace(req.Title),
		Author:      strings.TrimSpace(req.Author),
		Journal:     req.Journal,
		PublishDate: published,
		Subject:     strings.TrimSpace(req.Subject),
		Abstract:    req.Abstract,
		FilePath:    req.FilePath,
		UploadedBy:  userID,
		UploadedAt:  time.Now().UTC(),
	}
	if err := h.Papers.CreatePaper(c.Request().Context(), paper); err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, paper)
}

type shareReq struct {
	RecipientID uint64 `json:"recipient_id"`
}

// Share sends a paper to another user: an in-app notice written
// synchronously, plus a best-effort email event.  A failed email
// never fails the share.
func (h *PaperHandler) Share(c echo.Context) error {
	paperID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid paper id"})
	}
	var req shareReq
	if err := c.Bind(&req); err != nil || req.RecipientID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "recipient_id required"})
	}

	ctx := c.Request().Context()
	paper, err := h.Papers.GetPaper(ctx, paperID)
	if err != nil {
		return engineError(c, err)
	}
	recipient, err := h.Users.GetUser(ctx, req.RecipientID)
	if err != nil {
		return engineError(c, err)
	}

	notice := &model.Notification{
		UserID:    recipient.ID,
		Title:     "Research Paper Shared",
		Message:   fmt.Sprintf("%q by %s was shared with you.", paper.Title, paper.Author),
		Type:      model.NotificationSystem,
		CreatedAt: time.Now().UTC(),
		RelatedData: map[string]uint64{
			"paper_id": paper.ID,
		},
	}
	if err := h.Notifications.CreateNotification(ctx, notice); err != nil {
		return engineError(c, err)
	}

	if h.Events != nil {
		ev := queue.NotificationEvent{
			Kind:         queue.KindPaperShared,
			Email:        recipient.Email,
			UserName:     recipient.Name,
			PaperTitle:   paper.Title,
			PaperAuthor:  paper.Author,
			DownloadLink: fmt.Sprintf("%s/api/v1/papers/%d", h.Cfg.BaseURL, paper.ID),
			OccurredAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if err := h.Events.Publish(ctx, ev); err != nil {
			c.Logger().Warnf("share paper %d: publish event: %v", paper.ID, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "paper shared"})
}
