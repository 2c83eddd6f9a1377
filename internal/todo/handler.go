package todo

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-forge/internal/auth"
	"github.com/yourusername/task-forge/internal/store"
)

// Submitter はハンドラーが必要とするサービス操作です。
type Submitter interface {
	Submit(ctx context.Context, userID int64, sub Submission) (int64, error)
	List(ctx context.Context, userID int64) ([]store.Todo, error)
}

// Handler はto-doページと作成フォームのHTTPハンドラーです。
type Handler struct {
	svc     Submitter
	logger  *slog.Logger
	timeout time.Duration
}

// NewHandler はto-doハンドラーを作成します。
func NewHandler(svc Submitter, logger *slog.Logger, timeout time.Duration) *Handler {
	return &Handler{svc: svc, logger: logger, timeout: timeout}
}

// ShowList は GET /todo のハンドラーです。RequireLogin で保護されています。
func (h *Handler) ShowList(c *gin.Context) {
	user := auth.CurrentUser(c)

	ctx, cancel := h.opContext(c)
	defer cancel()

	todos, err := h.svc.List(ctx, user.ID)
	if err != nil {
		h.logger.Error("list todos failed",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()))
		c.String(http.StatusInternalServerError, "Error loading todos")
		return
	}

	c.HTML(http.StatusOK, "todo.html", gin.H{
		"Name":      user.Name,
		"Todos":     todos,
		"CSRFToken": auth.CSRFToken(c),
	})
}

// Create は POST /add-todo のハンドラーです。
// 優先度・カテゴリが解決できない場合は 400、ストア障害は 500 を返します。
func (h *Handler) Create(c *gin.Context) {
	user := auth.CurrentUser(c)

	sub := Submission{
		Title:       c.PostForm("todotitle"),
		Description: c.PostForm("description"),
		DueDate:     c.PostForm("dueDate"),
		Priority:    c.PostForm("priority"),
		Category:    c.PostForm("category"),
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	id, err := h.svc.Submit(ctx, user.ID, sub)
	switch {
	case errors.Is(err, ErrPriorityNotFound):
		c.String(http.StatusBadRequest, "Priority not found")
		return
	case errors.Is(err, ErrCategoryNotFound):
		c.String(http.StatusBadRequest, "Category not found")
		return
	case errors.Is(err, ErrInvalidDueDate):
		c.String(http.StatusBadRequest, "Invalid due date")
		return
	case errors.Is(err, store.ErrDescriptionInsert):
		h.logger.Error("description insert failed",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()))
		c.String(http.StatusInternalServerError, "Error adding description")
		return
	case err != nil:
		h.logger.Error("todo insert failed",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()))
		c.String(http.StatusInternalServerError, "Error adding todo")
		return
	}

	h.logger.Info("todo created",
		slog.Int64("user_id", user.ID),
		slog.Int64("todo_id", id))
	c.Redirect(http.StatusFound, "/todo")
}

func (h *Handler) opContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return c.Request.Context(), func() {}
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}
