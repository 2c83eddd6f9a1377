package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-forge/internal/store"
)

// Handler はログイン・登録・ログアウトのHTTPハンドラーをまとめます。
type Handler struct {
	store    UserStore
	hasher   *Hasher
	auth     *Authenticator
	sessions *Sessions
	limiter  *RateLimiter
	logger   *slog.Logger
	timeout  time.Duration
}

// NewHandler は認証ハンドラーを作成します。
func NewHandler(userStore UserStore, hasher *Hasher, sessions *Sessions, logger *slog.Logger, timeout time.Duration) *Handler {
	return &Handler{
		store:    userStore,
		hasher:   hasher,
		auth:     NewAuthenticator(userStore, hasher, logger),
		sessions: sessions,
		limiter:  NewRateLimiter(),
		logger:   logger,
		timeout:  timeout,
	}
}

// ShowHome は GET / のハンドラーです。
func (h *Handler) ShowHome(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", gin.H{})
}

// ShowLogin は GET /login のハンドラーです。
func (h *Handler) ShowLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Error":    "",
		"Username": "",
	})
}

// ShowRegister は GET /register のハンドラーです。
func (h *Handler) ShowRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{
		"Errors":    nil,
		"Name":      "",
		"Username":  "",
		"ShowLogin": false,
	})
}

// Login は POST /login のハンドラーです。
// 失敗時はリダイレクトせず、入力済みのメールを保持したままフォームを
// 再描画します。失敗理由は常に同じ文言です。
func (h *Handler) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	ip := c.ClientIP()
	if retryAfter := h.limiter.CheckLock(ip); retryAfter > 0 {
		c.HTML(http.StatusTooManyRequests, "login.html", gin.H{
			"Error":    "Too many attempts, please try again later",
			"Username": email,
		})
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	user, ok, err := h.auth.Authenticate(ctx, email, password)
	if err != nil {
		h.logger.Error("authentication failed",
			slog.String("error", err.Error()))
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{
			"Error":    "Server error",
			"Username": email,
		})
		return
	}
	if !ok {
		h.limiter.RecordFailure(ip)
		c.HTML(http.StatusOK, "login.html", gin.H{
			"Error":    InvalidCredentialsMessage,
			"Username": email,
		})
		return
	}

	h.limiter.Reset(ip)

	if err := h.sessions.Bind(c, user.ID); err != nil {
		h.logger.Error("session bind failed",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()))
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{
			"Error":    "Server error",
			"Username": email,
		})
		return
	}

	c.Redirect(http.StatusFound, "/todo")
}

// Register は POST /register のハンドラーです。
// バリデーション失敗は全件まとめて再描画し、登録済みメールの場合は
// ログインへの導線を表示します。
func (h *Handler) Register(c *gin.Context) {
	name := c.PostForm("name")
	email := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	if errs := ValidateRegistration(name, email, password); len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			messages = append(messages, e.Message)
		}
		c.HTML(http.StatusBadRequest, "register.html", gin.H{
			"Errors":    messages,
			"Name":      name,
			"Username":  email,
			"ShowLogin": false,
		})
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	// 登録済みメールには bcrypt を回す前に案内を返す。
	// 一意性の最終保証はあくまで users.email の制約側にある。
	if _, err := h.store.FindByEmail(ctx, email); err == nil {
		h.renderDuplicateEmail(c, name, email)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.renderRegisterError(c, name, email, err)
		return
	}

	hash, err := h.hasher.Hash(password)
	if err != nil {
		h.renderRegisterError(c, name, email, err)
		return
	}

	user, err := h.store.CreateUser(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			// 事前チェックとINSERTの間に同じメールで登録された場合
			h.renderDuplicateEmail(c, name, email)
			return
		}
		h.renderRegisterError(c, name, email, err)
		return
	}

	h.logger.Info("user registered", slog.Int64("user_id", user.ID))

	if err := h.sessions.Bind(c, user.ID); err != nil {
		h.renderRegisterError(c, name, email, err)
		return
	}

	c.Redirect(http.StatusFound, "/todo")
}

// Logout は GET /logout のハンドラーです。
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Unbind(c); err != nil {
		h.logger.Error("session unbind failed", slog.String("error", err.Error()))
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) renderDuplicateEmail(c *gin.Context, name, email string) {
	c.HTML(http.StatusBadRequest, "register.html", gin.H{
		"Errors":    []string{"Email already in use"},
		"Name":      name,
		"Username":  email,
		"ShowLogin": true,
	})
}

func (h *Handler) renderRegisterError(c *gin.Context, name, email string, err error) {
	h.logger.Error("registration failed", slog.String("error", err.Error()))
	c.HTML(http.StatusInternalServerError, "register.html", gin.H{
		"Errors":    []string{"Server error"},
		"Name":      name,
		"Username":  email,
		"ShowLogin": false,
	})
}

func (h *Handler) opContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return c.Request.Context(), func() {}
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}
