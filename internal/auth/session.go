package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-forge/internal/store"
)

const (
	SessionCookieName  = "tf_session"
	sessionKeyUserID   = "auth_user_id"
	sessionKeyIssuedAt = "issued_at"
	sessionKeyCSRF     = "csrf_token"

	csrfFormField = "csrf_token"
)

var maxSessionLifetime = 12 * time.Hour

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func SessionMaxAgeSeconds() int {
	return int(maxSessionLifetime.Seconds())
}

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// Sessions はセッションとユーザーの紐付け・解決を行います。
// セッションにはユーザーIDだけを保存し、完全なレコードはリクエストごとに
// ストアから引き直します。
type Sessions struct {
	store  UserStore
	logger *slog.Logger
}

// NewSessions は Sessions を作成します。
func NewSessions(userStore UserStore, logger *slog.Logger) *Sessions {
	return &Sessions{store: userStore, logger: logger}
}

// Bind は認証成功または登録完了したユーザーをセッションへ紐付けます。
// 以前の匿名セッションの値はすべて破棄し、CSRFトークンも発行し直します。
func (s *Sessions) Bind(c *gin.Context, userID int64) error {
	token, err := generateToken()
	if err != nil {
		return err
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionKeyUserID, userID)
	session.Set(sessionKeyIssuedAt, time.Now().Unix())
	session.Set(sessionKeyCSRF, token)
	return session.Save()
}

// Unbind はログアウトでセッションを破棄します。破棄後のクッキーでは
// 以後どのリクエストも認証されません。
func (s *Sessions) Unbind(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// Current は現在のリクエストのセッションをユーザーへ解決します。
// トークンなし・期限切れ・ストアから消えたIDはすべて匿名（nil）として
// 扱い、エラーにはしません。
func (s *Sessions) Current(c *gin.Context) *store.User {
	session := sessions.Default(c)

	id, ok := session.Get(sessionKeyUserID).(int64)
	if !ok || id == 0 {
		return nil
	}

	issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
	if issuedAt.IsZero() || time.Since(issuedAt) > maxSessionLifetime {
		session.Clear()
		_ = session.Save()
		return nil
	}

	user, err := s.store.FindByID(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("session user lookup failed",
				slog.Int64("user_id", id),
				slog.String("error", err.Error()))
		}
		return nil
	}
	return user
}

// RequireLogin は未ログインのリクエストを /login へリダイレクトする
// ミドルウェアを返します。拒否ではなく通常の導線として扱います。
func (s *Sessions) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := s.Current(c)
		if user == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// VerifyCSRF はフォームの csrf_token フィールドを検証するミドルウェアです。
func (s *Sessions) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		session := sessions.Default(c)
		expected, ok := session.Get(sessionKeyCSRF).(string)
		if !ok || expected == "" {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		received := c.PostForm(csrfFormField)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		c.Next()
	}
}

// CSRFToken はテンプレートの hidden フィールドに埋め込むトークンを返します。
func CSRFToken(c *gin.Context) string {
	session := sessions.Default(c)
	token, _ := session.Get(sessionKeyCSRF).(string)
	return token
}

// CurrentUser は RequireLogin が解決したユーザーをコンテキストから取り出します。
func CurrentUser(c *gin.Context) *store.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*store.User)
	if !ok {
		return nil
	}
	return user
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
