package todo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-forge/internal/auth"
	"github.com/yourusername/task-forge/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// emptyUserStore はユーザーが1人もいない UserStore です。
type emptyUserStore struct{}

func (emptyUserStore) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	return nil, store.ErrNotFound
}

func (emptyUserStore) FindByID(ctx context.Context, id int64) (*store.User, error) {
	return nil, store.ErrNotFound
}

func (emptyUserStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*store.User, error) {
	return nil, store.ErrNotFound
}

// boundUser はログイン済みユーザーを直接コンテキストへ注入するテスト用
// ミドルウェアです。RequireLogin を通した匿名系のテストとは分けて使います。
func boundUser(user *store.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextUserKey, user)
		c.Next()
	}
}

func newBoundRouter(t *testing.T, svc Submitter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.LoadHTMLGlob("../../web/templates/*.html")
	router.Use(sessions.Sessions(auth.SessionCookieName, cookie.NewStore([]byte("test-secret"))))

	handler := NewHandler(svc, testLogger(), 5*time.Second)
	user := &store.User{ID: 1, Name: "Ann", Email: "ann@x.com"}
	router.GET("/todo", boundUser(user), handler.ShowList)
	router.POST("/add-todo", boundUser(user), handler.Create)
	return router
}

func postTodoForm(router *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/add-todo", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateRedirectsOnSuccess(t *testing.T) {
	st := newStubStore()
	router := newBoundRouter(t, NewService(st))

	rec := postTodoForm(router, url.Values{
		"todotitle":   {"Buy milk"},
		"description": {"2 liters"},
		"priority":    {"High"},
		"category":    {"Work"},
	})

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/todo" {
		t.Fatalf("expected redirect to /todo, got %q", loc)
	}
	if len(st.created) != 1 {
		t.Fatalf("expected one insert, got %d", len(st.created))
	}
}

func TestCreateUnknownPriority(t *testing.T) {
	st := newStubStore()
	router := newBoundRouter(t, NewService(st))

	rec := postTodoForm(router, url.Values{
		"todotitle": {"Buy milk"},
		"priority":  {"Nonexistent"},
		"category":  {"Work"},
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec.Body.String() != "Priority not found" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
	if len(st.created) != 0 {
		t.Fatal("nothing must be inserted")
	}
}

func TestCreateUnknownCategory(t *testing.T) {
	st := newStubStore()
	router := newBoundRouter(t, NewService(st))

	rec := postTodoForm(router, url.Values{
		"todotitle": {"Buy milk"},
		"priority":  {"High"},
		"category":  {"Nonexistent"},
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec.Body.String() != "Category not found" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestCreateDescriptionFailure(t *testing.T) {
	st := newStubStore()
	st.createErr = store.ErrDescriptionInsert
	router := newBoundRouter(t, NewService(st))

	rec := postTodoForm(router, url.Values{
		"todotitle": {"Buy milk"},
		"priority":  {"High"},
		"category":  {"Work"},
	})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec.Body.String() != "Error adding description" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

// 匿名のまま /add-todo へ届いたリクエストはリダイレクトされ、ストアには
// 一切書き込まれない
func TestAnonymousSubmitIsRedirected(t *testing.T) {
	gin.SetMode(gin.TestMode)

	st := newStubStore()
	userStore := &emptyUserStore{}
	binder := auth.NewSessions(userStore, testLogger())

	router := gin.New()
	router.Use(sessions.Sessions(auth.SessionCookieName, cookie.NewStore([]byte("test-secret"))))
	handler := NewHandler(NewService(st), testLogger(), 5*time.Second)
	router.POST("/add-todo", binder.RequireLogin(), handler.Create)

	rec := postTodoForm(router, url.Values{
		"todotitle": {"Buy milk"},
		"priority":  {"High"},
		"category":  {"Work"},
	})

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
	if len(st.created) != 0 {
		t.Fatal("anonymous submit must not reach the store")
	}
}

// singleUserStore は ID 1 のユーザーだけを返す UserStore です。
type singleUserStore struct{}

func (singleUserStore) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	return nil, store.ErrNotFound
}

func (singleUserStore) FindByID(ctx context.Context, id int64) (*store.User, error) {
	if id == 1 {
		return &store.User{ID: 1, Name: "Ann", Email: "ann@x.com"}, nil
	}
	return nil, store.ErrNotFound
}

func (singleUserStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*store.User, error) {
	return nil, store.ErrNotFound
}

// newCSRFTestRouter は本番同様に RequireLogin と VerifyCSRF を通した
// /add-todo と、ログイン済みセッションを作って発行済みトークンを返す
// /bind を持つルーターを組み立てます。
func newCSRFTestRouter(t *testing.T, st *stubStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	binder := auth.NewSessions(singleUserStore{}, testLogger())

	router := gin.New()
	router.Use(sessions.Sessions(auth.SessionCookieName, cookie.NewStore([]byte("test-secret"))))
	router.GET("/bind", func(c *gin.Context) {
		if err := binder.Bind(c, 1); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, auth.CSRFToken(c))
	})

	handler := NewHandler(NewService(st), testLogger(), 5*time.Second)
	router.POST("/add-todo", binder.RequireLogin(), binder.VerifyCSRF(), handler.Create)
	return router
}

// bindSession はログイン済みセッションを作り、クッキーと発行された
// CSRFトークンを返します。
func bindSession(t *testing.T, router *gin.Engine) ([]*http.Cookie, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/bind", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bind failed: %d %s", rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies(), rec.Body.String()
}

func postTodoFormWithCookies(router *gin.Engine, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/add-todo", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateWithValidCSRFToken(t *testing.T) {
	st := newStubStore()
	router := newCSRFTestRouter(t, st)
	cookies, token := bindSession(t, router)

	rec := postTodoFormWithCookies(router, url.Values{
		"todotitle":  {"Buy milk"},
		"priority":   {"High"},
		"category":   {"Work"},
		"csrf_token": {token},
	}, cookies)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/todo" {
		t.Fatalf("expected redirect to /todo, got %q", loc)
	}
	if len(st.created) != 1 {
		t.Fatalf("expected one insert, got %d", len(st.created))
	}
}

func TestCreateWithoutCSRFTokenIsForbidden(t *testing.T) {
	st := newStubStore()
	router := newCSRFTestRouter(t, st)
	cookies, _ := bindSession(t, router)

	rec := postTodoFormWithCookies(router, url.Values{
		"todotitle": {"Buy milk"},
		"priority":  {"High"},
		"category":  {"Work"},
	}, cookies)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if len(st.created) != 0 {
		t.Fatal("request without a token must not reach the store")
	}
}

func TestCreateWithWrongCSRFTokenIsForbidden(t *testing.T) {
	st := newStubStore()
	router := newCSRFTestRouter(t, st)
	cookies, _ := bindSession(t, router)

	rec := postTodoFormWithCookies(router, url.Values{
		"todotitle":  {"Buy milk"},
		"priority":   {"High"},
		"category":   {"Work"},
		"csrf_token": {"deadbeefdeadbeefdeadbeefdeadbeef"},
	}, cookies)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if len(st.created) != 0 {
		t.Fatal("request with a forged token must not reach the store")
	}
}

// セッションクッキーなしでは CSRF 検査より前に RequireLogin が弾く
func TestCreateWithoutSessionIsRedirected(t *testing.T) {
	st := newStubStore()
	router := newCSRFTestRouter(t, st)

	rec := postTodoFormWithCookies(router, url.Values{
		"todotitle": {"Buy milk"},
		"priority":  {"High"},
		"category":  {"Work"},
	}, nil)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
	if len(st.created) != 0 {
		t.Fatal("anonymous submit must not reach the store")
	}
}

func TestShowListRendersTodos(t *testing.T) {
	st := newStubStore()
	st.todos = []store.Todo{
		{ID: 1, UserID: 1, Title: "Buy milk", Priority: "high", Category: "shopping", Description: "2 liters"},
	}
	router := newBoundRouter(t, NewService(st))

	req := httptest.NewRequest(http.MethodGet, "/todo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Ann", "Buy milk", "high", "shopping", "2 liters"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body must contain %q: %s", want, body)
		}
	}
}
