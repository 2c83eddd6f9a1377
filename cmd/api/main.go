// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-forge/internal/auth"
	"github.com/yourusername/task-forge/internal/config"
	"github.com/yourusername/task-forge/internal/middleware"
	"github.com/yourusername/task-forge/internal/pkg/logger"
	"github.com/yourusername/task-forge/internal/store"
	"github.com/yourusername/task-forge/internal/store/migrations"
	"github.com/yourusername/task-forge/internal/todo"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewDefault(cfg.LogLevel)

	// DB接続とマイグレーション
	ctx := context.Background()
	if err := migrations.Run(ctx, cfg.DSN()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	st, err := store.Open(ctx, cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(appLogger))

	// セッションストアの設定（クッキー署名鍵は必須）
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, sessionStore))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// テンプレートと静的ファイル
	router.LoadHTMLGlob("web/templates/*.html")
	router.Static("/static", "./web/static")

	// ルーティングの設定
	setupRoutes(router, cfg, appLogger, st)

	// サーバーの起動
	addr := ":" + cfg.Port
	appLogger.Info("starting server", slog.String("addr", addr), slog.String("mode", cfg.GinMode))
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "task-forge",
		"version": "0.1.0",
	})
}

// setupRoutes はページと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, appLogger *slog.Logger, st *store.Store) {
	timeout := time.Duration(cfg.StoreTimeout()) * time.Second

	hasher := auth.NewHasher(cfg.BcryptCost)
	sessionBinder := auth.NewSessions(st, appLogger)
	authHandler := auth.NewHandler(st, hasher, sessionBinder, appLogger, timeout)
	todoHandler := todo.NewHandler(todo.NewService(st), appLogger, timeout)

	router.GET("/health", handleHealth)

	router.GET("/", authHandler.ShowHome)
	router.GET("/login", authHandler.ShowLogin)
	router.GET("/register", authHandler.ShowRegister)
	router.GET("/logout", authHandler.Logout)

	// ログイン時はセッション未生成なので CSRF 検証は不要
	router.POST("/login", authHandler.Login)
	router.POST("/register", authHandler.Register)

	protected := router.Group("")
	protected.Use(sessionBinder.RequireLogin())
	{
		protected.GET("/todo", todoHandler.ShowList)
		protected.POST("/add-todo", sessionBinder.VerifyCSRF(), todoHandler.Create)
	}
}
