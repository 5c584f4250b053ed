// Package main はWebサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatehouse/internal/auth"
	"github.com/yourusername/gatehouse/internal/config"
	"github.com/yourusername/gatehouse/internal/pages"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// データベース接続とストアの準備（終了時に切断する）
	app, err := newApp(ctx, cfg, log.Default())
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Printf("Failed to close application: %v", err)
		}
	}()

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()
	setupRoutes(router, cfg, app)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server is running on port %s (mode: %s, sessions: %s)", cfg.Port, cfg.GinMode, cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
	log.Printf("Server stopped")
}

// handleHealth はヘルスチェックエンドポイントのハンドラーを返します。
func handleHealth(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.Ping(c.Request.Context()); err != nil {
			log.Printf("health check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "gatehouse",
		})
	}
}

// setupRoutes はページと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, app *App) {
	router.SetHTMLTemplate(pages.Templates())

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// セッションCookieにはセッションIDだけを載せる
	router.Use(auth.Sessions(auth.NewCookieStore(cfg.SessionSecret, app.Sessions.TTL(), cfg.GinMode == gin.ReleaseMode)))

	router.GET("/healthz", handleHealth(app))

	router.GET("/", pages.Index)
	router.GET("/createUser", pages.CreateUserForm)
	router.GET("/login", pages.LoginForm)

	router.POST("/submitUser", app.Auth.SubmitUser)
	router.POST("/submitLogin", app.Auth.SubmitLogin)

	router.GET("/loggedIn", app.Auth.RequireLogin(), app.Auth.LoggedIn)
	router.GET("/logout", app.Auth.Logout)

	// 上記以外は静的ファイルか 404
	router.NoRoute(pages.NotFound(cfg.PublicDir))
}
