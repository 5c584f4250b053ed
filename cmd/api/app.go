package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/gatehouse/internal/auth"
	"github.com/yourusername/gatehouse/internal/config"
	"github.com/yourusername/gatehouse/internal/session"
	"github.com/yourusername/gatehouse/internal/storage"
	"github.com/yourusername/gatehouse/internal/users"
)

// App は起動時に一度だけ組み立てるアプリケーションの依存一式です。
type App struct {
	Auth     *auth.Manager
	Sessions *session.Manager

	mongo  *storage.Mongo
	redis  *redis.Client
	pinger func(ctx context.Context) error
}

// newApp は MongoDB に接続し、ユーザーストアとセッションストアを準備します。
func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	ensureSecrets(cfg, logger)

	mongo, err := storage.Connect(ctx, cfg.MongoConnectionURI(), cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	app := &App{mongo: mongo, pinger: mongo.Ping}

	repo := users.NewMongoRepository(mongo.Collection(cfg.UsersCollection))
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}

	store, err := app.setupSessionStore(ctx, cfg)
	if err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}

	if err := app.wire(repo, store, cfg, logger); err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	return app, nil
}

// newMemoryApp はデータベースを使わずに App を組み立てます（テスト用）。
func newMemoryApp(cfg *config.Config, logger *log.Logger) (*App, *users.MemoryRepository, *session.MemoryStore, error) {
	ensureSecrets(cfg, logger)
	repo := users.NewMemoryRepository()
	store := session.NewMemoryStore()
	app := &App{pinger: func(context.Context) error { return nil }}
	if err := app.wire(repo, store, cfg, logger); err != nil {
		return nil, nil, nil, err
	}
	return app, repo, store, nil
}

func (a *App) wire(repo users.Repository, store session.Store, cfg *config.Config, logger *log.Logger) error {
	sessions, err := session.NewManager(store, session.WithTTL(session.DefaultTTL))
	if err != nil {
		return err
	}
	manager, err := auth.NewManager(repo, sessions, auth.NewHasher(cfg.BcryptCost), auth.Options{Logger: logger})
	if err != nil {
		return err
	}
	a.Sessions = sessions
	a.Auth = manager
	return nil
}

func (a *App) setupSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	sealer := session.NewSealer(cfg.SessionStoreSecret)

	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return session.NewMemoryStore(), nil
	case config.SessionBackendRedis:
		opt, err := redis.ParseURL(cfg.SessionRedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opt)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return session.NewRedisStore(a.redis, sealer), nil
	default:
		store := session.NewMongoStore(a.mongo.Collection(cfg.SessionsCollection), sealer)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
}

// Ping は依存先の疎通を確認します。
func (a *App) Ping(ctx context.Context) error {
	if err := a.pinger(ctx); err != nil {
		return err
	}
	if a.redis != nil {
		return a.redis.Ping(ctx).Err()
	}
	return nil
}

// Close は接続を閉じます。
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.mongo != nil {
		errs = append(errs, a.mongo.Close(ctx))
	}
	return errors.Join(errs...)
}

// ensureSecrets は開発時にシークレットが未設定ならランダムな値を補います。
// 再起動するとセッションは無効になります。
func ensureSecrets(cfg *config.Config, logger *log.Logger) {
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = randomSecret()
		logger.Printf("SESSION_SECRET is not set; using a random secret")
	}
	if cfg.SessionStoreSecret == "" {
		cfg.SessionStoreSecret = randomSecret()
		logger.Printf("MONGODB_SESSION_SECRET is not set; using a random secret")
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
