// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// セッションの保存先として選べるバックエンドです。
const (
	SessionBackendMongo  = "mongo"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // HTTPサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// MongoDB設定
	MongoURI           string // 接続文字列（指定時は下記の個別設定より優先）
	MongoScheme        string // mongodb または mongodb+srv
	MongoHost          string
	MongoUser          string
	MongoPassword      string
	MongoDatabase      string
	UsersCollection    string
	SessionsCollection string

	// セッション設定
	SessionSecret      string // セッションCookieの署名・暗号化鍵
	SessionStoreSecret string // 保存されるセッション内容の暗号化鍵
	SessionBackend     string // mongo, redis, memory
	SessionRedisURL    string // SESSION_BACKEND=redis のときの接続URL

	// 認証設定
	BcryptCost int

	// 静的ファイル
	PublicDir string

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		Port:    getEnv("PORT", "3000"),
		GinMode: getEnv("GIN_MODE", "debug"),

		MongoURI:           getEnv("MONGODB_URI", ""),
		MongoScheme:        getEnv("MONGODB_SCHEME", "mongodb+srv"),
		MongoHost:          getEnv("MONGODB_HOST", ""),
		MongoUser:          getEnv("MONGODB_USER", ""),
		MongoPassword:      getEnv("MONGODB_PASSWORD", ""),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "gatehouse"),
		UsersCollection:    getEnv("USERS_COLLECTION", "users"),
		SessionsCollection: getEnv("SESSIONS_COLLECTION", "sessions"),

		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionStoreSecret: getEnv("MONGODB_SESSION_SECRET", ""),
		SessionBackend:     strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendMongo)),
		SessionRedisURL:    getEnv("SESSION_REDIS_URL", "redis://127.0.0.1:6379/0"),

		BcryptCost: getEnvAsInt("BCRYPT_COST", 12),

		PublicDir: getEnv("PUBLIC_DIR", "public"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.SessionBackend {
	case SessionBackendMongo, SessionBackendRedis, SessionBackendMemory:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	// ローカル開発ではシークレットは任意
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if c.SessionStoreSecret == "" {
			return fmt.Errorf("MONGODB_SESSION_SECRET is required in release mode")
		}
		if c.MongoURI == "" && c.MongoHost == "" {
			return fmt.Errorf("MONGODB_URI or MONGODB_HOST is required in release mode")
		}
		if c.SessionBackend == SessionBackendRedis && c.SessionRedisURL == "" {
			return fmt.Errorf("SESSION_REDIS_URL is required when SESSION_BACKEND=redis")
		}
	}

	return nil
}

// MongoConnectionURI は MongoDB への接続文字列を返します。
// MONGODB_URI が設定されていればそれを、なければ個別設定から組み立てます。
func (c *Config) MongoConnectionURI() string {
	if c.MongoURI != "" {
		return c.MongoURI
	}
	scheme, host := c.MongoScheme, c.MongoHost
	if host == "" {
		scheme, host = "mongodb", "127.0.0.1:27017"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     "/",
		RawQuery: "retryWrites=true",
	}
	if c.MongoUser != "" {
		u.User = url.UserPassword(c.MongoUser, c.MongoPassword)
	}
	return u.String()
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
