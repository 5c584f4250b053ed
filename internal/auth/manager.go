// Package auth は登録・ログイン・ログアウトとログイン必須ページの保護を提供します。
package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatehouse/internal/pages"
	"github.com/yourusername/gatehouse/internal/session"
	"github.com/yourusername/gatehouse/internal/users"
	"github.com/yourusername/gatehouse/internal/validation"
)

const (
	SessionCookieName = "gh_session"
	sessionKeyID      = "sid"
)

// ContextSessionKey は、ハンドラー間でログイン中のセッションを共有するためのキーです。
const ContextSessionKey = "auth.session"

// Manager は認証処理に必要な依存をまとめた構造体です。
type Manager struct {
	users     users.Repository
	sessions  *session.Manager
	hasher    *Hasher
	logger    *log.Logger
	pickImage pages.ImagePicker
}

// Options は Manager の任意設定です。
type Options struct {
	Logger      *log.Logger
	ImagePicker pages.ImagePicker
}

// NewManager は認証マネージャーを作成します。
func NewManager(repo users.Repository, sessions *session.Manager, hasher *Hasher, opts Options) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("user repository is nil")
	}
	if sessions == nil {
		return nil, errors.New("session manager is nil")
	}
	if hasher == nil {
		hasher = NewHasher(DefaultBcryptCost)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ImagePicker == nil {
		opts.ImagePicker = pages.RandomImage
	}
	return &Manager{
		users:     repo,
		sessions:  sessions,
		hasher:    hasher,
		logger:    opts.Logger,
		pickImage: opts.ImagePicker,
	}, nil
}

// SubmitUser は POST /submitUser のハンドラーです。
func (m *Manager) SubmitUser(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		m.logger.Printf("Error with validation: %v", err)
		c.Redirect(http.StatusFound, "/createUser")
		return
	}

	in, violation := validation.Registration(c.Request.PostForm)
	if violation != nil {
		m.logger.Printf("Error with validation: %v", violation)
		c.Redirect(http.StatusFound, "/createUser")
		return
	}

	hashed, err := m.hasher.Hash(in.Password)
	if err != nil {
		m.logger.Printf("failed to hash password: %v", err)
		pages.InternalError(c)
		return
	}

	user := &users.User{
		Name:     in.Name,
		Email:    in.Email,
		Username: in.Username,
		Password: hashed,
	}
	if err := m.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, users.ErrDuplicateUsername) {
			m.logger.Printf("Username already taken: %s", in.Username)
			c.Redirect(http.StatusFound, "/createUser")
			return
		}
		m.logger.Printf("failed to create user: %v", err)
		pages.InternalError(c)
		return
	}

	if err := m.startSession(c, user); err != nil {
		m.logger.Printf("failed to start session: %v", err)
		pages.InternalError(c)
		return
	}

	m.logger.Printf("Successfully created user %s", user.Username)
	c.Redirect(http.StatusFound, "/loggedIn")
}

// SubmitLogin は POST /submitLogin のハンドラーです。
// 入力を検証してからユーザーを検索するため、不正な入力でデータベースを参照しません。
func (m *Manager) SubmitLogin(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		m.logger.Printf("Not valid input: %v", err)
		c.Redirect(http.StatusFound, "/login")
		return
	}

	in, violation := validation.Login(c.Request.PostForm)
	if violation != nil {
		m.logger.Printf("Not valid input: %v", violation)
		c.Redirect(http.StatusFound, "/login")
		return
	}

	user, err := m.users.FindByUsername(c.Request.Context(), in.Username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			m.logger.Printf("User Not Found")
			c.Redirect(http.StatusFound, "/login")
			return
		}
		m.logger.Printf("failed to find user: %v", err)
		pages.InternalError(c)
		return
	}

	if !m.hasher.Verify(in.Password, user.Password) {
		m.logger.Printf("Wrong Password")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if err := m.startSession(c, user); err != nil {
		m.logger.Printf("failed to start session: %v", err)
		pages.InternalError(c)
		return
	}

	m.logger.Printf("Successfully logged in %s", user.Username)
	c.Redirect(http.StatusFound, "/loggedIn")
}

// startSession は新しいセッションを作成し、Cookie にIDを書き込みます。
// 既存のセッションがあれば先に破棄します。
func (m *Manager) startSession(c *gin.Context, user *users.User) error {
	cookie := sessions.Default(c)
	if previous, ok := cookie.Get(sessionKeyID).(string); ok && previous != "" {
		if err := m.sessions.Destroy(c.Request.Context(), previous); err != nil {
			m.logger.Printf("failed to destroy previous session: %v", err)
		}
	}

	record, err := m.sessions.Create(c.Request.Context(), user.Username, user.Name)
	if err != nil {
		return err
	}
	cookie.Set(sessionKeyID, record.ID)
	return cookie.Save()
}

func sessionID(c *gin.Context) string {
	id, _ := sessions.Default(c).Get(sessionKeyID).(string)
	return id
}
