package auth

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatehouse/internal/pages"
	"github.com/yourusername/gatehouse/internal/session"
)

// NewCookieStore はセッションIDだけを載せる Cookie ストアを作成します。
// Cookie は secret から導出した鍵で署名・暗号化されます。
func NewCookieStore(secret string, ttl time.Duration, secure bool) sessions.Store {
	hashKey := sha256.Sum256([]byte("cookie-hash:" + secret))
	blockKey := sha256.Sum256([]byte("cookie-block:" + secret))

	store := cookie.NewStore(hashKey[:], blockKey[:])
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// Sessions は Cookie セッションを有効にするミドルウェアを返します。
func Sessions(store sessions.Store) gin.HandlerFunc {
	return sessions.Sessions(SessionCookieName, store)
}

// RequireLogin はセッションを検証するミドルウェアを返します。
// 未ログインまたは期限切れの場合は /login にリダイレクトします。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sessionID(c)
		record, err := m.sessions.Lookup(c.Request.Context(), id)
		if err != nil {
			m.logger.Printf("failed to load session: %v", err)
			pages.InternalError(c)
			return
		}

		if record == nil || !record.Authenticated {
			m.logger.Printf("Not logged in")
			if id != "" {
				clearCookie(c)
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, record)
		c.Next()
	}
}

// CurrentSession は RequireLogin が保存したセッションを返します。
func CurrentSession(c *gin.Context) *session.Record {
	record, _ := c.Get(ContextSessionKey)
	r, _ := record.(*session.Record)
	return r
}

func clearCookie(c *gin.Context) {
	cookie := sessions.Default(c)
	cookie.Clear()
	cookie.Options(sessions.Options{Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	_ = cookie.Save()
}
