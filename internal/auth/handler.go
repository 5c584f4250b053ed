package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatehouse/internal/pages"
)

// LoggedIn は GET /loggedIn のハンドラーです。RequireLogin の後ろに置きます。
func (m *Manager) LoggedIn(c *gin.Context) {
	record := CurrentSession(c)
	if record == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	pages.LoggedIn(c, record.Name, m.pickImage())
}

// Logout は GET /logout のハンドラーです。既にログアウト済みでもそのまま / に戻します。
func (m *Manager) Logout(c *gin.Context) {
	if id := sessionID(c); id != "" {
		if err := m.sessions.Destroy(c.Request.Context(), id); err != nil {
			m.logger.Printf("failed to destroy session: %v", err)
		}
		clearCookie(c)
	}
	m.logger.Printf("Logged out")
	c.Redirect(http.StatusFound, "/")
}
