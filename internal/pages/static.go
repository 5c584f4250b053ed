package pages

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// NotFound はルートに一致しなかったリクエストを処理します。
// publicDir に画像ファイルがあればそれを返し、なければ 404 ページを返します。
func NotFound(publicDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if publicDir != "" && (c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead) {
			if file, contentType, ok := lookupAsset(publicDir, c.Request.URL.Path); ok {
				c.Header("Content-Type", contentType)
				c.File(file)
				return
			}
		}
		RenderNotFound(c)
	}
}

// lookupAsset は公開してよい静的ファイルかどうかを中身から判定します。
func lookupAsset(publicDir, urlPath string) (string, string, bool) {
	clean := path.Clean("/" + urlPath)
	if clean == "/" {
		return "", "", false
	}
	file := filepath.Join(publicDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))

	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return "", "", false
	}

	mt, err := mimetype.DetectFile(file)
	if err != nil || !strings.HasPrefix(mt.String(), "image/") {
		return "", "", false
	}
	return file, mt.String(), true
}
