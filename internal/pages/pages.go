// Package pages はサーバーサイドでレンダリングする HTML ページを提供します。
package pages

import (
	"embed"
	"fmt"
	"html/template"
	"math/rand/v2"
	"net/http"

	"github.com/gin-gonic/gin"
)

// テンプレート名
const (
	TemplateIndex      = "index.html"
	TemplateCreateUser = "create_user.html"
	TemplateLogin      = "login.html"
	TemplateLoggedIn   = "logged_in.html"
	TemplateNotFound   = "not_found.html"
	TemplateError      = "error.html"
)

// ImageCount はログイン後ページでランダムに選ぶ画像の枚数です。
const ImageCount = 5

//go:embed templates/*.html
var templateFS embed.FS

// Templates は埋め込みテンプレートを返します。router.SetHTMLTemplate に渡します。
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// ImagePicker はログイン後ページに表示する画像ファイル名を返します。
type ImagePicker func() string

// RandomImage は picture1.png から picture5.png を一様に選びます。
func RandomImage() string {
	return fmt.Sprintf("picture%d.png", rand.IntN(ImageCount)+1)
}

// Index は GET / のハンドラーです。
func Index(c *gin.Context) {
	c.HTML(http.StatusOK, TemplateIndex, nil)
}

// CreateUserForm は GET /createUser のハンドラーです。
func CreateUserForm(c *gin.Context) {
	c.HTML(http.StatusOK, TemplateCreateUser, nil)
}

// LoginForm は GET /login のハンドラーです。
func LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, TemplateLogin, nil)
}

// LoggedIn はログイン後ページを描画します。
func LoggedIn(c *gin.Context, name, image string) {
	c.HTML(http.StatusOK, TemplateLoggedIn, gin.H{
		"Name":  name,
		"Image": image,
	})
}

// RenderNotFound は 404 ページを返します。
func RenderNotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, TemplateNotFound, nil)
}

// InternalError は詳細を伏せた 500 ページを返し、後続のハンドラーを止めます。
func InternalError(c *gin.Context) {
	c.HTML(http.StatusInternalServerError, TemplateError, nil)
	c.Abort()
}
