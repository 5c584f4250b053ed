// Package validation はフォーム入力のスキーマ検証を提供します。
// Web フレームワークには依存せず、url.Values を受け取って型付きの結果を返します。
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ReservedUsername は登録・ログインの両方で拒否されるユーザー名です（大文字小文字は区別します）。
const ReservedUsername = "admin"

var passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9]{3,30}$`)

// RegistrationInput は /submitUser のフォームです。
type RegistrationInput struct {
	Name     string `form:"name" validate:"required,min=3,max=20"`
	Email    string `form:"email" validate:"required,email"`
	Username string `form:"username" validate:"required,alphanum,min=3,max=20,ne=admin"`
	Password string `form:"password" validate:"required,password"`
}

// LoginInput は /submitLogin のフォームです。
type LoginInput struct {
	Username string `form:"username" validate:"required,alphanum,min=3,max=20,ne=admin"`
	Password string `form:"password" validate:"required,password"`
}

// Violation は最初に違反した制約を表します。
// 詳細はサーバーログにのみ出力し、クライアントには返しません。
type Violation struct {
	Field string // フォーム上のフィールド名
	Rule  string // 違反したルール（required, min, email, unknown など）
	Param string // ルールのパラメータ（min=3 の 3 など）
}

func (v *Violation) Error() string {
	if v.Param != "" {
		return fmt.Sprintf("%s: failed %s=%s", v.Field, v.Rule, v.Param)
	}
	return fmt.Sprintf("%s: failed %s", v.Field, v.Rule)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("form")
	})
	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Registration は登録フォームを検証します。
func Registration(values url.Values) (RegistrationInput, *Violation) {
	if v := rejectUnknown(values, "name", "email", "username", "password"); v != nil {
		return RegistrationInput{}, v
	}
	in := RegistrationInput{
		Name:     values.Get("name"),
		Email:    values.Get("email"),
		Username: values.Get("username"),
		Password: values.Get("password"),
	}
	if v := check(in); v != nil {
		return RegistrationInput{}, v
	}
	return in, nil
}

// Login はログインフォームを検証します。
func Login(values url.Values) (LoginInput, *Violation) {
	if v := rejectUnknown(values, "username", "password"); v != nil {
		return LoginInput{}, v
	}
	in := LoginInput{
		Username: values.Get("username"),
		Password: values.Get("password"),
	}
	if v := check(in); v != nil {
		return LoginInput{}, v
	}
	return in, nil
}

// rejectUnknown はスキーマにないフィールドを拒否します。
// 複数ある場合はフィールド名順で最初のものを返します。
func rejectUnknown(values url.Values, allowed ...string) *Violation {
	var unknown []string
	for key := range values {
		found := false
		for _, a := range allowed {
			if key == a {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &Violation{Field: unknown[0], Rule: "unknown"}
}

func check(in any) *Violation {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &Violation{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}
	return &Violation{Field: "", Rule: strings.TrimSpace(err.Error())}
}
