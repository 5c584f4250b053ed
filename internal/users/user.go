// Package users は利用者の認証情報を保存するストアを提供します。
package users

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound は該当するユーザーが存在しないことを表します。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUsername は同じユーザー名が既に登録されていることを表します。
	ErrDuplicateUsername = errors.New("username already registered")
)

// User は登録済みユーザーを表します。Password は bcrypt ハッシュのみを保持します。
type User struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Username  string    `bson:"username"`
	Password  string    `bson:"password"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Repository はユーザーの保存先です。
type Repository interface {
	// Create はユーザーを追加します。ID と CreatedAt が空なら補完します。
	Create(ctx context.Context, user *User) error
	// FindByUsername は該当ユーザーがいなければ ErrNotFound を返します。
	FindByUsername(ctx context.Context, username string) (*User, error)
}
