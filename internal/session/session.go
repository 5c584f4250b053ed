// Package session はサーバー側のセッションを管理します。
// ブラウザには不透明なセッションIDだけを渡し、内容は外部ストアに保存します。
package session

import (
	"context"
	"time"
)

// DefaultTTL はセッションの固定有効期間です。アクセスがあっても延長しません。
const DefaultTTL = 24 * time.Hour

// Record はセッションの内容です。
type Record struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	Username      string    `json:"username"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Expired は now 時点で期限切れかどうかを返します。
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store はセッションIDをキーにした保存先です。
// Load は該当データがなければ nil, nil を返します。
type Store interface {
	Save(ctx context.Context, record *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
}
