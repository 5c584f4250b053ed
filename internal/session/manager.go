package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// Manager はセッションの作成・参照・破棄を行います。
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// Option は Manager の設定を変更します。
type Option func(*Manager)

// WithTTL はセッションの有効期間を変更します。
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock は現在時刻の取得方法を差し替えます（テスト用）。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager は Manager を作成します。
func NewManager(store Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	m := &Manager{
		store: store,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL はセッションの有効期間を返します。
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create は認証済みセッションを作成して保存します。
// 呼び出し側は資格情報の確認を済ませている必要があります。
func (m *Manager) Create(ctx context.Context, username, name string) (*Record, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	record := &Record{
		ID:            id,
		Authenticated: true,
		Username:      username,
		Name:          name,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Lookup はセッションを返します。存在しない・期限切れの場合は nil を返します。
func (m *Manager) Lookup(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}
	record, err := m.store.Load(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	if record.Expired(m.now()) {
		if err := m.store.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return record, nil
}

// IsAuthenticated はセッションが有効で authenticated フラグが立っているかを返します。
func (m *Manager) IsAuthenticated(ctx context.Context, id string) (bool, error) {
	record, err := m.Lookup(ctx, id)
	if err != nil {
		return false, err
	}
	return record != nil && record.Authenticated, nil
}

// Destroy はセッションを削除します。既に存在しなくてもエラーにしません。
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}

func generateID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
