package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "sess:"
)

// RedisStore はセッションを Redis に保存します。
// キーの有効期限は残り寿命に合わせるため、保存し直しても延長されません。
type RedisStore struct {
	rdb    *redis.Client
	sealer *Sealer
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client, sealer *Sealer) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		sealer: sealer,
	}
}

// Save はセッションを保存します（存在する場合は上書き）。
func (s *RedisStore) Save(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, record.ID)
	}

	payload, err := s.sealer.Seal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(record.ID), payload, ttl).Err()
}

// Load はセッションを取得します。
func (s *RedisStore) Load(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}
	payload, err := s.rdb.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return s.sealer.Open(payload)
}

// Delete はセッションを削除します。存在しなくてもエラーにしません。
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
