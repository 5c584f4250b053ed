package session

import (
	"crypto/sha256"
	"fmt"

	"github.com/gorilla/securecookie"
)

const sealName = "session"

// Sealer は保存前のセッション内容を暗号化・署名します。
// データベースが漏れてもセッション内容を読めないようにするためのものです。
type Sealer struct {
	codec *securecookie.SecureCookie
}

// NewSealer は secret から鍵を導出して Sealer を作成します。
func NewSealer(secret string) *Sealer {
	hashKey := sha256.Sum256([]byte("hash:" + secret))
	blockKey := sha256.Sum256([]byte("block:" + secret))

	codec := securecookie.New(hashKey[:], blockKey[:])
	// 有効期限は Record.ExpiresAt で管理する
	codec.MaxAge(0)
	codec.MaxLength(0)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Sealer{codec: codec}
}

// Seal は Record を暗号化した文字列にします。
func (s *Sealer) Seal(record *Record) (string, error) {
	sealed, err := s.codec.Encode(sealName, record)
	if err != nil {
		return "", fmt.Errorf("seal session: %w", err)
	}
	return sealed, nil
}

// Open は Seal した文字列を Record に戻します。
func (s *Sealer) Open(sealed string) (*Record, error) {
	var record Record
	if err := s.codec.Decode(sealName, sealed, &record); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &record, nil
}
