package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost はパスワードハッシュの既定コストです。
const DefaultBcryptCost = 12

// Hasher はパスワードのハッシュ化と照合を行います。
type Hasher struct {
	cost int
}

// NewHasher は Hasher を作成します。範囲外のコストは既定値に置き換えます。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Hash はソルト付きの bcrypt ハッシュを返します。
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify はパスワードがハッシュと一致するかを返します。壊れたハッシュは不一致として扱います。
func (h *Hasher) Verify(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
