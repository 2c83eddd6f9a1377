// Package auth は認証・認可機能を提供します。
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrHashing はハッシュ処理内部の失敗を表します。
// パスワード不一致は通常の false であり、このエラーにはなりません。
var ErrHashing = errors.New("password hashing failed")

// bcrypt が処理できるのは先頭72バイトまで。[8,128] 文字の範囲を全て
// 受け付けるため、Node 版 bcrypt と同じく超過分は切り詰めて扱う。
const maxPasswordBytes = 72

// Hasher は bcrypt によるパスワードハッシュ化と検証を行います。
type Hasher struct {
	cost int
}

// NewHasher は指定のワークファクターで Hasher を作成します。
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash は平文からソルト付きハッシュを生成します。ソルトは呼び出しごとに
// bcrypt が新しく採番するため、同じ平文でも毎回異なるハッシュになります。
func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return string(hash), nil
}

// Verify は平文と保存済みハッシュを比較します。
// 比較は bcrypt 内部で一定時間相当になるよう処理されます。
// 不一致は (false, nil)、ハッシュ不正などの内部失敗のみ ErrHashing を返します。
func (h *Hasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrHashing, err)
}

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
