package auth

import (
	"sync"
	"time"
)

var (
	loginWindow      = 15 * time.Minute
	lockDuration     = 10 * time.Minute
	maxLoginAttempts = 5
)

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// RateLimiter はIPごとのログイン試行回数を追跡します。
type RateLimiter struct {
	lock     sync.Mutex
	attempts map[string]*attemptState
}

// NewRateLimiter は RateLimiter を作成します。
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{attempts: make(map[string]*attemptState)}
}

// CheckLock はロック中なら残り時間を、そうでなければ 0 を返します。
func (r *RateLimiter) CheckLock(ip string) time.Duration {
	r.lock.Lock()
	defer r.lock.Unlock()

	state, ok := r.attempts[ip]
	if !ok {
		return 0
	}
	now := time.Now()
	if now.After(state.lockedUntil) {
		return 0
	}
	return time.Until(state.lockedUntil)
}

// RecordFailure は失敗を記録し、残り試行回数を返します。
// 試行回数が上限に達すると一定時間ロックされます。
func (r *RateLimiter) RecordFailure(ip string) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	now := time.Now()
	state, ok := r.attempts[ip]
	if !ok || now.Sub(state.firstAttempt) > loginWindow {
		state = &attemptState{firstAttempt: now}
		r.attempts[ip] = state
	}

	state.count++
	if state.count >= maxLoginAttempts {
		state.lockedUntil = now.Add(lockDuration)
		state.count = maxLoginAttempts
	}

	remaining := maxLoginAttempts - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Reset は成功時に試行履歴を消去します。
func (r *RateLimiter) Reset(ip string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.attempts, ip)
}
