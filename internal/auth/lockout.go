package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lockout counts failed logins per account in Redis and blocks further
// attempts once the limit is reached, until the window expires.
type Lockout struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

func NewLockout(rdb *redis.Client, max int, window time.Duration) *Lockout {
	return &Lockout{rdb: rdb, max: max, window: window}
}

func lockoutKey(email string) string {
	return "login_attempts:" + strings.ToLower(strings.TrimSpace(email))
}

// Locked reports whether the account is currently blocked. Redis being
// down fails open; a broken cache must not lock everyone out.
func (l *Lockout) Locked(ctx context.Context, email string) bool {
	n, err := l.rdb.Get(ctx, lockoutKey(email)).Int()
	if err != nil {
		return false
	}
	return n >= l.max
}

// Fail records a failed attempt and reports whether the account is now
// blocked. The window restarts on the first failure only; a counter that
// somehow lost its TTL gets a fresh one so the lock cannot become
// permanent.
func (l *Lockout) Fail(ctx context.Context, email string) bool {
	key := lockoutKey(email)
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false
	}
	if n == 1 {
		l.rdb.Expire(ctx, key, l.window)
	} else if ttl, err := l.rdb.TTL(ctx, key).Result(); err == nil && ttl < 0 {
		l.rdb.Expire(ctx, key, l.window)
	}
	return int(n) >= l.max
}

// Reset clears the counter after a successful login.
func (l *Lockout) Reset(ctx context.Context, email string) {
	l.rdb.Del(ctx, lockoutKey(email))
}
