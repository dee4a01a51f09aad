package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testManager() *Manager {
	return NewManager("test-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestIssueAndVerifyPair(t *testing.T) {
	m := testManager()
	id := Identity{UserID: 7, CompanyID: 3, Email: "op@example.com", Role: "admin"}
	pair, err := m.IssuePair(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := m.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if got != id {
		t.Fatalf("identity mismatch: %+v", got)
	}
	if _, err := m.VerifyRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
}

func TestTokenTypeIsEnforced(t *testing.T) {
	m := testManager()
	pair, _ := m.IssuePair(Identity{UserID: 1, CompanyID: 1})
	if _, err := m.VerifyAccess(pair.RefreshToken); err == nil {
		t.Fatal("refresh token must not pass as access token")
	}
	if _, err := m.VerifyRefresh(pair.AccessToken); err == nil {
		t.Fatal("access token must not pass as refresh token")
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	other := NewManager("another-secret", time.Minute, time.Hour)
	pair, _ := other.IssuePair(Identity{UserID: 1, CompanyID: 1})
	if _, err := testManager().VerifyAccess(pair.AccessToken); err == nil {
		t.Fatal("token signed with another secret must fail")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := NewManager("test-secret", -time.Minute, -time.Minute)
	pair, _ := m.IssuePair(Identity{UserID: 1, CompanyID: 1})
	if _, err := m.VerifyAccess(pair.AccessToken); err == nil {
		t.Fatal("expired token must fail")
	}
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	m := testManager()
	pair, _ := m.IssuePair(Identity{UserID: 9, CompanyID: 2, Email: "x@example.com", Role: "user"})

	var seen Identity
	var ok bool
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || seen.UserID != 9 {
		t.Fatalf("identity not attached: ok=%v seen=%+v", ok, seen)
	}

	// no header: request passes through without identity
	ok = false
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if ok {
		t.Fatal("identity must not be attached without a token")
	}
}

func TestMiddlewareHonorsVerifier(t *testing.T) {
	m := testManager()
	m.SetUserVerifier(func(ctx context.Context, uid uint) bool { return false })
	pair, _ := m.IssuePair(Identity{UserID: 4, CompanyID: 1})

	var ok bool
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = IdentityFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if ok {
		t.Fatal("verifier rejecting the user must strip the identity")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("gizli-parola")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "gizli-parola") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "yanlış") {
		t.Fatal("wrong password accepted")
	}
}

func TestLockout(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewLockout(rdb, 3, time.Minute)
	ctx := context.Background()

	if l.Locked(ctx, "op@example.com") {
		t.Fatal("fresh account must not be locked")
	}
	l.Fail(ctx, "op@example.com")
	l.Fail(ctx, "op@example.com")
	if l.Locked(ctx, "op@example.com") {
		t.Fatal("two failures must not lock with max 3")
	}
	if locked := l.Fail(ctx, "op@example.com"); !locked {
		t.Fatal("third failure should lock")
	}
	if !l.Locked(ctx, "OP@example.com") {
		t.Fatal("lockout must be case-insensitive on the address")
	}

	l.Reset(ctx, "op@example.com")
	if l.Locked(ctx, "op@example.com") {
		t.Fatal("reset must clear the lock")
	}

	// counter expires with the window
	l.Fail(ctx, "op@example.com")
	mr.FastForward(2 * time.Minute)
	if l.Locked(ctx, "op@example.com") {
		t.Fatal("expired counter must not lock")
	}
}

func TestLockoutRearmsLostTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewLockout(rdb, 3, time.Minute)
	ctx := context.Background()

	// a counter that lost its TTL must not lock forever
	mr.Set("login_attempts:op@example.com", "1")
	l.Fail(ctx, "op@example.com")
	if ttl := mr.TTL("login_attempts:op@example.com"); ttl <= 0 {
		t.Fatalf("ttl not re-armed: %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if l.Locked(ctx, "op@example.com") {
		t.Fatal("counter must expire after the window")
	}
}
