package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const identityCtxKey = ctxKey("identity")

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongType    = errors.New("wrong token type")
)

// Identity is what a verified token says about the caller.
type Identity struct {
	UserID    uint
	CompanyID uint
	Email     string
	Role      string
}

// Claims is the JWT payload for both access and refresh tokens.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	CompanyID uint   `json:"company_id,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Manager issues and verifies token pairs.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Optional callback to confirm the user behind a token still exists
	// and is active. Set during app bootstrap.
	verifier func(ctx context.Context, uid uint) bool
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// SetUserVerifier configures the per-request existence check.
func (m *Manager) SetUserVerifier(v func(ctx context.Context, uid uint) bool) { m.verifier = v }

// IssuePair creates an access + refresh token pair for the identity.
func (m *Manager) IssuePair(id Identity) (TokenPair, error) {
	access, err := m.issue(id, tokenTypeAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.issue(id, tokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (m *Manager) issue(id Identity, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:     id.Email,
		Role:      id.Role,
		CompanyID: id.CompanyID,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// VerifyAccess validates an access token and returns the caller identity.
func (m *Manager) VerifyAccess(token string) (Identity, error) {
	return m.verify(token, tokenTypeAccess)
}

// VerifyRefresh validates a refresh token.
func (m *Manager) VerifyRefresh(token string) (Identity, error) {
	return m.verify(token, tokenTypeRefresh)
}

func (m *Manager) verify(token, typ string) (Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.TokenType != typ {
		return Identity{}, ErrWrongType
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return Identity{
		UserID:    uint(uid),
		CompanyID: claims.CompanyID,
		Email:     claims.Email,
		Role:      claims.Role,
	}, nil
}

// WithIdentity stores the identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// IdentityFromContext extracts the caller identity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(Identity)
	return id, ok
}

// Middleware attaches the identity to the request context when a valid
// bearer access token is present. It never rejects on its own.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if id, err := m.VerifyAccess(token); err == nil {
				if m.verifier == nil || m.verifier(r.Context(), id.UserID) {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
