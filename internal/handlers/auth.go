package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/httpx"
	"github.com/ozgurkara/bordrohub/internal/models"
	"github.com/ozgurkara/bordrohub/internal/validation"
)

type AuthHandler struct {
	DB      *gorm.DB
	Tokens  *auth.Manager
	Lockout *auth.Lockout
}

func NewAuthHandler(db *gorm.DB, tokens *auth.Manager, lockout *auth.Lockout) *AuthHandler {
	return &AuthHandler{DB: db, Tokens: tokens, Lockout: lockout}
}

// refreshHash is what we persist instead of the raw refresh token.
func refreshHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	auth.TokenPair
	User *models.User `json:"user"`
}

// Login checks credentials and hands out a token pair. Repeated failures
// lock the account for a while.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	v := validation.Violations{}
	validation.Required("email", req.Email, v)
	validation.Required("password", req.Password, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if h.Lockout != nil && h.Lockout.Locked(r.Context(), req.Email) {
		httpx.JSONError(w, http.StatusTooManyRequests, "account_locked", nil)
		return
	}

	var user models.User
	err := h.DB.Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !user.IsActive) {
		h.loginFailed(w, r, req.Email)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "login_failed", nil)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.loginFailed(w, r, req.Email)
		return
	}

	pair, err := h.Tokens.IssuePair(auth.Identity{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Email:     user.Email,
		Role:      string(user.Role),
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "login_failed", nil)
		return
	}

	now := time.Now()
	h.DB.Model(&user).Updates(map[string]any{
		"refresh_token": refreshHash(pair.RefreshToken),
		"last_login":    now,
	})
	if h.Lockout != nil {
		h.Lockout.Reset(r.Context(), req.Email)
	}
	uid := user.ID
	h.DB.Create(&models.AuditLog{
		CompanyID: user.CompanyID,
		UserID:    &uid,
		Action:    models.AuditLogin,
		IPAddress: clientIP(r),
	})

	httpx.JSON(w, http.StatusOK, loginResponse{TokenPair: pair, User: &user})
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, email string) {
	locked := false
	if h.Lockout != nil {
		locked = h.Lockout.Fail(r.Context(), email)
	}
	h.DB.Create(&models.AuditLog{
		Action:    models.AuditLoginFailed,
		Detail:    email,
		IPAddress: clientIP(r),
	})
	if locked {
		httpx.JSONError(w, http.StatusTooManyRequests, "account_locked", nil)
		return
	}
	httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a valid refresh token for a new pair. The stored
// token hash rotates, so the old refresh token dies here.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.Decode(r, &req); err != nil || req.RefreshToken == "" {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	id, err := h.Tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_token", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id.UserID).Error; err != nil || !user.IsActive {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_token", nil)
		return
	}
	if user.RefreshToken == "" || user.RefreshToken != refreshHash(req.RefreshToken) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_token", nil)
		return
	}
	pair, err := h.Tokens.IssuePair(auth.Identity{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Email:     user.Email,
		Role:      string(user.Role),
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "refresh_failed", nil)
		return
	}
	h.DB.Model(&user).Update("refresh_token", refreshHash(pair.RefreshToken))
	httpx.JSON(w, http.StatusOK, pair)
}

// Logout invalidates the caller's refresh token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	h.DB.Model(&models.User{}).Where("id = ?", id.UserID).Update("refresh_token", "")
	audit(h.DB, id, r, models.AuditLogout, "")
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var user models.User
	if err := h.DB.First(&user, id.UserID).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, &user)
}
