package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/models"
)

func testAuthHandler(t *testing.T) (*AuthHandler, *models.User) {
	t.Helper()
	db := setupTestDB(t)
	company := seedCompany(t, db)
	user := seedUser(t, db, company.ID, models.RoleAdmin)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens := auth.NewManager("test-secret", 15*time.Minute, 24*time.Hour)
	lockout := auth.NewLockout(rdb, 3, 15*time.Minute)
	return NewAuthHandler(db, tokens, lockout), user
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func putJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLoginSuccess(t *testing.T) {
	h, user := testAuthHandler(t)

	w := httptest.NewRecorder()
	h.Login(w, postJSON("/api/v1/auth/login", `{"email":"admin@example.com","password":"parola123"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken  string       `json:"access_token"`
		RefreshToken string       `json:"refresh_token"`
		User         *models.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("token pair missing")
	}
	if resp.User == nil || resp.User.ID != user.ID {
		t.Fatalf("user = %+v", resp.User)
	}

	// refresh token hash stored, last login stamped
	var stored models.User
	h.DB.First(&stored, user.ID)
	if stored.RefreshToken == "" || stored.RefreshToken == resp.RefreshToken {
		t.Fatal("refresh token must be stored hashed")
	}
	if stored.LastLogin == nil {
		t.Fatal("last_login not stamped")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, _ := testAuthHandler(t)
	w := httptest.NewRecorder()
	h.Login(w, postJSON("/api/v1/auth/login", `{"email":"admin@example.com","password":"yanlış"}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", w.Code)
	}
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	h, _ := testAuthHandler(t)
	body := `{"email":"admin@example.com","password":"yanlış"}`
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		h.Login(last, postJSON("/api/v1/auth/login", body))
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third failure code = %d", last.Code)
	}
	// correct password also refused while locked
	w := httptest.NewRecorder()
	h.Login(w, postJSON("/api/v1/auth/login", `{"email":"admin@example.com","password":"parola123"}`))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("locked login code = %d", w.Code)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	h, user := testAuthHandler(t)
	h.DB.Model(user).Update("is_active", false)
	w := httptest.NewRecorder()
	h.Login(w, postJSON("/api/v1/auth/login", `{"email":"admin@example.com","password":"parola123"}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", w.Code)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	h, _ := testAuthHandler(t)
	w := httptest.NewRecorder()
	h.Login(w, postJSON("/api/v1/auth/login", `{"email":"admin@example.com","password":"parola123"}`))
	var first struct {
		RefreshToken string `json:"refresh_token"`
	}
	json.Unmarshal(w.Body.Bytes(), &first)

	w2 := httptest.NewRecorder()
	h.Refresh(w2, postJSON("/api/v1/auth/refresh", `{"refresh_token":"`+first.RefreshToken+`"}`))
	if w2.Code != http.StatusOK {
		t.Fatalf("refresh code = %d body=%s", w2.Code, w2.Body.String())
	}

	// the old refresh token is spent
	w3 := httptest.NewRecorder()
	h.Refresh(w3, postJSON("/api/v1/auth/refresh", `{"refresh_token":"`+first.RefreshToken+`"}`))
	if w3.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh code = %d", w3.Code)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	h, _ := testAuthHandler(t)
	w := httptest.NewRecorder()
	h.Refresh(w, postJSON("/api/v1/auth/refresh", `{"refresh_token":"not-a-token"}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", w.Code)
	}
}

func TestLogoutClearsRefreshToken(t *testing.T) {
	h, user := testAuthHandler(t)
	h.DB.Model(user).Update("refresh_token", "somehash")

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil), user)
	w := httptest.NewRecorder()
	h.Logout(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var stored models.User
	h.DB.First(&stored, user.ID)
	if stored.RefreshToken != "" {
		t.Fatal("refresh token not cleared")
	}
}

func TestMe(t *testing.T) {
	h, user := testAuthHandler(t)
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), user)
	w := httptest.NewRecorder()
	h.Me(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), user.Email) {
		t.Fatalf("body = %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatal("password material leaked")
	}
}
