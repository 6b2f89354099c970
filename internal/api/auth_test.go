package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vidtube/internal/models"
)

func TestRegisterSuccess(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := buildRegisterBody(t, registerForm{
		fields: defaultRegisterFields(),
		avatar: testPNG(t),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	env.authHandler.Register(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var resp struct {
		Data    models.User `json:"data"`
		Success bool        `json:"success"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body=%q", err, rr.Body.String())
	}
	if !resp.Success {
		t.Fatal("success = false, want true")
	}
	if resp.Data.Username != "alice" {
		t.Fatalf("username = %q, want lowercased %q", resp.Data.Username, "alice")
	}
	if resp.Data.AvatarURL == "" {
		t.Fatal("avatarUrl is empty")
	}

	raw := rr.Body.String()
	if strings.Contains(raw, "passwordHash") || strings.Contains(raw, "password_hash") {
		t.Fatalf("response leaks password hash: %q", raw)
	}
	if strings.Contains(raw, "refreshToken") {
		t.Fatalf("response leaks refresh token: %q", raw)
	}
}

func TestRegisterBlankFieldRejected(t *testing.T) {
	for _, field := range []string{"fullName", "email", "password", "username"} {
		t.Run(field, func(t *testing.T) {
			env := newTestEnv(t)

			fields := defaultRegisterFields()
			fields[field] = "   "
			body, contentType := buildRegisterBody(t, registerForm{fields: fields, avatar: testPNG(t)})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()

			env.authHandler.Register(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusBadRequest, rr.Body.String())
			}

			exists, err := env.users.ExistsByUsernameOrEmail(context.Background(), "alice", "alice@example.com")
			if err != nil {
				t.Fatalf("ExistsByUsernameOrEmail() error = %v", err)
			}
			if exists {
				t.Fatal("user record was created despite validation failure")
			}
		})
	}
}

func TestRegisterMissingAvatarRejected(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := buildRegisterBody(t, registerForm{fields: defaultRegisterFields()})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	env.authHandler.Register(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestRegisterDuplicateIdentityRejected(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "alice@example.com", "s3cret-pass")

	// Case-insensitive on username: "Alice" collides with "alice".
	body, contentType := buildRegisterBody(t, registerForm{
		fields: map[string]string{
			"fullName": "Other Alice",
			"email":    "different@example.com",
			"password": "s3cret-pass",
			"username": "Alice",
		},
		avatar: testPNG(t),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	env.authHandler.Register(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusConflict, rr.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if resp.Success {
		t.Fatal("success = true, want false")
	}
}

func TestLoginIssuesTokensAndPersistsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "alice@example.com", "s3cret-pass")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"alice","password":"s3cret-pass"}`))
	rr := httptest.NewRecorder()

	env.authHandler.Login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		Data LoginResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if resp.Data.AccessToken == "" || resp.Data.RefreshToken == "" {
		t.Fatal("login response is missing tokens")
	}

	cookies := rr.Result().Cookies()
	for _, name := range []string{"accessToken", "refreshToken"} {
		cookie := findCookie(cookies, name)
		if cookie == nil {
			t.Fatalf("cookie %q not set", name)
		}
		if !cookie.HttpOnly || !cookie.Secure {
			t.Fatalf("cookie %q must be httpOnly and secure", name)
		}
	}

	stored, err := env.users.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.RefreshTokenHash == nil {
		t.Fatal("refresh token was not persisted on login")
	}
}

func TestLoginOverwritesPreviousRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "alice@example.com", "s3cret-pass")

	login := func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"email":"alice@example.com","password":"s3cret-pass"}`))
		rr := httptest.NewRecorder()
		env.authHandler.Login(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
		}
	}

	login()
	first, err := env.users.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}

	login()
	second, err := env.users.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}

	if *first.RefreshTokenHash == *second.RefreshTokenHash {
		t.Fatal("second login did not overwrite the stored refresh token")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "alice@example.com", "s3cret-pass")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"alice","password":"wrong"}`))
	rr := httptest.NewRecorder()

	env.authHandler.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestLoginUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"ghost","password":"whatever"}`))
	rr := httptest.NewRecorder()

	env.authHandler.Login(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "alice@example.com", "s3cret-pass")

	pair, err := env.tokenService.IssueTokenPair(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("IssueTokenPair() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh",
		strings.NewReader(`{"refreshToken":"`+pair.RefreshToken+`"}`))
	rr := httptest.NewRecorder()

	env.authHandler.Refresh(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}

	// The rotated-out token is rejected on reuse.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh",
		strings.NewReader(`{"refreshToken":"`+pair.RefreshToken+`"}`))
	rr = httptest.NewRecorder()

	env.authHandler.Refresh(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("reuse status = %d, want %d, body=%q", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestRefreshFromCookie(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "alice@example.com", "s3cret-pass")

	pair, err := env.tokenService.IssueTokenPair(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("IssueTokenPair() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: pair.RefreshToken})
	rr := httptest.NewRecorder()

	env.authHandler.Refresh(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestRefreshWithoutToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()

	env.authHandler.Refresh(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestLogoutClearsRefreshTokenAndCookies(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "alice@example.com", "s3cret-pass")

	pair, err := env.tokenService.IssueTokenPair(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("IssueTokenPair() error = %v", err)
	}

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil), user)
	rr := httptest.NewRecorder()

	env.authHandler.Logout(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rr.Code, http.StatusOK, rr.Body.String())
	}

	for _, name := range []string{"accessToken", "refreshToken"} {
		cookie := findCookie(rr.Result().Cookies(), name)
		if cookie == nil {
			t.Fatalf("cookie %q not cleared", name)
		}
		if cookie.MaxAge >= 0 {
			t.Fatalf("cookie %q MaxAge = %d, want negative", name, cookie.MaxAge)
		}
	}

	stored, err := env.users.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.RefreshTokenHash != nil {
		t.Fatal("stored refresh token was not cleared on logout")
	}

	// The pre-logout refresh token can no longer be rotated.
	if _, err := env.tokenService.RotateRefreshToken(context.Background(), pair.RefreshToken); err == nil {
		t.Fatal("RotateRefreshToken() succeeded after logout")
	}
}
