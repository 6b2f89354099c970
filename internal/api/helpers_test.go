package api

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"vidtube/internal/auth"
	"vidtube/internal/db"
	"vidtube/internal/media"
	"vidtube/internal/models"
)

const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
	testBaseURL       = "http://localhost:8080"
)

type testEnv struct {
	database       *db.DB
	users          *db.UserRepository
	subscriptions  *db.SubscriptionRepository
	jwtService     *auth.JWTService
	tokenService   *auth.TokenService
	mediaService   *media.Service
	authHandler    *AuthHandler
	userHandler    *UserHandler
	channelHandler *ChannelHandler
	authMiddleware *AuthMiddleware
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	mediaService, err := media.NewService(t.TempDir(), 1<<20, 5*time.Second)
	if err != nil {
		t.Fatalf("media.NewService() error = %v", err)
	}

	users := db.NewUserRepository(database)
	subscriptions := db.NewSubscriptionRepository(database)
	jwtService := auth.NewJWTService(testAccessSecret, testRefreshSecret, 15*time.Minute, 24*time.Hour)
	tokenService := auth.NewTokenService(jwtService, users)

	return &testEnv{
		database:       database,
		users:          users,
		subscriptions:  subscriptions,
		jwtService:     jwtService,
		tokenService:   tokenService,
		mediaService:   mediaService,
		authHandler:    NewAuthHandler(users, tokenService, mediaService, testBaseURL),
		userHandler:    NewUserHandler(users, mediaService, testBaseURL),
		channelHandler: NewChannelHandler(users, subscriptions),
		authMiddleware: NewAuthMiddleware(jwtService, users),
	}
}

func (env *testEnv) createUser(t *testing.T, username, email, password string) *models.User {
	t.Helper()

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("auth.HashPassword() error = %v", err)
	}

	user, err := env.users.Create(context.Background(), db.CreateUserParams{
		Username:     username,
		Email:        email,
		FullName:     "Test User",
		PasswordHash: passwordHash,
		AvatarURL:    testBaseURL + "/media/avatar/aa/" + username,
	})
	if err != nil {
		t.Fatalf("users.Create() error = %v", err)
	}
	return user
}

func withIdentity(r *http.Request, user *models.User) *http.Request {
	identity := *user
	identity.PasswordHash = ""
	identity.RefreshTokenHash = nil
	return r.WithContext(context.WithValue(r.Context(), identityKey, &identity))
}

func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})

	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

type registerForm struct {
	fields     map[string]string
	avatar     []byte
	coverImage []byte
}

func buildRegisterBody(t *testing.T, form registerForm) (io.Reader, string) {
	t.Helper()

	body := bytes.NewBuffer(nil)
	writer := multipart.NewWriter(body)

	for name, value := range form.fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("WriteField(%q) error = %v", name, err)
		}
	}
	if form.avatar != nil {
		part, err := writer.CreateFormFile("avatar", "avatar.png")
		if err != nil {
			t.Fatalf("CreateFormFile(avatar) error = %v", err)
		}
		if _, err := part.Write(form.avatar); err != nil {
			t.Fatalf("writing avatar part: %v", err)
		}
	}
	if form.coverImage != nil {
		part, err := writer.CreateFormFile("coverImage", "cover.png")
		if err != nil {
			t.Fatalf("CreateFormFile(coverImage) error = %v", err)
		}
		if _, err := part.Write(form.coverImage); err != nil {
			t.Fatalf("writing cover image part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	return body, writer.FormDataContentType()
}

func defaultRegisterFields() map[string]string {
	return map[string]string{
		"fullName": "Alice Cooper",
		"email":    "alice@example.com",
		"password": "s3cret-pass",
		"username": "Alice",
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
