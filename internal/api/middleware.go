package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"vidtube/internal/auth"
	"vidtube/internal/db"
	"vidtube/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// AuthMiddleware authenticates requests from the accessToken cookie or the
// Authorization bearer header and attaches the resolved identity to the
// request context. Every failure in this path is reported as 401.
type AuthMiddleware struct {
	jwtService *auth.JWTService
	users      *db.UserRepository
}

func NewAuthMiddleware(jwtService *auth.JWTService, users *db.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService, users: users}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractAccessToken(r)
		if token == "" {
			unauthorized(w, "not authorized")
			return
		}

		claims, err := m.jwtService.VerifyAccessToken(token)
		if err != nil {
			unauthorized(w, err.Error())
			return
		}

		// Projection excludes password and refresh token material.
		user, err := m.users.FindIdentityByID(r.Context(), claims.UserID)
		if errors.Is(err, db.ErrNotFound) {
			unauthorized(w, "invalid access token")
			return
		}
		if err != nil {
			slog.Error("error loading authenticated user", "error", err)
			unauthorized(w, "not authorized")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CurrentUser returns the identity attached by RequireAuth, or nil.
func CurrentUser(r *http.Request) *models.User {
	if v := r.Context().Value(identityKey); v != nil {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
