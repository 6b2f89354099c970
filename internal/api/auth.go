package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"vidtube/internal/auth"
	"vidtube/internal/db"
	"vidtube/internal/media"
	"vidtube/internal/mediaurl"
)

type AuthHandler struct {
	users        *db.UserRepository
	tokenService *auth.TokenService
	mediaService *media.Service
	baseURL      string
}

func NewAuthHandler(
	users *db.UserRepository,
	tokenService *auth.TokenService,
	mediaService *media.Service,
	baseURL string,
) *AuthHandler {
	return &AuthHandler{
		users:        users,
		tokenService: tokenService,
		mediaService: mediaService,
		baseURL:      baseURL,
	}
}

// POST /api/v1/auth/register (multipart/form-data)
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseMultipartUpload(w, r, 2*h.mediaService.MaxUploadBytes()) {
		return
	}
	defer cleanupMultipart(r)

	fullName := sanitizeText(r.FormValue("fullName"))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := strings.TrimSpace(r.FormValue("password"))
	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))

	if fullName == "" || email == "" || password == "" || username == "" {
		badRequest(w, "all fields are required")
		return
	}
	if err := requestValidator.Var(email, "email,max=254"); err != nil {
		badRequest(w, "invalid email format")
		return
	}

	exists, err := h.users.ExistsByUsernameOrEmail(r.Context(), username, email)
	if err != nil {
		slog.Error("error checking existing user", "error", err)
		internalError(w)
		return
	}
	if exists {
		conflict(w, "username or email already exists")
		return
	}

	avatarFile, avatarHeader, err := optionalFormFile(r, "avatar")
	if err != nil {
		badRequest(w, "invalid avatar upload")
		return
	}
	if avatarFile == nil {
		badRequest(w, "avatar file is required")
		return
	}
	defer avatarFile.Close()

	avatarStored, err := h.mediaService.Save(r.Context(), media.KindAvatar, avatarHeader.Filename, avatarFile)
	if !handleMediaSaveError(w, err) {
		return
	}

	var coverImageURL *string
	coverFile, coverHeader, err := optionalFormFile(r, "coverImage")
	if err != nil {
		badRequest(w, "invalid cover image upload")
		return
	}
	if coverFile != nil {
		defer coverFile.Close()

		coverStored, err := h.mediaService.Save(r.Context(), media.KindCoverImage, coverHeader.Filename, coverFile)
		if !handleMediaSaveError(w, err) {
			return
		}
		url := mediaurl.Object(h.baseURL, coverStored.StoragePath)
		coverImageURL = &url
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("error hashing password", "error", err)
		internalError(w)
		return
	}

	user, err := h.users.Create(r.Context(), db.CreateUserParams{
		Username:      username,
		Email:         email,
		FullName:      fullName,
		PasswordHash:  passwordHash,
		AvatarURL:     mediaurl.Object(h.baseURL, avatarStored.StoragePath),
		CoverImageURL: coverImageURL,
	})
	if errors.Is(err, db.ErrDuplicate) {
		conflict(w, "username or email already exists")
		return
	}
	if err != nil {
		slog.Error("error creating user", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, user, "user registered successfully")
}

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User         any    `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" && email == "" {
		badRequest(w, "username or email is required")
		return
	}

	user, err := h.users.FindByUsernameOrEmail(r.Context(), username, email)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "user does not exist")
		return
	}
	if err != nil {
		slog.Error("error finding user", "error", err)
		internalError(w)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		unauthorized(w, "invalid user credentials")
		return
	}

	pair, err := h.tokenService.IssueTokenPair(r.Context(), user.ID)
	if err != nil {
		slog.Error("error issuing token pair", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	identity, err := h.users.FindIdentityByID(r.Context(), user.ID)
	if err != nil {
		slog.Error("error reloading user after login", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, LoginResponse{
		User:         identity,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "user logged in successfully")
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// POST /api/v1/auth/refresh
//
// The refresh token comes from the refreshToken cookie, or from the request
// body for non-browser clients.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie("refreshToken"); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req RefreshRequest
		if err := decodeAndValidate(r.Body, &req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		unauthorized(w, "refresh token is required")
		return
	}

	pair, err := h.tokenService.RotateRefreshToken(r.Context(), presented)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) || errors.Is(err, auth.ErrRefreshTokenUsed) {
			unauthorized(w, err.Error())
			return
		}
		slog.Error("error rotating refresh token", "error", err)
		internalError(w)
		return
	}

	setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, pair, "access token refreshed")
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := CurrentUser(r)
	if identity == nil {
		unauthorized(w, "not authorized")
		return
	}

	if err := h.users.ClearRefreshToken(r.Context(), identity.ID); err != nil && !errors.Is(err, db.ErrNotFound) {
		slog.Error("error clearing refresh token", "error", err, "user_id", identity.ID)
		internalError(w)
		return
	}

	clearAuthCookies(w)
	writeJSON(w, http.StatusOK, nil, "user logged out")
}

func setAuthCookies(w http.ResponseWriter, pair *auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    pair.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{"accessToken", "refreshToken"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
