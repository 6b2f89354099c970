package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"vidtube/internal/auth"
	"vidtube/internal/db"
	"vidtube/internal/media"
	"vidtube/internal/mediaurl"
)

type UserHandler struct {
	users        *db.UserRepository
	mediaService *media.Service
	baseURL      string
}

func NewUserHandler(users *db.UserRepository, mediaService *media.Service, baseURL string) *UserHandler {
	return &UserHandler{users: users, mediaService: mediaService, baseURL: baseURL}
}

// GET /api/v1/users/me
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	identity := CurrentUser(r)
	if identity == nil {
		unauthorized(w, "not authorized")
		return
	}

	writeJSON(w, http.StatusOK, identity, "current user fetched successfully")
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// POST /api/v1/users/change-password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := CurrentUser(r)
	if identity == nil {
		unauthorized(w, "not authorized")
		return
	}

	var req ChangePasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	// The identity projection carries no password hash; reload the full row.
	user, err := h.users.FindByID(r.Context(), identity.ID)
	if errors.Is(err, db.ErrNotFound) {
		badRequest(w, "user not found")
		return
	}
	if err != nil {
		slog.Error("error loading user", "error", err, "user_id", identity.ID)
		internalError(w)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.OldPassword) {
		badRequest(w, "invalid old password")
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		slog.Error("error hashing password", "error", err)
		internalError(w)
		return
	}

	if err := h.users.UpdatePassword(r.Context(), user.ID, passwordHash); err != nil {
		slog.Error("error updating password", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, nil, "password changed successfully")
}

type UpdateAccountRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

// PATCH /api/v1/users/me
func (h *UserHandler) UpdateAccountDetails(w http.ResponseWriter, r *http.Request) {
	identity := CurrentUser(r)
	if identity == nil {
		unauthorized(w, "not authorized")
		return
	}

	var req UpdateAccountRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if req.FullName == nil && req.Email == nil {
		badRequest(w, "fullName or email is required")
		return
	}

	params := db.UpdateDetailsParams{}
	if req.FullName != nil {
		fullName := sanitizeText(*req.FullName)
		if fullName == "" {
			badRequest(w, "fullName must not be blank")
			return
		}
		params.FullName = &fullName
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := requestValidator.Var(email, "email,max=254"); err != nil {
			badRequest(w, "invalid email format")
			return
		}
		params.Email = &email
	}

	err := h.users.UpdateDetails(r.Context(), identity.ID, params)
	if errors.Is(err, db.ErrDuplicate) {
		conflict(w, "email already in use")
		return
	}
	if errors.Is(err, db.ErrNotFound) {
		badRequest(w, "user not found")
		return
	}
	if err != nil {
		slog.Error("error updating account details", "error", err, "user_id", identity.ID)
		internalError(w)
		return
	}

	user, err := h.users.FindIdentityByID(r.Context(), identity.ID)
	if err != nil {
		slog.Error("error reloading user", "error", err, "user_id", identity.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, user, "account details updated successfully")
}

// POST /api/v1/users/me/avatar
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", media.KindAvatar, h.users.UpdateAvatarURL)
}

// POST /api/v1/users/me/cover-image
func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", media.KindCoverImage, h.users.UpdateCoverImageURL)
}

// updateImage is the shared flow for avatar and cover image replacement.
// The previous remote image is left in place; nothing references it anymore
// but it is not deleted.
func (h *UserHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	kind media.Kind,
	persist func(ctx context.Context, id, url string) error,
) {
	identity := CurrentUser(r)
	if identity == nil {
		unauthorized(w, "not authorized")
		return
	}

	if !parseMultipartUpload(w, r, h.mediaService.MaxUploadBytes()) {
		return
	}
	defer cleanupMultipart(r)

	file, header, err := optionalFormFile(r, field)
	if err != nil {
		badRequest(w, "invalid file upload")
		return
	}
	if file == nil {
		badRequest(w, field+" file is required")
		return
	}
	defer file.Close()

	stored, err := h.mediaService.Save(r.Context(), kind, header.Filename, file)
	if !handleMediaSaveError(w, err) {
		return
	}

	url := mediaurl.Object(h.baseURL, stored.StoragePath)
	if err := persist(r.Context(), identity.ID, url); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			badRequest(w, "user not found")
			return
		}
		slog.Error("error updating image url", "error", err, "user_id", identity.ID)
		internalError(w)
		return
	}

	user, err := h.users.FindIdentityByID(r.Context(), identity.ID)
	if err != nil {
		slog.Error("error reloading user", "error", err, "user_id", identity.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, user, field+" updated successfully")
}
