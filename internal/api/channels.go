package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vidtube/internal/db"
	"vidtube/internal/models"
)

type ChannelHandler struct {
	users         *db.UserRepository
	subscriptions *db.SubscriptionRepository
}

func NewChannelHandler(users *db.UserRepository, subscriptions *db.SubscriptionRepository) *ChannelHandler {
	return &ChannelHandler{users: users, subscriptions: subscriptions}
}

// GET /api/v1/channels/{username}
//
// Aggregates the channel's subscriber count, how many channels the channel
// owner follows, and whether the requesting identity is among the
// subscribers.
func (h *ChannelHandler) GetChannelProfile(w http.ResponseWriter, r *http.Request) {
	identity := CurrentUser(r)
	if identity == nil {
		unauthorized(w, "not authorized")
		return
	}

	username := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "username")))
	if username == "" {
		badRequest(w, "username is required")
		return
	}

	channel, err := h.users.FindByUsername(r.Context(), username)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "channel does not exist")
		return
	}
	if err != nil {
		slog.Error("error finding channel", "error", err)
		internalError(w)
		return
	}

	subscriberCount, err := h.subscriptions.CountSubscribers(r.Context(), channel.ID)
	if err != nil {
		slog.Error("error counting subscribers", "error", err, "channel_id", channel.ID)
		internalError(w)
		return
	}

	subscribedToCount, err := h.subscriptions.CountSubscribedTo(r.Context(), channel.ID)
	if err != nil {
		slog.Error("error counting subscribed-to channels", "error", err, "channel_id", channel.ID)
		internalError(w)
		return
	}

	isSubscribed, err := h.subscriptions.IsSubscribed(r.Context(), identity.ID, channel.ID)
	if err != nil {
		slog.Error("error checking subscription", "error", err, "channel_id", channel.ID)
		internalError(w)
		return
	}

	profile := models.ChannelProfile{
		ID:                channel.ID,
		Username:          channel.Username,
		FullName:          channel.FullName,
		Email:             channel.Email,
		AvatarURL:         channel.AvatarURL,
		CoverImageURL:     channel.CoverImageURL,
		SubscriberCount:   subscriberCount,
		SubscribedToCount: subscribedToCount,
		IsSubscribed:      isSubscribed,
	}

	writeJSON(w, http.StatusOK, profile, "channel profile fetched successfully")
}

// POST /api/v1/channels/{username}/subscribe
func (h *ChannelHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	identity := CurrentUser(r)
	if identity == nil {
		unauthorized(w, "not authorized")
		return
	}

	channel, ok := h.resolveChannel(w, r)
	if !ok {
		return
	}

	if channel.ID == identity.ID {
		badRequest(w, "cannot subscribe to your own channel")
		return
	}

	subscription, err := h.subscriptions.Create(r.Context(), identity.ID, channel.ID)
	if errors.Is(err, db.ErrDuplicate) {
		conflict(w, "already subscribed")
		return
	}
	if err != nil {
		slog.Error("error creating subscription", "error", err, "channel_id", channel.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, subscription, "subscribed successfully")
}

// DELETE /api/v1/channels/{username}/subscribe
func (h *ChannelHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	identity := CurrentUser(r)
	if identity == nil {
		unauthorized(w, "not authorized")
		return
	}

	channel, ok := h.resolveChannel(w, r)
	if !ok {
		return
	}

	err := h.subscriptions.Delete(r.Context(), identity.ID, channel.ID)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "not subscribed")
		return
	}
	if err != nil {
		slog.Error("error deleting subscription", "error", err, "channel_id", channel.ID)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, nil, "unsubscribed successfully")
}

func (h *ChannelHandler) resolveChannel(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	username := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "username")))
	if username == "" {
		badRequest(w, "username is required")
		return nil, false
	}

	channel, err := h.users.FindByUsername(r.Context(), username)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "channel does not exist")
		return nil, false
	}
	if err != nil {
		slog.Error("error finding channel", "error", err)
		internalError(w)
		return nil, false
	}

	return channel, true
}
