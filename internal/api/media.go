package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"vidtube/internal/media"
)

type MediaHandler struct {
	mediaService *media.Service
}

func NewMediaHandler(mediaService *media.Service) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// GET /media/*
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	storagePath := chi.URLParam(r, "*")
	if storagePath == "" {
		notFound(w, "media not found")
		return
	}

	f, err := h.mediaService.Open(storagePath)
	if errors.Is(err, media.ErrInvalidPath) || errors.Is(err, os.ErrNotExist) {
		notFound(w, "media not found")
		return
	}
	if err != nil {
		slog.Error("error opening media file", "error", err, "path", storagePath)
		internalError(w)
		return
	}
	defer f.Close()

	modTime := time.Time{}
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}

	http.ServeContent(w, r, filepath.Base(storagePath), modTime, f)
}
