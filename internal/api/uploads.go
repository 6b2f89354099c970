package api

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"vidtube/internal/media"
)

// parseMultipartUpload bounds the request body and parses the multipart form.
// Reports its own error responses; callers bail out on false.
func parseMultipartUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) bool {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	}

	if err := r.ParseMultipartForm(1 << 20); err != nil {
		if isBodyTooLargeError(err) {
			payloadTooLarge(w, "file exceeds maximum upload size")
		} else {
			badRequest(w, "invalid multipart upload")
		}
		return false
	}

	return true
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// optionalFormFile returns (nil, nil, nil) when the field is absent, which is
// distinct from a malformed upload.
func optionalFormFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if header == nil || strings.TrimSpace(header.Filename) == "" {
		file.Close()
		return nil, nil, nil
	}
	return file, header, nil
}

func handleMediaSaveError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}

	if errors.Is(err, media.ErrFileTooLarge) {
		payloadTooLarge(w, "file exceeds maximum upload size")
		return false
	}
	if errors.Is(err, media.ErrDisallowedType) {
		badRequest(w, "unsupported file type")
		return false
	}
	if errors.Is(err, media.ErrExecutableFile) {
		badRequest(w, "executable files are not allowed")
		return false
	}

	slog.Error("error saving media", "error", err)
	internalError(w)
	return false
}

func isBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "request body too large")
}
