package mediaurl

import (
	"net/url"
	"strings"
)

const PathPrefix = "/media/"

// Object renders the public URL for a stored media object path.
func Object(baseURL, storagePath string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return PathPrefix + storagePath
	}
	return baseURL + PathPrefix + storagePath
}

// ParseStoragePath extracts the storage path from a media URL produced by
// Object. Returns false for URLs that do not point at local media.
func ParseStoragePath(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	path := u.Path
	if path == "" {
		path = raw
	}

	if !strings.HasPrefix(path, PathPrefix) {
		return "", false
	}

	storagePath := strings.TrimPrefix(path, PathPrefix)
	if storagePath == "" || strings.Contains(storagePath, "..") {
		return "", false
	}

	return storagePath, true
}
