package mediaurl

import "testing"

func TestObject(t *testing.T) {
	tests := []struct {
		name        string
		baseURL     string
		storagePath string
		want        string
	}{
		{"with base url", "http://localhost:8080", "avatar/aa/abc", "http://localhost:8080/media/avatar/aa/abc"},
		{"trailing slash trimmed", "http://localhost:8080/", "avatar/aa/abc", "http://localhost:8080/media/avatar/aa/abc"},
		{"empty base url", "", "avatar/aa/abc", "/media/avatar/aa/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Object(tt.baseURL, tt.storagePath); got != tt.want {
				t.Fatalf("Object() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseStoragePath(t *testing.T) {
	path, ok := ParseStoragePath("http://localhost:8080/media/avatar/aa/abc")
	if !ok || path != "avatar/aa/abc" {
		t.Fatalf("ParseStoragePath() = %q, %v, want avatar/aa/abc, true", path, ok)
	}

	if _, ok := ParseStoragePath("http://cdn.example.com/images/abc"); ok {
		t.Fatal("ParseStoragePath() accepted a non-media URL")
	}
	if _, ok := ParseStoragePath("/media/../etc/passwd"); ok {
		t.Fatal("ParseStoragePath() accepted a traversal path")
	}
	if _, ok := ParseStoragePath(""); ok {
		t.Fatal("ParseStoragePath() accepted an empty string")
	}
}
