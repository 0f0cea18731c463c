// internal/app/system/objectstore/objectstore.go
//
// Package objectstore stores uploaded ID documents on a waffle storage
// backend and returns the public URL the rest of the system records. S3 is
// used in production and a local directory served by the app in development.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
)

// Config selects and configures the backend.
type Config struct {
	Type string // "local" or "s3"

	LocalPath string
	LocalURL  string

	S3Region string
	S3Bucket string
	S3Prefix string
	// PublicBaseURL overrides the virtual-hosted bucket URL, e.g. a CDN.
	PublicBaseURL string
}

// New builds the configured backend. Any type other than "s3" is local.
func New(ctx context.Context, cfg Config) (storage.Store, error) {
	if cfg.Type == "s3" {
		s, err := storage.NewS3(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			Prefix:     cfg.S3Prefix,
			BaseURL:    strings.TrimRight(cfg.PublicBaseURL, "/"),
			DefaultACL: "public-read",
		})
		if err != nil {
			return nil, fmt.Errorf("s3 storage: %w", err)
		}
		return s, nil
	}
	l, err := storage.NewLocal(storage.LocalConfig{
		BasePath: cfg.LocalPath,
		BaseURL:  cfg.LocalURL,
	})
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	return l, nil
}

// ErrNoPublicURL is returned by Save when the backend cannot name a public
// URL for the stored object.
var ErrNoPublicURL = errors.New("storage backend has no public url")

// Save uploads body under key and returns the object's public URL.
func Save(ctx context.Context, store storage.Store, key string, body io.Reader, contentType string) (string, error) {
	if err := store.Put(ctx, key, body, &storage.PutOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	url := store.URL(key)
	if url == "" {
		return "", ErrNoPublicURL
	}
	return url, nil
}

// MaxUploadBytes bounds a single ID document upload.
const MaxUploadBytes = 10 << 20

// ErrUnsupportedType is returned by CheckDocument for disallowed files.
var ErrUnsupportedType = errors.New("only jpeg, jpg, png, gif, or pdf files are allowed")

var allowedTypes = map[string][]string{
	".jpeg": {"image/jpeg"},
	".jpg":  {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".pdf":  {"application/pdf"},
}

// CheckDocument accepts the upload only when both the file extension and
// the sniffed content type are an allowed image or PDF and they agree.
func CheckDocument(filename, sniffed string) error {
	want, ok := allowedTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return ErrUnsupportedType
	}
	sniffed, _, _ = strings.Cut(sniffed, ";")
	for _, ct := range want {
		if strings.EqualFold(strings.TrimSpace(sniffed), ct) {
			return nil
		}
	}
	return ErrUnsupportedType
}

// UploadKey builds the object key uploads/{unixmillis}-{name}.
func UploadKey(now time.Time, filename string) string {
	return fmt.Sprintf("uploads/%d-%s", now.UnixMilli(), SanitizeFilename(filename))
}

// SanitizeFilename removes path components and replaces characters outside
// [A-Za-z0-9._-] with '_'. Long names are truncated keeping the extension.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" {
		return "file"
	}

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}
	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}
