package filestorage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
)

// LocalStorage serves documents from the local filesystem through the static
// file route of the API server.
type LocalStorage struct {
	basePath string // The root directory holding the document bucket
	baseURL  string // URL prefix the static route is mounted on
	expiry   time.Duration
	now      func() time.Time
}

// NewLocalStorage creates a new LocalStorage instance.
// basePath is the required directory path on the server.
// baseURL is the prefix links are built on, "/uploads" when empty.
func NewLocalStorage(basePath, baseURL string, expiry time.Duration) (*LocalStorage, error) {
	// Ensure the base path exists
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		expiry:   expiry,
		now:      time.Now,
	}, nil
}

// BasePath is the directory the static route should serve
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// SignURL returns the public link of the object. Local links do not expire;
// ExpiresAt reports the configured lifetime so clients treat both drivers alike.
func (ls *LocalStorage) SignURL(ctx context.Context, objectPath string) (*SignedURL, error) {
	key, err := cleanKey(objectPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(ls.GetFullPath(key)); os.IsNotExist(err) {
		logger.Warn().Str("path", key).Msg("Signing link for a document missing on disk")
	}

	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return &SignedURL{
		URL:       ls.baseURL + "/" + strings.Join(segments, "/"),
		ExpiresAt: ls.now().Add(ls.expiry).UTC(),
	}, nil
}

// GetFullPath returns the full filesystem path for a storage key
func (ls *LocalStorage) GetFullPath(key string) string {
	return filepath.Join(ls.basePath, filepath.FromSlash(key))
}

// cleanKey normalizes a storage key and rejects keys leaving the bucket
func cleanKey(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", ErrInvalidPath
	}
	key := strings.TrimPrefix(path.Clean("/"+p), "/")
	if key == "" || strings.HasPrefix(key, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	return key, nil
}
