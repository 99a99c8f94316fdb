// Package images stores uploaded card photos and reads them back for OCR.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/agenthands/cardleads/internal/config"
)

var (
	ErrNotImage = errors.New("upload is not an image")
	ErrNotFound = errors.New("card image not found")
)

// Store persists card images under relative paths such as "cards/<uuid>.jpg".
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// NewStore returns a remote bucket store when a public base URL is set,
// otherwise a local directory store.
func NewStore(cfg config.ImagesConfig) (Store, error) {
	if cfg.PublicBaseURL != "" {
		return NewRemoteStore(cfg.PublicBaseURL, cfg.Bucket, cfg.ServiceKey), nil
	}
	return NewLocalStore(cfg.Dir)
}

// Sniff checks that data is an image and returns its MIME type and extension.
func Sniff(data []byte) (string, string, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", "", fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return mt.String(), mt.Extension(), nil
}

func newPath(ext string) string {
	return "cards/" + uuid.NewString() + ext
}

// cleanPath strips leading slashes and rejects traversal.
func cleanPath(p string) (string, error) {
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if p == "" {
		return "", fmt.Errorf("empty image path")
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid image path %q", p)
		}
	}
	return p, nil
}
