package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"detectserver/internal/logger"
)

// ErrStorage signals a failed write of an uploaded file.
var ErrStorage = errors.New("upload storage failure")

// UploadStore persists original upload bytes to a local directory.
type UploadStore struct {
	dir    string
	logger *logger.Logger
}

// NewUploadStore creates the store and ensures the upload directory exists.
func NewUploadStore(dir string, logger *logger.Logger) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return &UploadStore{
		dir:    dir,
		logger: logger,
	}, nil
}

// Save writes the upload under a collision-resistant name and returns its
// path. The random token is the disambiguator, the original filename is kept
// only as a cosmetic suffix after sanitization.
func (s *UploadStore) Save(filename string, data []byte) (string, error) {
	name := uuid.NewString() + "_" + sanitizeFilename(filename)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Info("Saved upload %s (%d bytes)", name, len(data))
	return path, nil
}

// sanitizeFilename reduces a user-supplied filename to a safe base name:
// no path separators, no traversal sequences, no control characters.
func sanitizeFilename(filename string) string {
	name := strings.ReplaceAll(filename, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f || r == '/' || r == '\\' || r == ':' {
			continue
		}
		b.WriteRune(r)
	}

	name = strings.Trim(b.String(), ". ")
	if name == "" {
		name = "image"
	}
	return name
}
