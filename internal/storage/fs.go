package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"photoapi/internal/config"
)

// fsStorage stores blobs as files below a root directory.
type fsStorage struct {
	root      string
	urlPrefix string
}

// NewFS creates a filesystem backed Storage, creating the root if needed.
func NewFS(cfg config.FSConfig) (Storage, error) {
	if cfg.Root == "" {
		return nil, errors.New("filesystem root is required")
	}
	info, err := os.Stat(cfg.Root)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("filesystem root %q is not a directory", cfg.Root)
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
			return nil, fmt.Errorf("create filesystem root: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat filesystem root: %w", err)
	}
	return &fsStorage{root: cfg.Root, urlPrefix: strings.TrimSuffix(cfg.URLPrefix, "/")}, nil
}

func (s *fsStorage) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	for {
		key, err := AvailableName(ctx, name, s.Exists)
		if err != nil {
			return "", err
		}
		p := s.path(key)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return "", fmt.Errorf("create directory: %w", err)
		}
		// O_EXCL closes the window between the existence check and the create.
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create file: %w", err)
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			if rmErr := os.Remove(p); rmErr != nil {
				log.Error().Err(rmErr).Str("path", p).Msg("remove partial file")
			}
			return "", fmt.Errorf("write file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close file: %w", err)
		}
		return key, nil
	}
}

func (s *fsStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *fsStorage) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *fsStorage) Size(ctx context.Context, name string) (int64, error) {
	info, err := os.Stat(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *fsStorage) Delete(ctx context.Context, name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fsStorage) ValidName(name string) string {
	return ValidName(name)
}

func (s *fsStorage) PresignGet(ctx context.Context, name string, expiry time.Duration) (string, error) {
	if s.urlPrefix == "" {
		return "", ErrPresignUnsupported
	}
	return s.urlPrefix + "/" + name, nil
}

// path maps a storage name below the root; names cannot climb out of it.
func (s *fsStorage) path(name string) string {
	clean := path.Clean("/" + name)
	return filepath.Join(s.root, filepath.FromSlash(clean))
}
