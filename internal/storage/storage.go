package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage contains blob storage backends addressed by name.
// Names are slash separated keys; each backend maps them onto its own namespace
// (an object key, a path below a root directory, a map key).

var (
	// ErrNotFound is returned when a named blob does not exist.
	ErrNotFound = errors.New("storage: object not found")
	// ErrPresignUnsupported is returned by backends that cannot hand out URLs.
	ErrPresignUnsupported = errors.New("storage: presigned urls not supported")
)

// Storage is a name-addressed blob store.
// Implementations are safe for concurrent use by multiple goroutines.
type Storage interface {
	// Save writes the content under name and returns the name it was actually
	// stored under. If name is taken a unique variant is chosen instead.
	// size is the content length in bytes, or -1 when unknown.
	Save(ctx context.Context, name string, r io.Reader, size int64) (string, error)
	// Open returns the content stored under name. It returns ErrNotFound if there is none.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Exists reports whether name is in use.
	Exists(ctx context.Context, name string) (bool, error)
	// Size returns the stored length of name in bytes.
	Size(ctx context.Context, name string) (int64, error)
	// Delete removes name. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error
	// ValidName returns a version of the base name that is safe to store.
	ValidName(name string) string
	// PresignGet returns a time-limited URL for downloading name.
	PresignGet(ctx context.Context, name string, expiry time.Duration) (string, error)
}
