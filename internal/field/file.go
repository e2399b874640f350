package field

import (
	"context"
	"errors"
	"io"
	"time"

	"photoapi/internal/storage"
)

// ErrNotOpen is returned by Read on a File that has not been opened.
var ErrNotOpen = errors.New("field: file not open")

// File is a handle on one stored file. An empty name stands for "no file":
// such a handle can be tested with IsEmpty but not opened.
//
// The underlying reader is acquired by Open and must be released with Close
// before the name changes.
type File struct {
	Name string

	storage   storage.Storage
	rc        io.ReadCloser
	size      int64 // -1 until known
	committed bool
}

func newFile(s storage.Storage, name string) *File {
	return &File{Name: name, storage: s, size: -1, committed: true}
}

// IsEmpty reports whether the handle refers to no file.
func (f *File) IsEmpty() bool {
	return f.Name == ""
}

// Committed reports whether the named file is known to be in storage.
func (f *File) Committed() bool {
	return f.committed
}

// Open acquires a reader on the stored content. Calling Open on an already
// open handle returns the same reader.
func (f *File) Open(ctx context.Context) (io.ReadCloser, error) {
	if f.rc != nil {
		return f.rc, nil
	}
	if f.IsEmpty() {
		return nil, ErrNoFile
	}
	rc, err := f.storage.Open(ctx, f.Name)
	if err != nil {
		return nil, err
	}
	f.rc = rc
	return rc, nil
}

// Read reads from the reader acquired by Open.
func (f *File) Read(p []byte) (int, error) {
	if f.rc == nil {
		return 0, ErrNotOpen
	}
	return f.rc.Read(p)
}

// Close releases the reader if one is held.
func (f *File) Close() error {
	if f.rc == nil {
		return nil
	}
	err := f.rc.Close()
	f.rc = nil
	return err
}

// Size returns the file length, from the cache filled on save when possible.
func (f *File) Size(ctx context.Context) (int64, error) {
	if f.IsEmpty() {
		return 0, ErrNoFile
	}
	if f.size >= 0 {
		return f.size, nil
	}
	n, err := f.storage.Size(ctx, f.Name)
	if err != nil {
		return 0, err
	}
	f.size = n
	return n, nil
}

// URL returns a time-limited download URL from the storage backend.
func (f *File) URL(ctx context.Context, expiry time.Duration) (string, error) {
	if f.IsEmpty() {
		return "", ErrNoFile
	}
	return f.storage.PresignGet(ctx, f.Name, expiry)
}
