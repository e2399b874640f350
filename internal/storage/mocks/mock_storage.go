package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	args := m.Called(ctx, name, r, size)
	if f, ok := args.Get(0).(func(context.Context, string, io.Reader, int64) string); ok {
		return f(ctx, name, r, size), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockStorage) Exists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) Size(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// ValidName passes names through unchanged unless an expectation is set.
func (m *MockStorage) ValidName(name string) string {
	for _, c := range m.ExpectedCalls {
		if c.Method == "ValidName" {
			return m.Called(name).String(0)
		}
	}
	return name
}

func (m *MockStorage) PresignGet(ctx context.Context, name string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, name, expiry)
	return args.String(0), args.Error(1)
}
