package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"photoapi/internal/jsondoc"
	"photoapi/internal/model"
	"photoapi/internal/service"
)

type MockPhotoService struct {
	mock.Mock
}

func (m *MockPhotoService) photo(args mock.Arguments) (*model.Photo, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Photo), args.Error(1)
}

func (m *MockPhotoService) Create(ctx context.Context, title string, metadata jsondoc.Document) (*model.Photo, error) {
	return m.photo(m.Called(ctx, title, metadata))
}

func (m *MockPhotoService) UploadImage(ctx context.Context, id string, r io.Reader, filename string, size int64) (*model.Photo, error) {
	return m.photo(m.Called(ctx, id, r, filename, size))
}

func (m *MockPhotoService) RegenerateImage(ctx context.Context, id string) (*model.Photo, error) {
	return m.photo(m.Called(ctx, id))
}

func (m *MockPhotoService) DeleteImage(ctx context.Context, id string) (*model.Photo, error) {
	return m.photo(m.Called(ctx, id))
}

func (m *MockPhotoService) OpenFile(ctx context.Context, id, key string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, id, key)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

func (m *MockPhotoService) UpdateMetadata(ctx context.Context, id string, patch jsondoc.Document) (*model.Photo, error) {
	return m.photo(m.Called(ctx, id, patch))
}

func (m *MockPhotoService) List(ctx context.Context, limit, offset int) (*service.PhotoListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PhotoListResult), args.Error(1)
}

func (m *MockPhotoService) Get(ctx context.Context, id string) (*model.Photo, error) {
	return m.photo(m.Called(ctx, id))
}

func (m *MockPhotoService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
