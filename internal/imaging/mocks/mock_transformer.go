package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"

	"photoapi/internal/imaging"
)

type MockTransformer struct {
	mock.Mock
}

func (m *MockTransformer) Open(r io.Reader) (*imaging.Source, error) {
	args := m.Called(r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*imaging.Source), args.Error(1)
}

func (m *MockTransformer) Process(src *imaging.Source, spec imaging.Spec) ([]byte, string, error) {
	args := m.Called(src, spec)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}
