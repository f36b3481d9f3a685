package storage

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"s3-explorer/internal/model"
)

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Bucket() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockObjectStore) ListPage(ctx context.Context, prefix string, delimiter string, token string, maxKeys int) (Page, error) {
	args := m.Called(ctx, prefix, delimiter, token, maxKeys)
	return args.Get(0).(Page), args.Error(1)
}

func (m *MockObjectStore) Walk(ctx context.Context, prefix string, fn func(model.Object) error) error {
	args := m.Called(ctx, prefix, fn)
	return args.Error(0)
}

func (m *MockObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (model.Object, error) {
	args := m.Called(ctx, key, body, size, contentType)
	return args.Get(0).(model.Object), args.Error(1)
}

func (m *MockObjectStore) Stat(ctx context.Context, key string) (model.Object, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(model.Object), args.Error(1)
}

func (m *MockObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, model.Object, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Get(1).(model.Object), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(model.Object), args.Error(2)
}

func (m *MockObjectStore) Copy(ctx context.Context, srcKey string, dstKey string) error {
	args := m.Called(ctx, srcKey, dstKey)
	return args.Error(0)
}

func (m *MockObjectStore) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStore) RemoveBatch(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}
