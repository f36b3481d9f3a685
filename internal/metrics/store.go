package metrics

import (
	"context"
	"errors"
	"io"
	"time"

	"s3-explorer/internal/model"
	"s3-explorer/internal/storage"
)

type instrumentedStore struct {
	next    storage.ObjectStore
	metrics *Metrics
}

// InstrumentStore wraps store so each call is counted and timed. Not-found
// results count as successful calls.
func InstrumentStore(store storage.ObjectStore, m *Metrics) storage.ObjectStore {
	if m == nil {
		return store
	}
	return &instrumentedStore{next: store, metrics: m}
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	if errors.Is(err, model.ErrNotFound) {
		err = nil
	}
	s.metrics.ObserveStoreOp(op, time.Since(start), err)
}

func (s *instrumentedStore) Bucket() string {
	return s.next.Bucket()
}

func (s *instrumentedStore) ListPage(ctx context.Context, prefix string, delimiter string, token string, maxKeys int) (storage.Page, error) {
	start := time.Now()
	page, err := s.next.ListPage(ctx, prefix, delimiter, token, maxKeys)
	s.observe("list", start, err)
	return page, err
}

func (s *instrumentedStore) Walk(ctx context.Context, prefix string, fn func(model.Object) error) error {
	start := time.Now()
	err := s.next.Walk(ctx, prefix, fn)
	s.observe("walk", start, err)
	return err
}

func (s *instrumentedStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (model.Object, error) {
	start := time.Now()
	info, err := s.next.Put(ctx, key, body, size, contentType)
	s.observe("put", start, err)
	return info, err
}

func (s *instrumentedStore) Stat(ctx context.Context, key string) (model.Object, error) {
	start := time.Now()
	info, err := s.next.Stat(ctx, key)
	s.observe("stat", start, err)
	return info, err
}

func (s *instrumentedStore) Get(ctx context.Context, key string) (io.ReadCloser, model.Object, error) {
	start := time.Now()
	body, info, err := s.next.Get(ctx, key)
	s.observe("get", start, err)
	return body, info, err
}

func (s *instrumentedStore) Copy(ctx context.Context, srcKey string, dstKey string) error {
	start := time.Now()
	err := s.next.Copy(ctx, srcKey, dstKey)
	s.observe("copy", start, err)
	return err
}

func (s *instrumentedStore) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Remove(ctx, key)
	s.observe("remove", start, err)
	return err
}

func (s *instrumentedStore) RemoveBatch(ctx context.Context, keys []string) error {
	start := time.Now()
	err := s.next.RemoveBatch(ctx, keys)
	s.observe("remove_batch", start, err)
	return err
}

func (s *instrumentedStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	start := time.Now()
	link, err := s.next.PresignGet(ctx, key, ttl)
	s.observe("presign", start, err)
	return link, err
}
