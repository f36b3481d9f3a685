package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"s3-explorer/internal/model"
)

type memoryObject struct {
	data        []byte
	contentType string
	etag        string
	modified    time.Time
}

// MemoryStore keeps a bucket in process memory. It backs the memory storage
// backend and the service tests.
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memoryObject
	now     func() time.Time

	// failures injects errors per operation and key, keyed "op:key".
	failures map[string]error
}

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:   bucket,
		objects:  make(map[string]memoryObject),
		now:      time.Now,
		failures: make(map[string]error),
	}
}

func (m *MemoryStore) Bucket() string {
	return m.bucket
}

// FailOn makes every subsequent op on key return err. A nil err clears it.
func (m *MemoryStore) FailOn(op string, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.failures, op+":"+key)
		return
	}
	m.failures[op+":"+key] = err
}

func (m *MemoryStore) injected(op string, key string) error {
	if err, ok := m.failures[op+":"+key]; ok {
		return err
	}

	return nil
}

// Keys returns every stored key in lexical order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedKeys("")
}

func (m *MemoryStore) sortedKeys(prefix string) []string {
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys
}

func (m *MemoryStore) info(key string, object memoryObject) model.Object {
	return ClassifyObject(key, int64(len(object.data)), object.contentType, object.etag, object.modified)
}

func (m *MemoryStore) ListPage(ctx context.Context, prefix string, delimiter string, token string, maxKeys int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if maxKeys <= 0 {
		maxKeys = defaultPageSize
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.injected("list", prefix); err != nil {
		return Page{}, err
	}

	type entry struct {
		name     string
		isPrefix bool
	}

	entries := make([]entry, 0)
	seen := make(map[string]struct{})
	for _, key := range m.sortedKeys(prefix) {
		if delimiter != "" {
			rest := key[len(prefix):]
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				common := prefix + rest[:idx+len(delimiter)]
				if _, ok := seen[common]; !ok {
					seen[common] = struct{}{}
					entries = append(entries, entry{name: common, isPrefix: true})
				}
				continue
			}
		}
		entries = append(entries, entry{name: key})
	}

	page := Page{}
	count := 0
	for _, item := range entries {
		if token != "" && item.name <= token {
			continue
		}
		if count == maxKeys {
			page.Truncated = true
			break
		}

		if item.isPrefix {
			page.Prefixes = append(page.Prefixes, item.name)
		} else {
			page.Objects = append(page.Objects, m.info(item.name, m.objects[item.name]))
		}
		page.NextToken = item.name
		count++
	}

	if !page.Truncated {
		page.NextToken = ""
	}

	return page, nil
}

func (m *MemoryStore) Walk(ctx context.Context, prefix string, fn func(model.Object) error) error {
	m.mu.RLock()
	if err := m.injected("walk", prefix); err != nil {
		m.mu.RUnlock()
		return err
	}
	keys := m.sortedKeys(prefix)
	snapshot := make([]model.Object, 0, len(keys))
	for _, key := range keys {
		snapshot = append(snapshot, m.info(key, m.objects[key]))
	}
	m.mu.RUnlock()

	for _, object := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(object); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			return err
		}
	}

	return nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) (model.Object, error) {
	if err := ctx.Err(); err != nil {
		return model.Object{}, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return model.Object{}, &model.StorageError{Op: "put", Key: key, Code: "IncompleteBody", Message: err.Error(), Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("put", key); err != nil {
		return model.Object{}, err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	sum := md5.Sum(data)
	object := memoryObject{
		data:        data,
		contentType: contentType,
		etag:        hex.EncodeToString(sum[:]),
		modified:    m.now().UTC(),
	}
	m.objects[key] = object

	return m.info(key, object), nil
}

func (m *MemoryStore) Stat(ctx context.Context, key string) (model.Object, error) {
	if err := ctx.Err(); err != nil {
		return model.Object{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.injected("stat", key); err != nil {
		return model.Object{}, err
	}

	object, ok := m.objects[key]
	if !ok {
		return model.Object{}, fmt.Errorf("stat %q: %w", key, model.ErrObjectNotFound)
	}

	return m.info(key, object), nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, model.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.Object{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.injected("get", key); err != nil {
		return nil, model.Object{}, err
	}

	object, ok := m.objects[key]
	if !ok {
		return nil, model.Object{}, fmt.Errorf("get %q: %w", key, model.ErrObjectNotFound)
	}

	return io.NopCloser(bytes.NewReader(object.data)), m.info(key, object), nil
}

func (m *MemoryStore) Copy(ctx context.Context, srcKey string, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("copy", srcKey); err != nil {
		return err
	}

	object, ok := m.objects[srcKey]
	if !ok {
		return fmt.Errorf("copy %q: %w", srcKey, model.ErrObjectNotFound)
	}

	copied := object
	copied.data = append([]byte(nil), object.data...)
	copied.modified = m.now().UTC()
	m.objects[dstKey] = copied

	return nil
}

// Remove deletes key. Removing a missing key succeeds, as it does on S3.
func (m *MemoryStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("remove", key); err != nil {
		return err
	}

	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) RemoveBatch(ctx context.Context, keys []string) error {
	var errs []error
	for _, key := range keys {
		if err := m.Remove(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m *MemoryStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.injected("presign", key); err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("X-Expires", strconv.FormatInt(int64(ttl/time.Second), 10))
	signed := url.URL{
		Scheme:   "memory",
		Host:     m.bucket,
		Path:     "/" + key,
		RawQuery: query.Encode(),
	}

	return signed.String(), nil
}
