package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"s3-explorer/internal/model"
)

// ErrStopWalk ends a Walk early without reporting an error.
var ErrStopWalk = errors.New("stop walk")

const defaultPageSize = 1000

// Page is one page of a delimited or flat listing. Prefixes are the common
// prefixes reported by the store, trailing slash included.
type Page struct {
	Prefixes  []string
	Objects   []model.Object
	NextToken string
	Truncated bool
}

// ObjectStore is the raw bucket surface. Keys passed in are store keys, so a
// folder marker is addressed with its trailing slash.
type ObjectStore interface {
	Bucket() string
	ListPage(ctx context.Context, prefix string, delimiter string, token string, maxKeys int) (Page, error)
	Walk(ctx context.Context, prefix string, fn func(model.Object) error) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (model.Object, error)
	Stat(ctx context.Context, key string) (model.Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, model.Object, error)
	Copy(ctx context.Context, srcKey string, dstKey string) error
	Remove(ctx context.Context, key string) error
	RemoveBatch(ctx context.Context, keys []string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ClassifyObject tags a listed key as file or folder. A zero length key with a
// trailing slash is a folder marker.
func ClassifyObject(key string, size int64, contentType string, etag string, modified time.Time) model.Object {
	kind := model.KindFile
	if strings.HasSuffix(key, "/") && size == 0 {
		kind = model.KindFolder
	}

	return model.Object{
		Key:          key,
		Kind:         kind,
		Size:         size,
		ContentType:  contentType,
		ETag:         strings.Trim(etag, `"`),
		LastModified: modified,
	}
}

// Exists reports whether key is present. Not-found is not an error.
func Exists(ctx context.Context, store ObjectStore, key string) (bool, error) {
	_, err := store.Stat(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}

	return false, err
}

// Occupied reports whether key is taken by a file or by a folder, marked or
// implicit.
func Occupied(ctx context.Context, store ObjectStore, key string) (bool, error) {
	key = NormalizeKey(key)
	if key == "" {
		return true, nil
	}

	found, err := Exists(ctx, store, key)
	if err != nil || found {
		return found, err
	}

	page, err := store.ListPage(ctx, FolderKey(key), "", "", 1)
	if err != nil {
		return false, err
	}
	return len(page.Objects) > 0 || len(page.Prefixes) > 0, nil
}

// ListAll pages through a delimited listing of prefix and returns every
// common prefix and object.
func ListAll(ctx context.Context, store ObjectStore, prefix string, delimiter string) (Page, error) {
	result := Page{}
	token := ""

	for {
		page, err := store.ListPage(ctx, prefix, delimiter, token, defaultPageSize)
		if err != nil {
			return Page{}, err
		}

		result.Prefixes = append(result.Prefixes, page.Prefixes...)
		result.Objects = append(result.Objects, page.Objects...)

		if !page.Truncated || page.NextToken == "" {
			return result, nil
		}
		token = page.NextToken
	}
}
