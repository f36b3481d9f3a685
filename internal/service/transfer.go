package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"s3-explorer/internal/model"
	"s3-explorer/internal/storage"
)

type keyPair struct {
	src string
	dst string
}

// transfer copies and removes key sets with bounded parallelism.
type transfer struct {
	store storage.ObjectStore
	limit int
}

func newTransfer(store storage.ObjectStore, limit int) transfer {
	if limit <= 0 {
		limit = 1
	}
	return transfer{store: store, limit: limit}
}

// enumerate returns every object stored under the folder prefix, marker
// included.
func (t transfer) enumerate(ctx context.Context, folder string) ([]model.Object, error) {
	objects := make([]model.Object, 0)
	err := t.store.Walk(ctx, storage.FolderKey(folder), func(object model.Object) error {
		objects = append(objects, object)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return objects, nil
}

// rebase maps every object under from onto the same relative key under to.
func rebase(objects []model.Object, from string, to string) []keyPair {
	fromPrefix := storage.FolderKey(from)
	toPrefix := storage.FolderKey(to)

	pairs := make([]keyPair, 0, len(objects))
	for _, object := range objects {
		rel := strings.TrimPrefix(object.Key, fromPrefix)
		pairs = append(pairs, keyPair{src: object.Key, dst: toPrefix + rel})
	}
	return pairs
}

// copyAll copies every pair and reports how many landed. The first failure
// cancels the copies still queued.
func (t transfer) copyAll(ctx context.Context, pairs []keyPair) (int, error) {
	var copied atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(t.limit)

	for _, pair := range pairs {
		group.Go(func() error {
			if err := t.store.Copy(groupCtx, pair.src, pair.dst); err != nil {
				return err
			}
			copied.Add(1)
			return nil
		})
	}

	err := group.Wait()
	return int(copied.Load()), err
}

func (t transfer) removeAll(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	return t.store.RemoveBatch(ctx, keys)
}

func sources(pairs []keyPair) []string {
	keys := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		keys = append(keys, pair.src)
	}
	return keys
}

func destinations(pairs []keyPair) []string {
	keys := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		keys = append(keys, pair.dst)
	}
	return keys
}

func partialError(op string, done int, total int, err error) error {
	return fmt.Errorf("%s stopped after %d of %d objects: %w", op, done, total, err)
}
