package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"s3-explorer/internal/metrics"
	"s3-explorer/internal/model"
	"s3-explorer/internal/repository"
	"s3-explorer/internal/storage"
)

const testTrashPrefix = ".trash"

var adminActor = model.Actor{
	Principal:     model.Principal{ID: "admin-id", Username: "admin", IsSuperuser: true, IsAuthenticated: true},
	ClientAddress: "10.0.0.1",
}

type fixture struct {
	store   *storage.MemoryStore
	users   *repository.MemoryUserStore
	grants  *repository.MemoryGrantStore
	records *repository.MemoryAuditStore
	entries *repository.MemoryTrashStore
	metrics *metrics.Metrics

	audit   *AuditService
	perms   *PermissionService
	browser *BrowserService
	trash   *TrashService
	bulk    *BulkService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:   storage.NewMemoryStore("files"),
		users:   repository.NewMemoryUserStore(),
		grants:  repository.NewMemoryGrantStore(),
		records: repository.NewMemoryAuditStore(),
		entries: repository.NewMemoryTrashStore(),
		metrics: metrics.New(),
	}
	f.build(f.entries)
	return f
}

// build wires the services over the fixture stores; entries may be swapped
// for a failing ledger.
func (f *fixture) build(entries repository.TrashStore) {
	f.audit = NewAuditService(f.records, f.metrics)
	f.perms = NewPermissionService(f.grants, f.users, f.audit, f.metrics)
	f.browser = NewBrowserService(f.store, f.perms, f.audit, BrowserConfig{
		TrashPrefix:      testTrashPrefix,
		PresignTTL:       time.Hour,
		SearchMaxResults: 50,
		MoveConcurrency:  4,
	})
	f.trash = NewTrashService(f.store, entries, f.perms, f.audit, f.metrics, TrashConfig{
		Prefix:      testTrashPrefix,
		Retention:   24 * time.Hour,
		Concurrency: 4,
	})
	f.bulk = NewBulkService(f.browser, f.trash, f.store, f.perms, f.audit, testTrashPrefix)
}

// seed stores each key with its own name as content. Keys ending in "/"
// become folder markers.
func (f *fixture) seed(t *testing.T, keys ...string) {
	t.Helper()

	for _, key := range keys {
		body := key
		if strings.HasSuffix(key, "/") {
			body = ""
		}
		_, err := f.store.Put(context.Background(), key, strings.NewReader(body), int64(len(body)), "")
		require.NoError(t, err)
	}
}

// member creates a regular user holding the given grants.
func (f *fixture) member(t *testing.T, name string, grants ...model.PermissionGrant) model.Actor {
	t.Helper()

	id := name + "-id"
	require.NoError(t, f.users.Create(context.Background(), model.User{ID: id, Username: name, IsActive: true}))
	for _, grant := range grants {
		grant.PrincipalID = id
		_, err := f.grants.Upsert(context.Background(), grant)
		require.NoError(t, err)
	}

	return model.Actor{
		Principal:     model.Principal{ID: id, Username: name, IsAuthenticated: true},
		ClientAddress: "192.0.2.10",
	}
}

func (f *fixture) auditRecords(t *testing.T, action model.AuditAction) []model.AuditRecord {
	t.Helper()

	records, _, err := f.records.Query(context.Background(), model.AuditQuery{Action: string(action), Limit: 1000})
	require.NoError(t, err)
	return records
}

func grant(path string, capabilities ...model.Capability) model.PermissionGrant {
	g := model.PermissionGrant{Path: path}
	for _, capability := range capabilities {
		switch capability {
		case model.CapabilityRead:
			g.CanRead = true
		case model.CapabilityWrite:
			g.CanWrite = true
		case model.CapabilityDelete:
			g.CanDelete = true
		case model.CapabilityMove:
			g.CanMove = true
		}
	}
	return g
}
