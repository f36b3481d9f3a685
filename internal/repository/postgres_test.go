//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3-explorer/internal/database"
	"s3-explorer/internal/model"
)

// openTestDB connects to TEST_DATABASE_URL and applies the schema. Each test
// works with fresh random IDs, so runs can share one database.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

func TestAuditInsertForDeletedPrincipal(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	audit := NewAuditRepository(db.Pool)

	gone := uuid.NewString()
	err := audit.Insert(ctx, model.AuditRecord{
		PrincipalID: &gone,
		Username:    "gone-" + gone[:8],
		Action:      model.ActionRead,
		Path:        "docs",
		OccurredAt:  time.Now().UTC(),
		Success:     true,
	})
	require.NoError(t, err)

	records, _, err := audit.Query(ctx, model.AuditQuery{Path: "docs", Action: string(model.ActionRead), Limit: 1000})
	require.NoError(t, err)

	found := false
	for _, record := range records {
		if record.Username == "gone-"+gone[:8] {
			found = true
			assert.Nil(t, record.PrincipalID)
		}
	}
	assert.True(t, found)
}

func TestRepositoriesTreatMalformedIDsAsMissing(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	grants, err := NewGrantRepository(db.Pool).ListByPrincipal(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.Empty(t, grants)

	require.ErrorIs(t, NewGrantRepository(db.Pool).Delete(ctx, "not-a-uuid", "docs"), model.ErrGrantNotFound)

	_, err = NewUserRepository(db.Pool).FindByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, model.ErrUserNotFound)

	_, err = NewTrashRepository(db.Pool).FindByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, model.ErrTrashEntryNotFound)

	records, meta, err := NewAuditRepository(db.Pool).Query(ctx, model.AuditQuery{PrincipalID: "not-a-uuid"})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, meta.Total)
}

func TestGrantLookupByPrincipal(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := model.User{
		ID:           uuid.NewString(),
		Username:     "grantee-" + uuid.NewString()[:8],
		PasswordHash: "x",
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, NewUserRepository(db.Pool).Create(ctx, user))

	repo := NewGrantRepository(db.Pool)
	_, err := repo.Upsert(ctx, model.PermissionGrant{PrincipalID: user.ID, Path: "docs", CanRead: true})
	require.NoError(t, err)

	grants, err := repo.ListByPrincipal(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "docs", grants[0].Path)

	require.NoError(t, repo.Delete(ctx, user.ID, "docs"))
}
