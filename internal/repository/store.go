package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"s3-explorer/internal/model"
)

type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	Create(ctx context.Context, user model.User) error
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int, error)
}

type GrantStore interface {
	ListByPrincipal(ctx context.Context, principalID string) ([]model.PermissionGrant, error)
	Upsert(ctx context.Context, grant model.PermissionGrant) (model.PermissionGrant, error)
	Delete(ctx context.Context, principalID string, path string) error
}

type AuditStore interface {
	Insert(ctx context.Context, record model.AuditRecord) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditRecord, model.Meta, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type TrashStore interface {
	Create(ctx context.Context, entry model.TrashEntry) error
	FindByID(ctx context.Context, id string) (model.TrashEntry, error)
	List(ctx context.Context) ([]model.TrashEntry, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.TrashEntry, error)
	Delete(ctx context.Context, id string) error
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func normalizeAuditQuery(query model.AuditQuery) model.AuditQuery {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 1000 {
		query.Limit = 1000
	}

	return query
}
