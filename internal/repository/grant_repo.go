package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"s3-explorer/internal/model"
)

type GrantRepository struct {
	pool *pgxpool.Pool
}

func NewGrantRepository(pool *pgxpool.Pool) *GrantRepository {
	return &GrantRepository{pool: pool}
}

func (r *GrantRepository) ListByPrincipal(ctx context.Context, principalID string) ([]model.PermissionGrant, error) {
	id, ok := uuidParam(principalID)
	if !ok {
		return []model.PermissionGrant{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id::text, principal_id::text, path, can_read, can_write, can_delete, can_move, created_at, updated_at
		 FROM permission_grants
		 WHERE principal_id = $1::uuid
		 ORDER BY path`, id)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	grants := make([]model.PermissionGrant, 0)
	for rows.Next() {
		var g model.PermissionGrant
		if err := rows.Scan(&g.ID, &g.PrincipalID, &g.Path, &g.CanRead, &g.CanWrite, &g.CanDelete, &g.CanMove, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// Upsert writes the flags for (principal, path), replacing any existing row.
func (r *GrantRepository) Upsert(ctx context.Context, grant model.PermissionGrant) (model.PermissionGrant, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permission_grants (principal_id, path, can_read, can_write, can_delete, can_move)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6)
		 ON CONFLICT (principal_id, path) DO UPDATE
		 SET can_read = EXCLUDED.can_read,
		     can_write = EXCLUDED.can_write,
		     can_delete = EXCLUDED.can_delete,
		     can_move = EXCLUDED.can_move,
		     updated_at = NOW()
		 RETURNING id::text, created_at, updated_at`,
		grant.PrincipalID, grant.Path, grant.CanRead, grant.CanWrite, grant.CanDelete, grant.CanMove).
		Scan(&grant.ID, &grant.CreatedAt, &grant.UpdatedAt)
	if err != nil {
		return model.PermissionGrant{}, fmt.Errorf("upsert grant: %w", err)
	}
	return grant, nil
}

func (r *GrantRepository) Delete(ctx context.Context, principalID string, path string) error {
	id, ok := uuidParam(principalID)
	if !ok {
		return model.ErrGrantNotFound
	}

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM permission_grants WHERE principal_id = $1::uuid AND path = $2`, id, path)
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrGrantNotFound
	}
	return nil
}
