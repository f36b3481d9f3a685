package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"s3-explorer/internal/model"
)

type TrashRepository struct {
	pool *pgxpool.Pool
}

func NewTrashRepository(pool *pgxpool.Pool) *TrashRepository {
	return &TrashRepository{pool: pool}
}

const trashColumns = `id::text, original_path, trash_path, kind, deleted_by::text, deleted_at, size, expires_at`

func scanTrashEntry(row pgx.Row) (model.TrashEntry, error) {
	var e model.TrashEntry
	var kind string
	err := row.Scan(&e.ID, &e.OriginalPath, &e.TrashPath, &kind, &e.DeletedBy, &e.DeletedAt, &e.Size, &e.ExpiresAt)
	e.Kind = model.ObjectKind(kind)
	e.DeletedAt = e.DeletedAt.UTC()
	e.ExpiresAt = e.ExpiresAt.UTC()
	return e, err
}

func (r *TrashRepository) Create(ctx context.Context, entry model.TrashEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO trash_entries (id, original_path, trash_path, kind, deleted_by, deleted_at, size, expires_at)
		 VALUES ($1::uuid, $2, $3, $4, (SELECT id FROM users WHERE id = $5::uuid), $6, $7, $8)`,
		entry.ID, entry.OriginalPath, entry.TrashPath, string(entry.Kind),
		principalParam(entry.DeletedBy), entry.DeletedAt, entry.Size, entry.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create trash entry: %w", err)
	}
	return nil
}

func (r *TrashRepository) FindByID(ctx context.Context, rawID string) (model.TrashEntry, error) {
	id, ok := uuidParam(rawID)
	if !ok {
		return model.TrashEntry{}, model.ErrTrashEntryNotFound
	}

	entry, err := scanTrashEntry(r.pool.QueryRow(ctx, `SELECT `+trashColumns+` FROM trash_entries WHERE id = $1::uuid`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.TrashEntry{}, model.ErrTrashEntryNotFound
	}
	if err != nil {
		return model.TrashEntry{}, fmt.Errorf("find trash entry: %w", err)
	}
	return entry, nil
}

func (r *TrashRepository) List(ctx context.Context) ([]model.TrashEntry, error) {
	return r.query(ctx, `SELECT `+trashColumns+` FROM trash_entries ORDER BY deleted_at DESC`)
}

func (r *TrashRepository) ListExpired(ctx context.Context, now time.Time) ([]model.TrashEntry, error) {
	return r.query(ctx, `SELECT `+trashColumns+` FROM trash_entries WHERE expires_at <= $1 ORDER BY expires_at`, now)
}

func (r *TrashRepository) query(ctx context.Context, sql string, args ...any) ([]model.TrashEntry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list trash entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.TrashEntry, 0)
	for rows.Next() {
		entry, err := scanTrashEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trash entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *TrashRepository) Delete(ctx context.Context, rawID string) error {
	id, ok := uuidParam(rawID)
	if !ok {
		return model.ErrTrashEntryNotFound
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM trash_entries WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("delete trash entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTrashEntryNotFound
	}
	return nil
}
