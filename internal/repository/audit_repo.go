package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"s3-explorer/internal/model"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert resolves the principal against users at write time. A token can
// outlive its account, and the record then keeps only the username.
func (r *AuditRepository) Insert(ctx context.Context, record model.AuditRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_records
		 (principal_id, username, action, path, occurred_at, success, client_address, detail)
		 VALUES ((SELECT id FROM users WHERE id = $1::uuid), $2, $3, $4, $5, $6, $7, $8)`,
		principalParam(record.PrincipalID), record.Username, string(record.Action), record.Path,
		record.OccurredAt, record.Success, record.ClientAddress, record.Detail)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditRecord, model.Meta, error) {
	query = normalizeAuditQuery(query)

	where := make([]string, 0)
	args := make([]any, 0)
	argIdx := 1

	if action := strings.TrimSpace(query.Action); action != "" {
		where = append(where, fmt.Sprintf("lower(action) = lower($%d)", argIdx))
		args = append(args, action)
		argIdx++
	}
	if principalID := strings.TrimSpace(query.PrincipalID); principalID != "" {
		id, ok := uuidParam(principalID)
		if !ok {
			return []model.AuditRecord{}, model.NewMeta(query.Page, query.Limit, 0), nil
		}
		where = append(where, fmt.Sprintf("principal_id = $%d::uuid", argIdx))
		args = append(args, id)
		argIdx++
	}
	if query.Success != nil {
		where = append(where, fmt.Sprintf("success = $%d", argIdx))
		args = append(args, *query.Success)
		argIdx++
	}
	if path := strings.TrimSpace(query.Path); path != "" {
		where = append(where, fmt.Sprintf("lower(path) LIKE lower($%d)", argIdx))
		args = append(args, "%"+path+"%")
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM audit_records %s", whereClause), args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count audit records: %w", err)
	}
	meta := model.NewMeta(query.Page, query.Limit, total)

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT id, principal_id::text, username, action, path, occurred_at, success, client_address, detail
		 FROM audit_records %s
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	records := make([]model.AuditRecord, 0)
	for rows.Next() {
		var rec model.AuditRecord
		var action string
		if err := rows.Scan(&rec.ID, &rec.PrincipalID, &rec.Username, &action, &rec.Path,
			&rec.OccurredAt, &rec.Success, &rec.ClientAddress, &rec.Detail); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Action = model.AuditAction(action)
		rec.OccurredAt = rec.OccurredAt.UTC()
		records = append(records, rec)
	}

	return records, meta, rows.Err()
}

func (r *AuditRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_records WHERE occurred_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune audit records: %w", err)
	}
	return tag.RowsAffected(), nil
}
