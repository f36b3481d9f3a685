package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"s3-explorer/internal/metrics"
	"s3-explorer/internal/model"
	"s3-explorer/internal/repository"
)

const auditWriteTimeout = 5 * time.Second

// AuditService appends audit records. Recording never fails the caller: a
// write error is logged and counted, then dropped.
type AuditService struct {
	store   repository.AuditStore
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewAuditService(store repository.AuditStore, m *metrics.Metrics) *AuditService {
	return &AuditService{store: store, metrics: m, now: time.Now}
}

func (s *AuditService) Record(ctx context.Context, actor model.Actor, action model.AuditAction, path string, success bool, detail string) {
	if s == nil || s.store == nil {
		return
	}

	record := model.AuditRecord{
		PrincipalID:   actor.PrincipalID(),
		Username:      actor.Username,
		Action:        action,
		Path:          path,
		OccurredAt:    s.now().UTC(),
		Success:       success,
		ClientAddress: actor.ClientAddress,
		Detail:        detail,
	}

	// The caller may already be cancelled (client went away mid-delete);
	// the outcome still has to be written.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := s.store.Insert(writeCtx, record); err != nil {
		s.metrics.AuditWriteFailed()
		slog.Warn("audit write failed",
			"action", action,
			"path", path,
			"principal", actor.Username,
			"success", success,
			"error", err,
		)
	}
}

// RecordResult records success when err is nil and the error text otherwise.
func (s *AuditService) RecordResult(ctx context.Context, actor model.Actor, action model.AuditAction, path string, err error) {
	if err != nil {
		s.Record(ctx, actor, action, path, false, err.Error())
		return
	}
	s.Record(ctx, actor, action, path, true, "")
}

func (s *AuditService) Query(ctx context.Context, actor model.Actor, query model.AuditQuery) ([]model.AuditRecord, model.Meta, error) {
	if !actor.IsSuperuser {
		s.Record(ctx, actor, model.ActionAuditQuery, query.Path, false, model.ErrForbidden.Error())
		return nil, model.Meta{}, model.ErrForbidden
	}

	records, meta, err := s.store.Query(ctx, query)
	s.RecordResult(ctx, actor, model.ActionAuditQuery, query.Path, err)
	return records, meta, err
}

// Prune deletes records older than before and returns how many were removed.
func (s *AuditService) Prune(ctx context.Context, before time.Time) (int64, error) {
	removed, err := s.store.DeleteBefore(ctx, before)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		slog.Info("audit records pruned", "removed", removed, "before", before.UTC().Format(time.RFC3339))
	}
	return removed, nil
}

// PruneAs is Prune on behalf of an administrator, audited like any other
// admin action.
func (s *AuditService) PruneAs(ctx context.Context, actor model.Actor, before time.Time) (int64, error) {
	if !actor.IsSuperuser {
		s.Record(ctx, actor, model.ActionAuditPrune, "", false, model.ErrForbidden.Error())
		return 0, model.ErrForbidden
	}

	removed, err := s.Prune(ctx, before)
	detail := fmt.Sprintf("before=%s removed=%d", before.UTC().Format(time.RFC3339), removed)
	if err != nil {
		detail += ": " + err.Error()
	}
	s.Record(ctx, actor, model.ActionAuditPrune, "", err == nil, detail)
	return removed, err
}
