package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"s3-explorer/internal/metrics"
)

// TrashSweeper purges expired trash entries and, when a retention is set,
// prunes old audit records on a fixed interval.
type TrashSweeper struct {
	trash          *TrashService
	audit          *AuditService
	metrics        *metrics.Metrics
	interval       time.Duration
	auditRetention time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTrashSweeper(trash *TrashService, audit *AuditService, m *metrics.Metrics, interval time.Duration, auditRetention time.Duration) *TrashSweeper {
	return &TrashSweeper{
		trash:          trash,
		audit:          audit,
		metrics:        m,
		interval:       interval,
		auditRetention: auditRetention,
	}
}

// Start runs a sweep immediately and then on every tick until Stop. A zero
// interval disables the sweeper.
func (w *TrashSweeper) Start(ctx context.Context) {
	if w.interval <= 0 {
		slog.Info("trash sweeper disabled")
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.Sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Sweep(ctx)
			}
		}
	}()
}

func (w *TrashSweeper) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *TrashSweeper) Sweep(ctx context.Context) {
	result, err := w.trash.PurgeExpired(ctx, SystemActor)
	w.metrics.TrashSweep(err)
	switch {
	case err != nil:
		slog.Error("trash sweep failed", "error", err)
	case result.PurgedFiles+result.PurgedFolders > 0 || len(result.Errors) > 0:
		slog.Info("trash sweep finished",
			"purged_files", result.PurgedFiles,
			"purged_folders", result.PurgedFolders,
			"errors", len(result.Errors),
		)
	}

	if w.auditRetention > 0 {
		if _, err := w.audit.Prune(ctx, time.Now().Add(-w.auditRetention)); err != nil {
			slog.Error("audit prune failed", "error", err)
		}
	}
}
