package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"s3-explorer/internal/metrics"
	"s3-explorer/internal/model"
	"s3-explorer/internal/repository"
	"s3-explorer/internal/storage"
)

const maxRestoreRenames = 1000

type TrashConfig struct {
	Prefix      string
	Retention   time.Duration
	Concurrency int
}

// TrashService implements soft delete. Deleted objects are copied under
// <prefix>/<id>/<name> and tracked by a ledger row until they are restored
// or purged; either terminal transition removes the row.
type TrashService struct {
	store    storage.ObjectStore
	entries  repository.TrashStore
	perms    *PermissionService
	audit    *AuditService
	metrics  *metrics.Metrics
	cfg      TrashConfig
	ns       namespace
	transfer transfer
	now      func() time.Time
	newID    func() string
}

func NewTrashService(store storage.ObjectStore, entries repository.TrashStore, perms *PermissionService, audit *AuditService, m *metrics.Metrics, cfg TrashConfig) *TrashService {
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}

	return &TrashService{
		store:    store,
		entries:  entries,
		perms:    perms,
		audit:    audit,
		metrics:  m,
		cfg:      cfg,
		ns:       newNamespace(cfg.Prefix),
		transfer: newTransfer(store, cfg.Concurrency),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SystemActor is used for work the service does on its own schedule.
var SystemActor = model.Actor{Principal: model.Principal{Username: "system", IsSuperuser: true, IsAuthenticated: true}}

func (s *TrashService) DeleteFile(ctx context.Context, actor model.Actor, rawPath string) (model.TrashEntry, error) {
	path, err := storage.CleanKey(rawPath)
	if err != nil {
		return model.TrashEntry{}, err
	}

	entry, err := s.deleteFile(ctx, actor, rawPath, path)
	s.audit.Record(ctx, actor, model.ActionDelete, path, err == nil, trashDetail(entry, err))
	return entry, err
}

func (s *TrashService) deleteFile(ctx context.Context, actor model.Actor, rawPath string, path string) (model.TrashEntry, error) {
	if path == "" || strings.HasSuffix(strings.TrimSpace(rawPath), "/") {
		return model.TrashEntry{}, model.Invalid("path names a folder; delete it as a folder")
	}
	if err := s.ns.guardWrite(actor, path); err != nil {
		return model.TrashEntry{}, err
	}
	if err := s.perms.Require(ctx, actor.Principal, storage.ParentKey(path), model.CapabilityDelete); err != nil {
		return model.TrashEntry{}, err
	}

	object, err := s.store.Stat(ctx, path)
	if err != nil {
		return model.TrashEntry{}, err
	}

	// Past this point the client going away must not leave a half moved file.
	ctx = context.WithoutCancel(ctx)

	entry := s.newEntry(actor, path, model.KindFile, object.Size)
	if err := s.store.Copy(ctx, path, entry.TrashPath); err != nil {
		return model.TrashEntry{}, err
	}

	if err := s.store.Remove(ctx, path); err != nil {
		if cleanupErr := s.store.Remove(ctx, entry.TrashPath); cleanupErr != nil {
			slog.Warn("trash copy left behind", "trash_path", entry.TrashPath, "error", cleanupErr)
		}
		return model.TrashEntry{}, err
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		if restoreErr := s.store.Copy(ctx, entry.TrashPath, path); restoreErr != nil {
			slog.Error("could not put file back after ledger failure",
				"path", path, "trash_path", entry.TrashPath, "error", restoreErr)
			return model.TrashEntry{}, fmt.Errorf("record trash entry: %w", err)
		}
		_ = s.store.Remove(ctx, entry.TrashPath)
		return model.TrashEntry{}, fmt.Errorf("record trash entry: %w", err)
	}

	return entry, nil
}

func (s *TrashService) DeleteFolder(ctx context.Context, actor model.Actor, rawPath string) (model.TrashEntry, error) {
	path, err := storage.CleanKey(rawPath)
	if err != nil {
		return model.TrashEntry{}, err
	}

	entry, err := s.deleteFolder(ctx, actor, path)
	s.audit.Record(ctx, actor, model.ActionDeleteFolder, path, err == nil, trashDetail(entry, err))
	return entry, err
}

func (s *TrashService) deleteFolder(ctx context.Context, actor model.Actor, path string) (model.TrashEntry, error) {
	if path == "" {
		return model.TrashEntry{}, model.Invalid("the bucket root cannot be deleted")
	}
	if err := s.ns.guardWrite(actor, path); err != nil {
		return model.TrashEntry{}, err
	}
	if err := s.perms.Require(ctx, actor.Principal, path, model.CapabilityDelete); err != nil {
		return model.TrashEntry{}, err
	}

	objects, err := s.transfer.enumerate(ctx, path)
	if err != nil {
		return model.TrashEntry{}, err
	}
	if len(objects) == 0 {
		return model.TrashEntry{}, fmt.Errorf("folder %q: %w", path, model.ErrNotFound)
	}

	ctx = context.WithoutCancel(ctx)

	var size int64
	for _, object := range objects {
		size += object.Size
	}

	entry := s.newEntry(actor, path, model.KindFolder, size)
	pairs := rebase(objects, path, entry.TrashPath)

	copied, err := s.transfer.copyAll(ctx, pairs)
	if err != nil {
		if cleanupErr := s.transfer.removeAll(ctx, destinations(pairs)); cleanupErr != nil {
			slog.Warn("partial trash copy left behind", "trash_path", entry.TrashPath, "error", cleanupErr)
		}
		return model.TrashEntry{}, partialError("move to trash", copied, len(pairs), err)
	}

	removeErr := s.transfer.removeAll(ctx, sources(pairs))

	// Every object is safely in the trash by now, so the entry is recorded
	// even when some originals could not be removed.
	if err := s.entries.Create(ctx, entry); err != nil {
		if _, restoreErr := s.transfer.copyAll(ctx, reverse(pairs)); restoreErr != nil {
			slog.Error("could not put folder back after ledger failure",
				"path", path, "trash_path", entry.TrashPath, "error", restoreErr)
			return model.TrashEntry{}, fmt.Errorf("record trash entry: %w", err)
		}
		_ = s.transfer.removeAll(ctx, destinations(pairs))
		return model.TrashEntry{}, fmt.Errorf("record trash entry: %w", err)
	}

	if removeErr != nil {
		return entry, fmt.Errorf("folder copied to trash but some originals remain: %w", removeErr)
	}
	return entry, nil
}

func (s *TrashService) newEntry(actor model.Actor, path string, kind model.ObjectKind, size int64) model.TrashEntry {
	id := s.newID()
	now := s.now().UTC()

	return model.TrashEntry{
		ID:           id,
		OriginalPath: path,
		TrashPath:    storage.JoinKey(s.cfg.Prefix, id, storage.BaseName(path)),
		Kind:         kind,
		DeletedBy:    actor.PrincipalID(),
		DeletedAt:    now,
		Size:         size,
		ExpiresAt:    now.Add(s.cfg.Retention),
	}
}

func (s *TrashService) List(ctx context.Context, actor model.Actor) ([]model.TrashEntry, error) {
	if !actor.IsSuperuser {
		s.audit.Record(ctx, actor, model.ActionTrashList, "", false, model.ErrForbidden.Error())
		return nil, model.ErrForbidden
	}

	entries, err := s.entries.List(ctx)
	s.audit.RecordResult(ctx, actor, model.ActionTrashList, "", err)
	return entries, err
}

// Restore puts an entry back at its original path. A file whose path has
// been taken again is renamed name_restored.ext, name_restored_2.ext and so
// on; a folder is merged over whatever is there now.
func (s *TrashService) Restore(ctx context.Context, actor model.Actor, id string) (model.RestoreResult, error) {
	result, err := s.restore(ctx, actor, id)

	path := result.OriginalPath
	detail := ""
	if err != nil {
		detail = err.Error()
	} else if result.RestoredPath != result.OriginalPath {
		detail = "restored as " + result.RestoredPath
	}
	s.audit.Record(ctx, actor, model.ActionRestore, path, err == nil, detail)
	return result, err
}

func (s *TrashService) restore(ctx context.Context, actor model.Actor, id string) (model.RestoreResult, error) {
	if !actor.IsSuperuser {
		return model.RestoreResult{}, model.ErrForbidden
	}

	entry, err := s.entries.FindByID(ctx, id)
	if err != nil {
		return model.RestoreResult{}, err
	}

	result := model.RestoreResult{ID: entry.ID, OriginalPath: entry.OriginalPath, Kind: entry.Kind}
	ctx = context.WithoutCancel(ctx)

	if entry.Kind == model.KindFile {
		target, err := s.freeFilePath(ctx, entry.OriginalPath)
		if err != nil {
			return result, err
		}
		if err := s.store.Copy(ctx, entry.TrashPath, target); err != nil {
			return result, err
		}
		if err := s.store.Remove(ctx, entry.TrashPath); err != nil {
			return result, err
		}
		result.RestoredPath = target
		result.Objects = 1
	} else {
		objects, err := s.transfer.enumerate(ctx, entry.TrashPath)
		if err != nil {
			return result, err
		}
		if len(objects) == 0 {
			return result, fmt.Errorf("trash contents for %s: %w", entry.ID, model.ErrObjectNotFound)
		}

		pairs := rebase(objects, entry.TrashPath, entry.OriginalPath)
		copied, err := s.transfer.copyAll(ctx, pairs)
		if err != nil {
			return result, partialError("restore", copied, len(pairs), err)
		}
		if err := s.transfer.removeAll(ctx, sources(pairs)); err != nil {
			return result, err
		}
		result.RestoredPath = entry.OriginalPath
		result.Objects = copied
	}

	if err := s.entries.Delete(ctx, entry.ID); err != nil {
		return result, fmt.Errorf("remove trash entry: %w", err)
	}

	return result, nil
}

// freeFilePath picks the restore target for a file. A path held by a file or
// a folder counts as taken.
func (s *TrashService) freeFilePath(ctx context.Context, original string) (string, error) {
	taken, err := storage.Occupied(ctx, s.store, original)
	if err != nil {
		return "", err
	}
	if !taken {
		return original, nil
	}

	parent := storage.ParentKey(original)
	stem, ext := storage.SplitExt(storage.BaseName(original))

	for attempt := 1; attempt <= maxRestoreRenames; attempt++ {
		suffix := "_restored"
		if attempt > 1 {
			suffix = fmt.Sprintf("_restored_%d", attempt)
		}

		candidate := storage.JoinKey(parent, stem+suffix+ext)
		taken, err := storage.Occupied(ctx, s.store, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no free name to restore %q: %w", original, model.ErrAlreadyExists)
}

func (s *TrashService) Purge(ctx context.Context, actor model.Actor, id string) (model.PurgeResult, error) {
	result := model.PurgeResult{Errors: []string{}}
	if !actor.IsSuperuser {
		s.audit.Record(ctx, actor, model.ActionPurge, id, false, model.ErrForbidden.Error())
		return result, model.ErrForbidden
	}

	entry, err := s.entries.FindByID(ctx, id)
	if err != nil {
		s.audit.Record(ctx, actor, model.ActionPurge, id, false, err.Error())
		return result, err
	}

	err = s.purgeEntry(context.WithoutCancel(ctx), entry)
	if err == nil {
		countPurged(&result, entry)
		s.metrics.TrashPurged(string(entry.Kind), 1)
	}
	s.audit.RecordResult(ctx, actor, model.ActionPurge, entry.OriginalPath, err)
	return result, err
}

func (s *TrashService) EmptyTrash(ctx context.Context, actor model.Actor) (model.PurgeResult, error) {
	if !actor.IsSuperuser {
		s.audit.Record(ctx, actor, model.ActionEmptyTrash, s.cfg.Prefix, false, model.ErrForbidden.Error())
		return model.PurgeResult{Errors: []string{}}, model.ErrForbidden
	}

	entries, err := s.entries.List(ctx)
	if err != nil {
		return model.PurgeResult{Errors: []string{}}, err
	}

	result := s.purgeAll(context.WithoutCancel(ctx), entries)
	s.audit.Record(ctx, actor, model.ActionEmptyTrash, s.cfg.Prefix, len(result.Errors) == 0, purgeDetail(result))
	return result, nil
}

// PurgeExpired removes every entry whose retention has run out.
func (s *TrashService) PurgeExpired(ctx context.Context, actor model.Actor) (model.PurgeResult, error) {
	if !actor.IsSuperuser {
		return model.PurgeResult{Errors: []string{}}, model.ErrForbidden
	}

	entries, err := s.entries.ListExpired(ctx, s.now().UTC())
	if err != nil {
		return model.PurgeResult{Errors: []string{}}, err
	}
	if len(entries) == 0 {
		return model.PurgeResult{Errors: []string{}}, nil
	}

	result := s.purgeAll(context.WithoutCancel(ctx), entries)
	s.audit.Record(ctx, actor, model.ActionPurgeExpired, s.cfg.Prefix, len(result.Errors) == 0, purgeDetail(result))
	return result, nil
}

func (s *TrashService) purgeAll(ctx context.Context, entries []model.TrashEntry) model.PurgeResult {
	result := model.PurgeResult{Errors: []string{}}
	for _, entry := range entries {
		if err := s.purgeEntry(ctx, entry); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s (%s): %v", entry.OriginalPath, entry.ID, err))
			continue
		}
		countPurged(&result, entry)
	}

	s.metrics.TrashPurged(string(model.KindFile), result.PurgedFiles)
	s.metrics.TrashPurged(string(model.KindFolder), result.PurgedFolders)
	return result
}

// purgeEntry deletes the trash objects first and the ledger row last, so a
// failure never leaves objects without a row pointing at them.
func (s *TrashService) purgeEntry(ctx context.Context, entry model.TrashEntry) error {
	if entry.Kind == model.KindFile {
		if err := s.store.Remove(ctx, entry.TrashPath); err != nil && !isNotFound(err) {
			return err
		}
	} else {
		objects, err := s.transfer.enumerate(ctx, entry.TrashPath)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(objects))
		for _, object := range objects {
			keys = append(keys, object.Key)
		}
		if err := s.transfer.removeAll(ctx, keys); err != nil {
			return err
		}
	}

	if err := s.entries.Delete(ctx, entry.ID); err != nil && !errors.Is(err, model.ErrTrashEntryNotFound) {
		return err
	}
	return nil
}

func countPurged(result *model.PurgeResult, entry model.TrashEntry) {
	if entry.Kind == model.KindFolder {
		result.PurgedFolders++
		return
	}
	result.PurgedFiles++
}

func reverse(pairs []keyPair) []keyPair {
	out := make([]keyPair, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, keyPair{src: pair.dst, dst: pair.src})
	}
	return out
}

func trashDetail(entry model.TrashEntry, err error) string {
	if err != nil {
		if entry.ID != "" {
			return fmt.Sprintf("trash %s: %v", entry.ID, err)
		}
		return err.Error()
	}
	return "trash " + entry.ID
}

func purgeDetail(result model.PurgeResult) string {
	detail := fmt.Sprintf("files=%d folders=%d", result.PurgedFiles, result.PurgedFolders)
	if len(result.Errors) > 0 {
		detail += fmt.Sprintf(" errors=%d", len(result.Errors))
	}
	return detail
}
