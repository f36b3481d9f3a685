package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"s3-explorer/internal/model"
	"s3-explorer/internal/storage"
	"s3-explorer/internal/util"
)

const bulkErrorsEntry = "ERRORS.txt"

// BulkService applies single item operations to a list of paths. One item
// failing never stops the rest; failures come back as messages.
type BulkService struct {
	browser *BrowserService
	trash   *TrashService
	store   storage.ObjectStore
	perms   *PermissionService
	audit   *AuditService
	ns      namespace
}

func NewBulkService(browser *BrowserService, trash *TrashService, store storage.ObjectStore, perms *PermissionService, audit *AuditService, trashPrefix string) *BulkService {
	return &BulkService{
		browser: browser,
		trash:   trash,
		store:   store,
		perms:   perms,
		audit:   audit,
		ns:      newNamespace(trashPrefix),
	}
}

func (s *BulkService) BulkDelete(ctx context.Context, actor model.Actor, files []string, folders []string) model.BulkDeleteResult {
	result := model.BulkDeleteResult{Errors: []string{}}

	for _, file := range files {
		if _, err := s.trash.DeleteFile(ctx, actor, file); err != nil {
			result.Errors = append(result.Errors, itemError("file", file, err))
			continue
		}
		result.DeletedFiles++
	}

	for _, folder := range folders {
		if _, err := s.trash.DeleteFolder(ctx, actor, folder); err != nil {
			result.Errors = append(result.Errors, itemError("folder", folder, err))
			continue
		}
		result.DeletedFolders++
	}

	return result
}

func (s *BulkService) BulkMove(ctx context.Context, actor model.Actor, files []string, folders []string, destination string) model.BulkMoveResult {
	result := model.BulkMoveResult{Errors: []string{}}
	dest := storage.NormalizeKey(destination)

	for _, file := range files {
		if _, err := s.browser.Move(ctx, actor, file, destination, false); err != nil {
			result.Errors = append(result.Errors, itemError("file", file, err))
			continue
		}
		result.MovedFiles++
	}

	for _, folder := range folders {
		if storage.IsWithin(storage.NormalizeKey(folder), dest) {
			result.Errors = append(result.Errors, itemError("folder", folder, model.Invalid("cannot move a folder into itself or one of its descendants")))
			continue
		}
		if _, err := s.browser.Move(ctx, actor, folder, destination, true); err != nil {
			result.Errors = append(result.Errors, itemError("folder", folder, err))
			continue
		}
		result.MovedFolders++
	}

	return result
}

// BulkDownload streams a zip of every readable item to w. Items that cannot
// be read are listed in an ERRORS.txt entry instead of failing the archive.
// The returned error only reports failures writing the archive itself.
func (s *BulkService) BulkDownload(ctx context.Context, actor model.Actor, files []string, folders []string, w io.Writer) error {
	archive := util.NewZipStream(w)
	failures := make([]string, 0)
	added := 0

	for _, raw := range files {
		count, err := s.addFile(ctx, actor, archive, raw)
		added += count
		if err != nil {
			if isWriteError(err) {
				return err
			}
			failures = append(failures, itemError("file", raw, err))
		}
	}

	for _, raw := range folders {
		count, errs, err := s.addFolder(ctx, actor, archive, raw)
		added += count
		failures = append(failures, errs...)
		if err != nil {
			if isWriteError(err) {
				return err
			}
			failures = append(failures, itemError("folder", raw, err))
		}
	}

	if err := archive.AddErrors(bulkErrorsEntry, failures); err != nil {
		return err
	}

	s.audit.Record(ctx, actor, model.ActionBulkDownload, "", len(failures) == 0,
		fmt.Sprintf("files=%d folders=%d added=%d errors=%d", len(files), len(folders), added, len(failures)))

	return archive.Close()
}

func (s *BulkService) addFile(ctx context.Context, actor model.Actor, archive *util.ZipStream, raw string) (int, error) {
	path, err := storage.CleanKey(raw)
	if err != nil {
		return 0, err
	}
	if path == "" {
		return 0, model.Invalid("file path is required")
	}
	if err := s.ns.guardRead(actor, path); err != nil {
		return 0, err
	}
	if err := s.perms.Require(ctx, actor.Principal, storage.ParentKey(path), model.CapabilityRead); err != nil {
		return 0, err
	}

	body, object, err := s.store.Get(ctx, path)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	if _, err := archive.AddFile(storage.BaseName(path), body, object.LastModified); err != nil {
		return 0, writeError{err}
	}
	return 1, nil
}

func (s *BulkService) addFolder(ctx context.Context, actor model.Actor, archive *util.ZipStream, raw string) (int, []string, error) {
	path, err := storage.CleanKey(raw)
	if err != nil {
		return 0, nil, err
	}
	if err := s.ns.guardRead(actor, path); err != nil {
		return 0, nil, err
	}
	if err := s.perms.Require(ctx, actor.Principal, path, model.CapabilityRead); err != nil {
		return 0, nil, err
	}

	root := storage.BaseName(path)
	if root == "" {
		root = s.store.Bucket()
	}
	prefix := storage.FolderKey(path)

	added := 0
	failures := make([]string, 0)
	err = s.store.Walk(ctx, prefix, func(object model.Object) error {
		rel := strings.TrimPrefix(object.Key, prefix)
		if s.ns.hidden(actor, storage.NormalizeKey(object.Key)) {
			return nil
		}
		if strings.HasSuffix(object.Key, "/") {
			if err := archive.AddDirectory(root + "/" + rel); err != nil {
				return writeError{err}
			}
			return nil
		}

		body, info, err := s.store.Get(ctx, object.Key)
		if err != nil {
			failures = append(failures, itemError("file", object.Key, err))
			return nil
		}
		defer body.Close()

		if _, err := archive.AddFile(root+"/"+rel, body, info.LastModified); err != nil {
			return writeError{err}
		}
		added++
		return nil
	})

	return added, failures, err
}

// writeError marks a failure writing to the client, which ends the archive.
type writeError struct {
	err error
}

func (e writeError) Error() string { return e.err.Error() }
func (e writeError) Unwrap() error { return e.err }

func isWriteError(err error) bool {
	var target writeError
	return errors.As(err, &target)
}

func itemError(kind string, path string, err error) string {
	return fmt.Sprintf("%s %s: %s", kind, path, publicMessage(err))
}
