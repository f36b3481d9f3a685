package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"s3-explorer/internal/config"
	"s3-explorer/internal/model"
	"s3-explorer/internal/storage"
)

const (
	defaultSuggestionLimit = 20
	maxSuggestionLimit     = 100
	suggestionScanLimit    = 50000
)

type BrowserConfig struct {
	TrashPrefix      string
	PresignTTL       time.Duration
	SearchMaxResults int
	MoveConcurrency  int
}

// BrowserService gives folder and file semantics to the flat key space.
// Every operation authorizes before it touches the store and records its
// outcome in the audit log.
type BrowserService struct {
	store    storage.ObjectStore
	perms    *PermissionService
	audit    *AuditService
	cfg      BrowserConfig
	ns       namespace
	transfer transfer
}

func NewBrowserService(store storage.ObjectStore, perms *PermissionService, audit *AuditService, cfg BrowserConfig) *BrowserService {
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = time.Hour
	}
	if cfg.SearchMaxResults <= 0 {
		cfg.SearchMaxResults = 500
	}

	return &BrowserService{
		store:    store,
		perms:    perms,
		audit:    audit,
		cfg:      cfg,
		ns:       newNamespace(cfg.TrashPrefix),
		transfer: newTransfer(store, cfg.MoveConcurrency),
	}
}

func (s *BrowserService) List(ctx context.Context, actor model.Actor, rawPath string) (model.ListResult, error) {
	path, err := storage.CleanKey(rawPath)
	if err != nil {
		return model.ListResult{}, err
	}

	result, err := s.list(ctx, actor, path)
	s.audit.RecordResult(ctx, actor, model.ActionRead, path, err)
	return result, err
}

func (s *BrowserService) list(ctx context.Context, actor model.Actor, path string) (model.ListResult, error) {
	if err := s.ns.guardRead(actor, path); err != nil {
		return model.ListResult{}, err
	}
	if err := s.perms.Require(ctx, actor.Principal, path, model.CapabilityRead); err != nil {
		return model.ListResult{}, err
	}

	prefix := storage.FolderKey(path)
	page, err := storage.ListAll(ctx, s.store, prefix, "/")
	if err != nil {
		return model.ListResult{}, err
	}

	result := model.ListResult{
		Path:        path,
		Directories: make([]model.DirectoryItem, 0, len(page.Prefixes)),
		Files:       make([]model.FileItem, 0, len(page.Objects)),
	}
	if path != "" {
		parent := storage.ParentKey(path)
		result.ParentPath = &parent
	}

	seen := make(map[string]struct{}, len(page.Prefixes))
	for _, common := range page.Prefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(common, prefix), "/")
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		dirPath := storage.JoinKey(path, name)
		if s.ns.hidden(actor, dirPath) {
			continue
		}
		seen[name] = struct{}{}
		result.Directories = append(result.Directories, model.DirectoryItem{Name: name, Path: dirPath})
	}

	for _, object := range page.Objects {
		if object.Key == prefix || strings.HasSuffix(object.Key, "/") {
			continue
		}
		if s.ns.hidden(actor, storage.NormalizeKey(object.Key)) {
			continue
		}
		name := strings.TrimPrefix(object.Key, prefix)
		result.Files = append(result.Files, model.FileItem{
			Name:         name,
			Path:         object.Key,
			Size:         object.Size,
			SizeHuman:    humanize.IBytes(uint64(max(object.Size, 0))),
			LastModified: object.LastModified,
		})
	}

	sort.Slice(result.Directories, func(i, j int) bool { return result.Directories[i].Name < result.Directories[j].Name })
	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Name < result.Files[j].Name })

	return result, nil
}

func (s *BrowserService) CreateFolder(ctx context.Context, actor model.Actor, rawPath string) (model.DirectoryItem, error) {
	path, err := storage.CleanKey(rawPath)
	if err != nil {
		return model.DirectoryItem{}, err
	}

	err = s.createFolder(ctx, actor, path)
	s.audit.RecordResult(ctx, actor, model.ActionCreateFolder, path, err)
	if err != nil {
		return model.DirectoryItem{}, err
	}

	return model.DirectoryItem{Name: storage.BaseName(path), Path: path}, nil
}

func (s *BrowserService) createFolder(ctx context.Context, actor model.Actor, path string) error {
	if path == "" {
		return model.Invalid("folder path is required")
	}
	if err := s.ns.guardWrite(actor, path); err != nil {
		return err
	}
	if err := s.perms.RequireParentOrSelf(ctx, actor.Principal, path, model.CapabilityWrite); err != nil {
		return err
	}

	for _, key := range []string{path, storage.FolderKey(path)} {
		exists, err := storage.Exists(ctx, s.store, key)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%q: %w", path, model.ErrAlreadyExists)
		}
	}

	_, err := s.store.Put(ctx, storage.FolderKey(path), strings.NewReader(""), 0, "application/x-directory")
	return err
}

// Upload streams body to destination, which names the object itself.
func (s *BrowserService) Upload(ctx context.Context, actor model.Actor, destination string, body io.Reader, size int64, contentType string) (model.FileItem, error) {
	path, err := storage.CleanKey(destination)
	if err != nil {
		return model.FileItem{}, err
	}

	object, err := s.upload(ctx, actor, path, body, size, contentType)
	detail := ""
	if err != nil {
		detail = err.Error()
	} else {
		detail = fmt.Sprintf("%d bytes", object.Size)
	}
	s.audit.Record(ctx, actor, model.ActionUpload, path, err == nil, detail)
	if err != nil {
		return model.FileItem{}, err
	}

	return model.FileItem{
		Name:         storage.BaseName(path),
		Path:         path,
		Size:         object.Size,
		SizeHuman:    humanize.IBytes(uint64(max(object.Size, 0))),
		LastModified: object.LastModified,
	}, nil
}

func (s *BrowserService) upload(ctx context.Context, actor model.Actor, path string, body io.Reader, size int64, contentType string) (model.Object, error) {
	if path == "" {
		return model.Object{}, model.Invalid("destination path is required")
	}
	if err := s.ns.guardWrite(actor, path); err != nil {
		return model.Object{}, err
	}
	if err := s.perms.Require(ctx, actor.Principal, storage.ParentKey(path), model.CapabilityWrite); err != nil {
		return model.Object{}, err
	}

	folderTaken, err := storage.Exists(ctx, s.store, storage.FolderKey(path))
	if err != nil {
		return model.Object{}, err
	}
	if folderTaken {
		return model.Object{}, fmt.Errorf("a folder named %q: %w", path, model.ErrAlreadyExists)
	}

	return s.store.Put(ctx, path, body, size, contentType)
}

// DownloadLink returns a presigned URL for a single file. A zero ttl uses
// the configured default; any ttl is clamped to what the store accepts.
func (s *BrowserService) DownloadLink(ctx context.Context, actor model.Actor, rawPath string, ttl time.Duration) (model.DownloadLink, error) {
	path, err := storage.CleanKey(rawPath)
	if err != nil {
		return model.DownloadLink{}, err
	}

	link, err := s.downloadLink(ctx, actor, rawPath, path, ttl)
	s.audit.RecordResult(ctx, actor, model.ActionDownload, path, err)
	return link, err
}

func (s *BrowserService) downloadLink(ctx context.Context, actor model.Actor, rawPath string, path string, ttl time.Duration) (model.DownloadLink, error) {
	if path == "" || strings.HasSuffix(strings.TrimSpace(rawPath), "/") {
		return model.DownloadLink{}, model.Invalid("folders cannot be downloaded directly")
	}
	if err := s.ns.guardRead(actor, path); err != nil {
		return model.DownloadLink{}, err
	}
	if err := s.perms.Require(ctx, actor.Principal, storage.ParentKey(path), model.CapabilityRead); err != nil {
		return model.DownloadLink{}, err
	}

	object, err := s.store.Stat(ctx, path)
	if err != nil {
		return model.DownloadLink{}, err
	}
	if object.IsFolder() {
		return model.DownloadLink{}, model.Invalid("folders cannot be downloaded directly")
	}

	if ttl <= 0 {
		ttl = s.cfg.PresignTTL
	}
	ttl = config.ClampPresignTTL(ttl)

	url, err := s.store.PresignGet(ctx, path, ttl)
	if err != nil {
		return model.DownloadLink{}, err
	}

	contentType := object.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return model.DownloadLink{
		Path:        path,
		URL:         url,
		ExpiresIn:   int64(ttl / time.Second),
		ExpiresAt:   time.Now().UTC().Add(ttl),
		Size:        object.Size,
		ContentType: contentType,
	}, nil
}

// Move relocates source into destinationFolder, keeping its base name. The
// store has no rename, so this is copy then delete and is not atomic: on
// failure the error says how far it got and nothing is rolled back.
func (s *BrowserService) Move(ctx context.Context, actor model.Actor, source string, destinationFolder string, isFolder bool) (model.MoveResult, error) {
	src, err := storage.CleanKey(source)
	if err != nil {
		return model.MoveResult{}, err
	}
	dest, err := storage.CleanKey(destinationFolder)
	if err != nil {
		return model.MoveResult{}, err
	}

	result, err := s.move(ctx, actor, src, dest, isFolder)
	detail := fmt.Sprintf("%s -> %s", src, storage.JoinKey(dest, storage.BaseName(src)))
	if err != nil {
		detail += ": " + err.Error()
	}
	s.audit.Record(ctx, actor, model.ActionMove, src, err == nil, detail)
	return result, err
}

func (s *BrowserService) move(ctx context.Context, actor model.Actor, src string, dest string, isFolder bool) (model.MoveResult, error) {
	if src == "" {
		return model.MoveResult{}, model.Invalid("source path is required")
	}
	if err := s.ns.guardWrite(actor, src); err != nil {
		return model.MoveResult{}, err
	}
	if err := s.ns.guardWrite(actor, dest); err != nil {
		return model.MoveResult{}, err
	}

	target := storage.JoinKey(dest, storage.BaseName(src))
	kind := model.KindFile
	if isFolder {
		kind = model.KindFolder
		if storage.IsWithin(src, dest) {
			return model.MoveResult{}, model.Invalid("cannot move a folder into itself or one of its descendants")
		}
	}
	if target == src {
		return model.MoveResult{}, model.Invalid("source is already in the destination folder")
	}

	movePath := storage.ParentKey(src)
	if isFolder {
		movePath = src
	}
	if err := s.perms.Require(ctx, actor.Principal, movePath, model.CapabilityMove); err != nil {
		return model.MoveResult{}, err
	}
	if err := s.perms.RequireParentOrSelf(ctx, actor.Principal, dest, model.CapabilityWrite); err != nil {
		return model.MoveResult{}, err
	}

	result := model.MoveResult{Source: src, Destination: target, Kind: kind}

	if !isFolder {
		if _, err := s.store.Stat(ctx, src); err != nil {
			return result, err
		}
		if err := s.store.Copy(ctx, src, target); err != nil {
			return result, err
		}
		if err := s.store.Remove(context.WithoutCancel(ctx), src); err != nil {
			return result, fmt.Errorf("copied to %q but source was not removed: %w", target, err)
		}
		result.Moved = 1
		return result, nil
	}

	objects, err := s.transfer.enumerate(ctx, src)
	if err != nil {
		return result, err
	}
	if len(objects) == 0 {
		return result, fmt.Errorf("folder %q: %w", src, model.ErrNotFound)
	}

	pairs := rebase(objects, src, target)
	copied, err := s.transfer.copyAll(ctx, pairs)
	result.Moved = copied
	if err != nil {
		return result, partialError("copy", copied, len(pairs), err)
	}

	removeCtx := context.WithoutCancel(ctx)
	if err := s.transfer.removeAll(removeCtx, sources(pairs)); err != nil {
		return result, fmt.Errorf("copied %d objects to %q but some sources remain: %w", copied, target, err)
	}
	if err := s.store.Remove(removeCtx, storage.FolderKey(src)); err != nil {
		return result, err
	}

	return result, nil
}

// Search walks everything under rawPath and matches names case-insensitively.
// Folders are reported whether or not they have a marker object.
func (s *BrowserService) Search(ctx context.Context, actor model.Actor, rawPath string, query string) (model.SearchResult, error) {
	path, err := storage.CleanKey(rawPath)
	if err != nil {
		return model.SearchResult{}, err
	}

	result, err := s.search(ctx, actor, path, strings.TrimSpace(query))
	detail := "q=" + query
	if err != nil {
		detail += ": " + err.Error()
	}
	s.audit.Record(ctx, actor, model.ActionSearch, path, err == nil, detail)
	return result, err
}

func (s *BrowserService) search(ctx context.Context, actor model.Actor, path string, query string) (model.SearchResult, error) {
	if query == "" {
		return model.SearchResult{}, model.Invalid("search query is required")
	}
	if err := s.ns.guardRead(actor, path); err != nil {
		return model.SearchResult{}, err
	}
	if err := s.perms.Require(ctx, actor.Principal, path, model.CapabilityRead); err != nil {
		return model.SearchResult{}, err
	}

	needle := strings.ToLower(query)
	result := model.SearchResult{Query: query, Path: path, Items: make([]model.SearchItem, 0)}
	folders := make(map[string]struct{})

	add := func(item model.SearchItem) error {
		if len(result.Items) >= s.cfg.SearchMaxResults {
			result.Truncated = true
			return storage.ErrStopWalk
		}
		result.Items = append(result.Items, item)
		return nil
	}

	err := s.store.Walk(ctx, storage.FolderKey(path), func(object model.Object) error {
		key := storage.NormalizeKey(object.Key)
		if key == path || s.ns.hidden(actor, key) {
			return nil
		}

		for _, folder := range folderChain(path, key, strings.HasSuffix(object.Key, "/")) {
			if _, seen := folders[folder]; seen {
				continue
			}
			folders[folder] = struct{}{}
			if strings.Contains(strings.ToLower(storage.BaseName(folder)), needle) {
				if err := add(model.SearchItem{Name: storage.BaseName(folder), Path: folder, Kind: model.KindFolder}); err != nil {
					return err
				}
			}
		}

		if strings.HasSuffix(object.Key, "/") {
			return nil
		}
		if strings.Contains(strings.ToLower(storage.BaseName(key)), needle) {
			return add(model.SearchItem{Name: storage.BaseName(key), Path: key, Kind: model.KindFile, Size: object.Size})
		}
		return nil
	})
	if err != nil {
		return model.SearchResult{}, err
	}

	return result, nil
}

// folderChain lists the folders strictly between root and key, plus key
// itself when it is a folder.
func folderChain(root string, key string, keyIsFolder bool) []string {
	chain := make([]string, 0)
	for _, ancestor := range storage.Ancestors(key) {
		if ancestor == key && !keyIsFolder {
			continue
		}
		if ancestor == root || !storage.IsWithin(root, ancestor) {
			break
		}
		chain = append(chain, ancestor)
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// FolderSuggestions offers readable folder paths for autocomplete. It scans
// the whole bucket and degrades to an empty list on any store error.
func (s *BrowserService) FolderSuggestions(ctx context.Context, actor model.Actor, query string, limit int) []string {
	folders, err := s.folderSuggestions(ctx, actor, query, limit)
	if err != nil {
		slog.Warn("folder suggestions unavailable", "error", err)
		s.audit.Record(ctx, actor, model.ActionSuggest, "", false, err.Error())
		return []string{}
	}

	s.audit.Record(ctx, actor, model.ActionSuggest, "", true, fmt.Sprintf("q=%q results=%d", query, len(folders)))
	return folders
}

func (s *BrowserService) folderSuggestions(ctx context.Context, actor model.Actor, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	limit = min(limit, maxSuggestionLimit)
	needle := strings.ToLower(strings.TrimSpace(query))

	candidates := make(map[string]struct{})
	scanned := 0
	err := s.store.Walk(ctx, "", func(object model.Object) error {
		scanned++
		if scanned > suggestionScanLimit {
			return storage.ErrStopWalk
		}

		key := storage.NormalizeKey(object.Key)
		for _, folder := range folderChain("", key, strings.HasSuffix(object.Key, "/")) {
			if s.ns.hidden(actor, folder) {
				continue
			}
			if needle == "" || strings.Contains(strings.ToLower(folder), needle) {
				candidates[folder] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(candidates))
	for folder := range candidates {
		paths = append(paths, folder)
	}
	sort.Strings(paths)

	readable, err := s.perms.Filter(ctx, actor.Principal, paths, model.CapabilityRead)
	if err != nil {
		return nil, err
	}

	if len(readable) > limit {
		readable = readable[:limit]
	}
	return readable, nil
}

func (s *BrowserService) Stats(ctx context.Context, actor model.Actor) (model.BucketStats, error) {
	stats, err := s.stats(ctx, actor)
	s.audit.RecordResult(ctx, actor, model.ActionStats, "", err)
	return stats, err
}

func (s *BrowserService) stats(ctx context.Context, actor model.Actor) (model.BucketStats, error) {
	if !actor.IsSuperuser {
		return model.BucketStats{}, model.ErrForbidden
	}

	stats := model.BucketStats{}
	folders := make(map[string]struct{})

	err := s.store.Walk(ctx, "", func(object model.Object) error {
		key := storage.NormalizeKey(object.Key)
		if s.ns.isTrash(key) {
			if !strings.HasSuffix(object.Key, "/") {
				stats.TrashObjects++
				stats.TrashSize += object.Size
			}
			return nil
		}

		for _, folder := range folderChain("", key, strings.HasSuffix(object.Key, "/")) {
			folders[folder] = struct{}{}
		}
		if strings.HasSuffix(object.Key, "/") {
			return nil
		}

		stats.Objects++
		stats.TotalSize += object.Size
		return nil
	})
	if err != nil {
		return model.BucketStats{}, err
	}

	stats.Folders = len(folders)
	stats.TotalSizeHuman = humanize.IBytes(uint64(max(stats.TotalSize, 0)))
	return stats, nil
}

// namespace keeps the trash area out of sight of everyone but superusers.
// Any path segment named like the trash directory is treated the same way,
// wherever it sits in the tree.
type namespace struct {
	trashPrefix string
	trashName   string
}

func newNamespace(trashPrefix string) namespace {
	trashPrefix = storage.NormalizeKey(trashPrefix)
	return namespace{trashPrefix: trashPrefix, trashName: storage.BaseName(trashPrefix)}
}

// isTrash reports whether key lies in the managed trash area.
func (n namespace) isTrash(key string) bool {
	return n.trashPrefix != "" && key != "" && storage.IsWithin(n.trashPrefix, key)
}

func (n namespace) concealed(key string) bool {
	if n.isTrash(key) {
		return true
	}
	if n.trashName == "" {
		return false
	}
	for _, segment := range strings.Split(storage.NormalizeKey(key), "/") {
		if segment == n.trashName {
			return true
		}
	}
	return false
}

func (n namespace) hidden(actor model.Actor, key string) bool {
	return !actor.IsSuperuser && n.concealed(key)
}

func (n namespace) guardRead(actor model.Actor, key string) error {
	if n.hidden(actor, key) {
		return model.ErrForbidden
	}
	return nil
}

// guardWrite rejects direct writes into the trash area. Superusers get a
// validation error since they can see the area exists.
func (n namespace) guardWrite(actor model.Actor, key string) error {
	if n.hidden(actor, key) {
		return model.ErrForbidden
	}
	if n.isTrash(key) {
		return model.Invalid("the trash area is managed through the trash endpoints")
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}
