package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"s3-explorer/internal/model"
)

// In-memory record stores used when DATABASE_URL is empty and in tests.

type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]model.User)}
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, strings.TrimSpace(username)) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *MemoryUserStore) Create(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, user.Username) {
			return model.ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.ID] = user
	return nil
}

func (s *MemoryUserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *MemoryUserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.users), nil
}

type MemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[string]map[string]model.PermissionGrant
}

func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{grants: make(map[string]map[string]model.PermissionGrant)}
}

func (s *MemoryGrantStore) ListByPrincipal(_ context.Context, principalID string) ([]model.PermissionGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.grants[principalID]
	grants := make([]model.PermissionGrant, 0, len(rows))
	for _, g := range rows {
		grants = append(grants, g)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Path < grants[j].Path })
	return grants, nil
}

func (s *MemoryGrantStore) Upsert(_ context.Context, grant model.PermissionGrant) (model.PermissionGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.grants[grant.PrincipalID]
	if !ok {
		rows = make(map[string]model.PermissionGrant)
		s.grants[grant.PrincipalID] = rows
	}

	now := time.Now().UTC()
	if existing, ok := rows[grant.Path]; ok {
		grant.ID = existing.ID
		grant.CreatedAt = existing.CreatedAt
	} else {
		grant.ID = uuid.NewString()
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now
	rows[grant.Path] = grant

	return grant, nil
}

func (s *MemoryGrantStore) Delete(_ context.Context, principalID string, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.grants[principalID][path]; !ok {
		return model.ErrGrantNotFound
	}
	delete(s.grants[principalID], path)
	return nil
}

type MemoryAuditStore struct {
	mu      sync.RWMutex
	nextID  int64
	records []model.AuditRecord
}

func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (s *MemoryAuditStore) Insert(_ context.Context, record model.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	record.ID = s.nextID
	s.records = append(s.records, record)
	return nil
}

// Query filters like the SQL store and returns newest first.
func (s *MemoryAuditStore) Query(_ context.Context, query model.AuditQuery) ([]model.AuditRecord, model.Meta, error) {
	query = normalizeAuditQuery(query)

	s.mu.RLock()
	matched := make([]model.AuditRecord, 0)
	for _, rec := range s.records {
		if query.Action != "" && !strings.EqualFold(string(rec.Action), query.Action) {
			continue
		}
		if query.PrincipalID != "" && (rec.PrincipalID == nil || *rec.PrincipalID != query.PrincipalID) {
			continue
		}
		if query.Success != nil && rec.Success != *query.Success {
			continue
		}
		if query.Path != "" && !strings.Contains(strings.ToLower(rec.Path), strings.ToLower(query.Path)) {
			continue
		}
		matched = append(matched, rec)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	meta := model.NewMeta(query.Page, query.Limit, len(matched))
	start := (query.Page - 1) * query.Limit
	if start >= len(matched) {
		return []model.AuditRecord{}, meta, nil
	}
	end := min(start+query.Limit, len(matched))

	return matched[start:end], meta, nil
}

func (s *MemoryAuditStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var removed int64
	for _, rec := range s.records {
		if rec.OccurredAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return removed, nil
}

type MemoryTrashStore struct {
	mu      sync.RWMutex
	entries map[string]model.TrashEntry
}

func NewMemoryTrashStore() *MemoryTrashStore {
	return &MemoryTrashStore{entries: make(map[string]model.TrashEntry)}
}

func (s *MemoryTrashStore) Create(_ context.Context, entry model.TrashEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.ID] = entry
	return nil
}

func (s *MemoryTrashStore) FindByID(_ context.Context, id string) (model.TrashEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return model.TrashEntry{}, model.ErrTrashEntryNotFound
	}
	return entry, nil
}

func (s *MemoryTrashStore) List(_ context.Context) ([]model.TrashEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.TrashEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].DeletedAt.After(entries[j].DeletedAt) })
	return entries, nil
}

func (s *MemoryTrashStore) ListExpired(ctx context.Context, now time.Time) ([]model.TrashEntry, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	expired := make([]model.TrashEntry, 0)
	for _, e := range all {
		if e.Expired(now) {
			expired = append(expired, e)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	return expired, nil
}

func (s *MemoryTrashStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return model.ErrTrashEntryNotFound
	}
	delete(s.entries, id)
	return nil
}
