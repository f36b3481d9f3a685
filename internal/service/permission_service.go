package service

import (
	"context"
	"fmt"
	"log/slog"

	"s3-explorer/internal/metrics"
	"s3-explorer/internal/model"
	"s3-explorer/internal/repository"
	"s3-explorer/internal/storage"
)

// PermissionService resolves capabilities against the grant table. A grant
// on a folder applies to everything beneath it unless a nearer row grants
// the capability first; rows that lack the capability never stop the walk.
type PermissionService struct {
	grants  repository.GrantStore
	users   repository.UserStore
	audit   *AuditService
	metrics *metrics.Metrics
}

func NewPermissionService(grants repository.GrantStore, users repository.UserStore, audit *AuditService, m *metrics.Metrics) *PermissionService {
	return &PermissionService{grants: grants, users: users, audit: audit, metrics: m}
}

func (s *PermissionService) Authorize(ctx context.Context, principal model.Principal, path string, capability model.Capability) (bool, error) {
	if !principal.IsAuthenticated {
		return false, nil
	}
	if principal.IsSuperuser {
		return true, nil
	}

	table, err := s.grantTable(ctx, principal.ID)
	if err != nil {
		return false, err
	}

	return resolve(table, path, capability), nil
}

// AuthorizeParentOrSelf grants when the principal holds capability on the
// parent of path or, failing that, on path itself.
func (s *PermissionService) AuthorizeParentOrSelf(ctx context.Context, principal model.Principal, path string, capability model.Capability) (bool, error) {
	if !principal.IsAuthenticated {
		return false, nil
	}
	if principal.IsSuperuser {
		return true, nil
	}

	table, err := s.grantTable(ctx, principal.ID)
	if err != nil {
		return false, err
	}

	path = storage.NormalizeKey(path)
	if resolve(table, storage.ParentKey(path), capability) {
		return true, nil
	}
	return resolve(table, path, capability), nil
}

// Require is Authorize that turns a denial into ErrForbidden. Record store
// failures also deny.
func (s *PermissionService) Require(ctx context.Context, principal model.Principal, path string, capability model.Capability) error {
	allowed, err := s.Authorize(ctx, principal, path, capability)
	return s.decide(principal, path, capability, allowed, err)
}

func (s *PermissionService) RequireParentOrSelf(ctx context.Context, principal model.Principal, path string, capability model.Capability) error {
	allowed, err := s.AuthorizeParentOrSelf(ctx, principal, path, capability)
	return s.decide(principal, path, capability, allowed, err)
}

func (s *PermissionService) decide(principal model.Principal, path string, capability model.Capability, allowed bool, err error) error {
	if err != nil {
		slog.Warn("permission lookup failed", "principal", principal.Username, "path", path, "error", err)
		return fmt.Errorf("%w: %v", model.ErrForbidden, err)
	}
	if !allowed {
		s.metrics.PermissionDenied(string(capability))
		slog.Debug("permission denied", "principal", principal.Username, "path", path, "capability", capability)
		return model.ErrForbidden
	}
	return nil
}

// Filter returns the subset of paths on which the principal holds capability,
// loading the grant table once.
func (s *PermissionService) Filter(ctx context.Context, principal model.Principal, paths []string, capability model.Capability) ([]string, error) {
	if !principal.IsAuthenticated {
		return []string{}, nil
	}
	if principal.IsSuperuser {
		return paths, nil
	}

	table, err := s.grantTable(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if resolve(table, path, capability) {
			out = append(out, path)
		}
	}
	return out, nil
}

func (s *PermissionService) grantTable(ctx context.Context, principalID string) (map[string]model.PermissionGrant, error) {
	grants, err := s.grants.ListByPrincipal(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("load grants: %w", err)
	}

	table := make(map[string]model.PermissionGrant, len(grants))
	for _, grant := range grants {
		table[storage.NormalizeKey(grant.Path)] = grant
	}
	return table, nil
}

// resolve walks from path to the root, nearest row first.
func resolve(table map[string]model.PermissionGrant, path string, capability model.Capability) bool {
	cursor := storage.NormalizeKey(path)
	for {
		if grant, ok := table[cursor]; ok && grant.Allows(capability) {
			return true
		}
		if cursor == "" {
			return false
		}

		parent := storage.ParentKey(cursor)
		if parent == cursor {
			return false
		}
		cursor = parent
	}
}

func (s *PermissionService) ListGrants(ctx context.Context, actor model.Actor, principalID string) ([]model.PermissionGrant, error) {
	grants, err := s.listGrants(ctx, actor, principalID)
	s.audit.RecordResult(ctx, actor, model.ActionGrantList, "", err)
	return grants, err
}

func (s *PermissionService) listGrants(ctx context.Context, actor model.Actor, principalID string) ([]model.PermissionGrant, error) {
	if !actor.IsSuperuser {
		return nil, model.ErrForbidden
	}
	if _, err := s.users.FindByID(ctx, principalID); err != nil {
		return nil, err
	}

	return s.grants.ListByPrincipal(ctx, principalID)
}

func (s *PermissionService) UpsertGrant(ctx context.Context, actor model.Actor, principalID string, req model.GrantRequest) (model.PermissionGrant, error) {
	if !actor.IsSuperuser {
		s.audit.Record(ctx, actor, model.ActionGrantUpdate, req.Path, false, model.ErrForbidden.Error())
		return model.PermissionGrant{}, model.ErrForbidden
	}

	path, err := storage.CleanKey(req.Path)
	if err != nil {
		return model.PermissionGrant{}, err
	}
	if _, err := s.users.FindByID(ctx, principalID); err != nil {
		return model.PermissionGrant{}, err
	}

	grant, err := s.grants.Upsert(ctx, model.PermissionGrant{
		PrincipalID: principalID,
		Path:        path,
		CanRead:     req.CanRead,
		CanWrite:    req.CanWrite,
		CanDelete:   req.CanDelete,
		CanMove:     req.CanMove,
	})
	s.audit.RecordResult(ctx, actor, model.ActionGrantUpdate, path, err)
	if err != nil {
		return model.PermissionGrant{}, err
	}

	return grant, nil
}

func (s *PermissionService) DeleteGrant(ctx context.Context, actor model.Actor, principalID string, path string) error {
	if !actor.IsSuperuser {
		s.audit.Record(ctx, actor, model.ActionGrantDelete, path, false, model.ErrForbidden.Error())
		return model.ErrForbidden
	}

	path, err := storage.CleanKey(path)
	if err != nil {
		return err
	}

	err = s.grants.Delete(ctx, principalID, path)
	s.audit.RecordResult(ctx, actor, model.ActionGrantDelete, path, err)
	return err
}
