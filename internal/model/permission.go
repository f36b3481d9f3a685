package model

import "time"

type Capability string

const (
	CapabilityRead   Capability = "read"
	CapabilityWrite  Capability = "write"
	CapabilityDelete Capability = "delete"
	CapabilityMove   Capability = "move"
)

// PermissionGrant is one row of the grant table: a principal's flags on
// exactly one folder path. Path "" denotes the bucket root.
type PermissionGrant struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Path        string    `json:"path"`
	CanRead     bool      `json:"can_read"`
	CanWrite    bool      `json:"can_write"`
	CanDelete   bool      `json:"can_delete"`
	CanMove     bool      `json:"can_move"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (g PermissionGrant) Allows(capability Capability) bool {
	switch capability {
	case CapabilityRead:
		return g.CanRead
	case CapabilityWrite:
		return g.CanWrite
	case CapabilityDelete:
		return g.CanDelete
	case CapabilityMove:
		return g.CanMove
	default:
		return false
	}
}
