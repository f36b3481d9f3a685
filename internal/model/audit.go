package model

import "time"

type AuditAction string

const (
	ActionRead         AuditAction = "read"
	ActionUpload       AuditAction = "upload"
	ActionDownload     AuditAction = "download"
	ActionDelete       AuditAction = "delete"
	ActionDeleteFolder AuditAction = "delete_folder"
	ActionCreateFolder AuditAction = "create_folder"
	ActionMove         AuditAction = "move"
	ActionSearch       AuditAction = "search"
	ActionRestore      AuditAction = "restore"
	ActionPurge        AuditAction = "purge"
	ActionEmptyTrash   AuditAction = "empty_trash"
	ActionPurgeExpired AuditAction = "purge_expired"
	ActionBulkDownload AuditAction = "bulk_download"
	ActionGrantUpdate  AuditAction = "grant_update"
	ActionGrantDelete  AuditAction = "grant_delete"
	ActionUserCreate   AuditAction = "user_create"
	ActionLogin        AuditAction = "login"
	ActionAuditPrune   AuditAction = "audit_prune"
	ActionAuditQuery   AuditAction = "audit_query"
	ActionStats        AuditAction = "stats"
	ActionSuggest      AuditAction = "folder_suggest"
	ActionTrashList    AuditAction = "trash_list"
	ActionGrantList    AuditAction = "grant_list"
	ActionUserList     AuditAction = "user_list"
	ActionAdminAccess  AuditAction = "admin_access"
)

// AuditRecord is append-only. PrincipalID is nil when the acting user was
// anonymous or has since been deleted.
type AuditRecord struct {
	ID            int64       `json:"id"`
	PrincipalID   *string     `json:"principal_id"`
	Username      string      `json:"username,omitempty"`
	Action        AuditAction `json:"action"`
	Path          string      `json:"path"`
	OccurredAt    time.Time   `json:"occurred_at"`
	Success       bool        `json:"success"`
	ClientAddress string      `json:"client_address,omitempty"`
	Detail        string      `json:"detail,omitempty"`
}

type AuditQuery struct {
	Action      string
	PrincipalID string
	Path        string
	Success     *bool
	Page        int
	Limit       int
}

type AuditListData struct {
	Items []AuditRecord `json:"items"`
}
