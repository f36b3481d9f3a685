package model

import "time"

// TrashEntry is the ledger row for one soft-deleted file or folder. The row
// only exists while the object sits in the trash namespace.
type TrashEntry struct {
	ID           string     `json:"id"`
	OriginalPath string     `json:"original_path"`
	TrashPath    string     `json:"trash_path"`
	Kind         ObjectKind `json:"kind"`
	DeletedBy    *string    `json:"deleted_by"`
	DeletedAt    time.Time  `json:"deleted_at"`
	Size         int64      `json:"size"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

func (e TrashEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

type RestoreResult struct {
	ID           string     `json:"id"`
	OriginalPath string     `json:"original_path"`
	RestoredPath string     `json:"restored_path"`
	Kind         ObjectKind `json:"kind"`
	Objects      int        `json:"objects"`
}

type PurgeResult struct {
	PurgedFiles   int      `json:"purged_files"`
	PurgedFolders int      `json:"purged_folders"`
	Errors        []string `json:"errors"`
}
