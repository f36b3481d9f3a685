package model

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	IsSuperuser bool   `json:"is_superuser"`
}

type CreateFolderRequest struct {
	Path string `json:"path"`
}

type MoveRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	IsFolder    bool   `json:"is_folder"`
}

type BulkRequest struct {
	Files       []string `json:"files"`
	Folders     []string `json:"folders"`
	Destination string   `json:"destination,omitempty"`
}

type GrantRequest struct {
	Path      string `json:"path"`
	CanRead   bool   `json:"can_read"`
	CanWrite  bool   `json:"can_write"`
	CanDelete bool   `json:"can_delete"`
	CanMove   bool   `json:"can_move"`
}

type BulkDeleteResult struct {
	DeletedFiles   int      `json:"deleted_files"`
	DeletedFolders int      `json:"deleted_folders"`
	Errors         []string `json:"errors"`
}

type BulkMoveResult struct {
	MovedFiles   int      `json:"moved_files"`
	MovedFolders int      `json:"moved_folders"`
	Errors       []string `json:"errors"`
}
