package model

import "time"

type ObjectKind string

const (
	KindFile   ObjectKind = "file"
	KindFolder ObjectKind = "folder"
)

// Object is a store entry classified once at the gateway boundary.
type Object struct {
	Key          string     `json:"key"`
	Kind         ObjectKind `json:"kind"`
	Size         int64      `json:"size"`
	ContentType  string     `json:"content_type,omitempty"`
	ETag         string     `json:"etag,omitempty"`
	LastModified time.Time  `json:"last_modified"`
}

func (o Object) IsFolder() bool {
	return o.Kind == KindFolder
}

type DirectoryItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type FileItem struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	SizeHuman    string    `json:"size_human"`
	LastModified time.Time `json:"last_modified"`
}

type ListResult struct {
	Path        string          `json:"path"`
	ParentPath  *string         `json:"parent_path"`
	Directories []DirectoryItem `json:"directories"`
	Files       []FileItem      `json:"files"`
}

type DownloadLink struct {
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
}

type MoveResult struct {
	Source      string     `json:"source"`
	Destination string     `json:"destination"`
	Kind        ObjectKind `json:"kind"`
	Moved       int        `json:"moved"`
}

type SearchItem struct {
	Name string     `json:"name"`
	Path string     `json:"path"`
	Kind ObjectKind `json:"kind"`
	Size int64      `json:"size,omitempty"`
}

type SearchResult struct {
	Query     string       `json:"query"`
	Path      string       `json:"path"`
	Items     []SearchItem `json:"items"`
	Truncated bool         `json:"truncated"`
}

type BucketStats struct {
	Objects        int    `json:"objects"`
	Folders        int    `json:"folders"`
	TotalSize      int64  `json:"total_size"`
	TotalSizeHuman string `json:"total_size_human"`
	TrashObjects   int    `json:"trash_objects"`
	TrashSize      int64  `json:"trash_size"`
}

type UploadFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type UploadResult struct {
	Uploaded []FileItem      `json:"uploaded"`
	Failed   []UploadFailure `json:"failed"`
}
