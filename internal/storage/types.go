package storage

import "time"

// StorageFile 描述一次成功上传的结果，返回后不再变更，
// 此后以磁盘上的文件本体为准。
type StorageFile struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Folder       Folder    `json:"folder"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
}

// FileMetadata 由每次调用时的 stat 现场推导，没有缓存索引，
// MIME 类型按存储扩展名重新推导而不信任上传时的声明。
type FileMetadata struct {
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	Folder     Folder    `json:"folder"`
	URL        string    `json:"url"`
	ModifiedAt time.Time `json:"modified_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// SortOrder 控制列表按创建时间的排序方向。
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListResult 是一页列表结果。
type ListResult struct {
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
	Files      []FileMetadata `json:"files"`
}

// Usage 是某个类别的占用汇总。
type Usage struct {
	Count     int   `json:"count"`
	TotalSize int64 `json:"total_size"`
}

// AvatarInfo 是头像上传的返回值。
type AvatarInfo struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}
