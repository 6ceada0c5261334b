package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mediastore/internal/signature"
	"mediastore/internal/slug"
	"mediastore/internal/storage"
	"mediastore/internal/validation"
)

// 分页参数的默认值与硬上限。
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// StorageService 编排校验、命名、路径解析与磁盘读写，
// 实现上传、删除、分页列表、元数据查询、占用汇总和头像槽位。
type StorageService struct {
	store  *storage.Store
	logger *logrus.Logger
}

func NewStorageService(store *storage.Store, logger *logrus.Logger) *StorageService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StorageService{store: store, logger: logger}
}

// UploadRequest 描述一次上传的输入，只消费一次，不持久化。
type UploadRequest struct {
	Data         []byte
	OriginalName string
	MimeType     string
	Size         int64
	// Folder 非空时覆盖按 MIME 类型的类别推断
	Folder storage.Folder
}

// Upload 校验并持久化一个文件。任何校验失败都发生在磁盘写入之前。
func (s *StorageService) Upload(ctx context.Context, req UploadRequest) (*storage.StorageFile, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("storage service not initialized")
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	folder, err := validation.Validate(req.MimeType, req.Size, req.Data, req.Folder)
	if err != nil {
		s.recordRejection(err, req)
		return nil, err
	}

	ext, ok := signature.ExtensionByMime(req.MimeType)
	if !ok {
		// Validate 已经确认过白名单，走到这里说明目录表不一致
		return nil, storage.NewError(storage.KindInvalidMimeType, "mime_type", req.MimeType)
	}

	sanitized := slug.Sanitize(req.OriginalName)
	base := slug.Slugify(strings.TrimSuffix(sanitized, filepath.Ext(sanitized)))
	desired := base + ext

	final, err := s.store.WriteUnique(folder, desired, req.Data)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"folder":   folder,
			"filename": desired,
			"error":    err,
		}).Error("file write failed")
		return nil, err
	}

	file := &storage.StorageFile{
		ID:           strings.TrimSuffix(final, ext),
		Filename:     final,
		OriginalName: sanitized,
		MimeType:     req.MimeType,
		Size:         req.Size,
		Folder:       folder,
		URL:          s.store.FileURL(folder, final),
		CreatedAt:    time.Now().UTC(),
	}

	uploadsTotal.WithLabelValues(string(folder)).Inc()
	s.logger.WithFields(logrus.Fields{
		"folder":    folder,
		"filename":  final,
		"original":  sanitized,
		"mime_type": req.MimeType,
		"size":      req.Size,
	}).Info("file stored")

	return file, nil
}

// Delete 删除一个文件，目标不存在时返回 file_not_found。没有软删除。
func (s *StorageService) Delete(ctx context.Context, folder storage.Folder, filename string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	if err := s.store.Remove(folder, filename); err != nil {
		return err
	}

	deletesTotal.WithLabelValues(string(folder)).Inc()
	s.logger.WithFields(logrus.Fields{
		"folder":   folder,
		"filename": filename,
	}).Info("file deleted")
	return nil
}

// List 返回类别目录的一页文件元数据，按创建时间排序。
// 越界的页码得到空切片而不是错误。
func (s *StorageService) List(ctx context.Context, folder storage.Folder, page, limit int, order storage.SortOrder) (*storage.ListResult, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if order != storage.SortDesc {
		order = storage.SortAsc
	}

	files, err := s.store.ReadFolder(folder)
	if err != nil {
		return nil, err
	}
	storage.SortByCreatedAt(files, order)

	total := len(files)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &storage.ListResult{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		Files:      files[start:end],
	}, nil
}

// Exists 探测文件是否存在。
func (s *StorageService) Exists(ctx context.Context, folder storage.Folder, filename string) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	return s.store.Exists(folder, filename)
}

// GetMetadata 返回单个文件的元数据。
func (s *StorageService) GetMetadata(ctx context.Context, folder storage.Folder, filename string) (storage.FileMetadata, error) {
	if err := ctxErr(ctx); err != nil {
		return storage.FileMetadata{}, err
	}
	return s.store.Stat(folder, filename)
}

// GetUsage 汇总类别目录的文件数量与总体积。
// 全量扫描的 O(n) 聚合，只用于低频的管理端摘要。
func (s *StorageService) GetUsage(ctx context.Context, folder storage.Folder) (storage.Usage, error) {
	if err := ctxErr(ctx); err != nil {
		return storage.Usage{}, err
	}

	files, err := s.store.ReadFolder(folder)
	if err != nil {
		return storage.Usage{}, err
	}

	usage := storage.Usage{Count: len(files)}
	for _, f := range files {
		usage.TotalSize += f.Size
	}
	return usage, nil
}

// ResolvePath 返回文件的落盘绝对路径，供文件服务路由读盘使用。
func (s *StorageService) ResolvePath(folder storage.Folder, filename string) (string, error) {
	return s.store.FilePath(folder, filename)
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (s *StorageService) recordRejection(err error, req UploadRequest) {
	kind := storage.KindOf(err)
	uploadRejectionsTotal.WithLabelValues(string(kind)).Inc()

	fields := logrus.Fields{
		"mime_type": req.MimeType,
		"size":      req.Size,
		"original":  slug.Sanitize(req.OriginalName),
		"reason":    kind,
	}
	if kind == storage.KindMimeMismatch {
		// 声明类型与实际字节不符按伪装企图对待，提升到 warn
		s.logger.WithFields(fields).Warn("upload rejected: declared mime does not match content")
		return
	}
	s.logger.WithFields(fields).Info("upload rejected")
}
