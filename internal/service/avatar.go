package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"mediastore/internal/signature"
	"mediastore/internal/storage"
	"mediastore/internal/validation"
)

// UploadUserAvatar 上传用户头像。头像只接受图片类型，且每个用户
// 至多保留一个文件：写入新文件之前先清掉该用户已有的 avatar.* 条目。
// 单槽位不变量由服务层保证，存储层没有索引可以声明式地约束它。
func (s *StorageService) UploadUserAvatar(ctx context.Context, userID string, data []byte, mimeType string, size int64) (*storage.AvatarInfo, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	if err := validation.ValidateImage(mimeType, size, data); err != nil {
		s.recordRejection(err, UploadRequest{OriginalName: "avatar", MimeType: mimeType, Size: size})
		return nil, err
	}

	ext, ok := signature.ExtensionByMime(mimeType)
	if !ok {
		return nil, storage.NewError(storage.KindInvalidMimeType, "mime_type", mimeType)
	}
	filename := "avatar" + ext

	// 清理旧槽位是尽力而为：目录不存在不是错误
	removed, err := s.store.RemoveAvatars(userID)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"removed": removed,
		}).Debug("previous avatar files removed")
	}

	if err := s.store.WriteAvatar(userID, filename, data); err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("avatar write failed")
		return nil, err
	}

	uploadsTotal.WithLabelValues(string(storage.FolderAvatars)).Inc()
	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"filename":  filename,
		"mime_type": mimeType,
		"size":      size,
	}).Info("avatar stored")

	return &storage.AvatarInfo{
		URL:      s.store.AvatarURL(userID, filename),
		Filename: filename,
	}, nil
}

// DeleteUserAvatar 删除用户的头像，不存在时返回 file_not_found。
func (s *StorageService) DeleteUserAvatar(ctx context.Context, userID string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	removed, err := s.store.RemoveAvatars(userID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return storage.NewError(storage.KindFileNotFound, "user_id", userID)
	}

	deletesTotal.WithLabelValues(string(storage.FolderAvatars)).Inc()
	s.logger.WithField("user_id", userID).Info("avatar deleted")
	return nil
}

// GetUserAvatarURL 返回用户头像的访问 URL。
// 未设置头像是正常状态，返回空串而不是错误。
func (s *StorageService) GetUserAvatarURL(ctx context.Context, userID string) (string, error) {
	if err := ctxErr(ctx); err != nil {
		return "", err
	}

	names, err := s.store.AvatarFiles(userID)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}

	// 写入端保证单槽位，这里按字典序取第一个以保持确定性
	return s.store.AvatarURL(userID, names[0]), nil
}

// ResolveAvatarPath 返回头像文件的落盘绝对路径，供文件服务路由读盘使用。
func (s *StorageService) ResolveAvatarPath(userID, filename string) (string, error) {
	return s.store.AvatarPath(userID, filename)
}

// GetAvatarMetadata 返回头像文件的元数据。
func (s *StorageService) GetAvatarMetadata(ctx context.Context, userID, filename string) (storage.FileMetadata, error) {
	if err := ctxErr(ctx); err != nil {
		return storage.FileMetadata{}, err
	}
	return s.store.StatAvatar(userID, filename)
}
