package storage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// avatarBase 是头像文件的固定主干名，每个用户目录下至多存在一个 avatar.* 文件。
const avatarBase = "avatar"

// WriteAvatar 把头像写入用户子目录下的固定槽位。
// 槽位文件是唯一允许被替换的存储对象，因此用截断写而不是独占创建。
func (s *Store) WriteAvatar(userID, filename string, data []byte) error {
	if err := s.Initialize(); err != nil {
		return err
	}

	dir, err := s.AvatarDir(userID)
	if err != nil {
		return err
	}
	path, err := s.AvatarPath(userID, filename)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WrapStorage("mkdir", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return WrapStorage("write", err)
	}
	return nil
}

// AvatarFiles 列出用户目录下的 avatar.* 文件名，按字典序返回。
// 目录不存在是"未设置头像"的正常状态，返回空结果。
func (s *Store) AvatarFiles(userID string) ([]string, error) {
	if err := s.Initialize(); err != nil {
		return nil, err
	}

	dir, err := s.AvatarDir(userID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, WrapStorage("readdir", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == avatarBase {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveAvatars 删除用户目录下所有 avatar.* 文件，返回删除数量。
// 单个删除失败不中断（文件可能已被并发删除），只统计成功的条目。
func (s *Store) RemoveAvatars(userID string) (int, error) {
	names, err := s.AvatarFiles(userID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range names {
		path, err := s.AvatarPath(userID, name)
		if err != nil {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}

// StatAvatar 返回头像文件的元数据。
func (s *Store) StatAvatar(userID, filename string) (FileMetadata, error) {
	if err := s.Initialize(); err != nil {
		return FileMetadata{}, err
	}

	path, err := s.AvatarPath(userID, filename)
	if err != nil {
		return FileMetadata{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileMetadata{}, NewError(KindFileNotFound, "filename", filename)
		}
		return FileMetadata{}, WrapStorage("stat", err)
	}
	if info.IsDir() {
		return FileMetadata{}, NewError(KindFileNotFound, "filename", filename)
	}

	meta := s.metadataFromInfo(FolderAvatars, filename, info)
	meta.URL = s.AvatarURL(userID, filename)
	return meta, nil
}
