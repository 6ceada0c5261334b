package storage

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// publicPrefix 是对外 URL 的固定前缀，实际的文件服务路由由 HTTP 层挂载。
const publicPrefix = "/api/storage/files"

// FolderPath 返回类别目录的绝对路径。
func (s *Store) FolderPath(folder Folder) string {
	return filepath.Join(s.root, string(folder))
}

// FilePath 计算 (folder, filename) 的落盘绝对路径。
// 解析结果必须仍以类别目录为前缀，否则视为路径穿越并拒绝。
// 这是对绕过了上游清洗的 ".." 片段的最后一道防线。
func (s *Store) FilePath(folder Folder, filename string) (string, error) {
	if !folder.Valid() {
		return "", NewError(KindInvalidFolder, "folder", string(folder))
	}
	if err := checkPathComponent(filename); err != nil {
		return "", err
	}

	dir := s.FolderPath(folder)
	full := filepath.Join(dir, filename)
	if !strings.HasPrefix(full, dir+string(filepath.Separator)) {
		return "", NewError(KindPathTraversal, "filename", filename)
	}
	return full, nil
}

// AvatarDir 返回某个用户头像子目录的绝对路径。
func (s *Store) AvatarDir(userID string) (string, error) {
	if err := checkPathComponent(userID); err != nil {
		return "", err
	}

	base := s.FolderPath(FolderAvatars)
	dir := filepath.Join(base, userID)
	if !strings.HasPrefix(dir, base+string(filepath.Separator)) {
		return "", NewError(KindPathTraversal, "user_id", userID)
	}
	return dir, nil
}

// AvatarPath 计算头像文件的落盘绝对路径。
func (s *Store) AvatarPath(userID, filename string) (string, error) {
	dir, err := s.AvatarDir(userID)
	if err != nil {
		return "", err
	}
	if err := checkPathComponent(filename); err != nil {
		return "", err
	}

	full := filepath.Join(dir, filename)
	if !strings.HasPrefix(full, dir+string(filepath.Separator)) {
		return "", NewError(KindPathTraversal, "filename", filename)
	}
	return full, nil
}

// FileURL 生成文件的对外访问 URL。
// 文件由请求时的读盘路由提供，进程启动后写入的文件无需重建即可访问。
func (s *Store) FileURL(folder Folder, filename string) string {
	return s.joinURL(string(folder), filename)
}

// AvatarURL 生成头像的对外访问 URL。
func (s *Store) AvatarURL(userID, filename string) string {
	return s.joinURL(string(FolderAvatars), userID, filename)
}

func (s *Store) joinURL(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	suffix := publicPrefix + "/" + path.Join(escaped...)
	if s.baseURL == "" {
		return suffix
	}
	return strings.TrimRight(s.baseURL, "/") + suffix
}

// checkPathComponent 确认值是单个安全的路径分量。
func checkPathComponent(name string) error {
	if name == "" {
		return NewError(KindFileNotFound, "filename", name)
	}
	if name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return NewError(KindPathTraversal, "filename", name)
	}
	if filepath.Base(name) != name {
		return NewError(KindPathTraversal, "filename", name)
	}
	return nil
}

// splitName 把文件名拆成主干和扩展名。
func splitName(name string) (base, ext string) {
	ext = filepath.Ext(name)
	base = strings.TrimSuffix(name, ext)
	if base == "" {
		base = "file"
	}
	return base, ext
}
