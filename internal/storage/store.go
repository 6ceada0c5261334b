package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"mediastore/internal/signature"
)

// Store 持有解析后的存储根目录，进程启动时构造一次后按引用传递，
// 惰性初始化的状态都收在这个句柄里，测试可以按需构造新句柄。
type Store struct {
	root    string
	baseURL string

	initOnce sync.Once
	initErr  error
}

// NewStore 构造存储句柄。root 会被解析为绝对路径；baseURL 为空时
// 生成的 URL 只含路径部分。目录在首次操作时才会创建。
func NewStore(root, baseURL string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return &Store{root: abs, baseURL: baseURL}, nil
}

// Root 返回解析后的存储根目录。
func (s *Store) Root() string {
	return s.root
}

// Initialize 创建存储根目录和三个类别子目录，可以重复调用，
// 实际初始化只执行一次。所有磁盘操作入口都会先调用它。
func (s *Store) Initialize() error {
	s.initOnce.Do(func() {
		for _, dir := range []string{
			s.root,
			s.FolderPath(FolderImages),
			s.FolderPath(FolderDocuments),
			s.FolderPath(FolderAvatars),
		} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				s.initErr = WrapStorage("initialize", err)
				return
			}
		}
	})
	return s.initErr
}

// WriteUnique 以期望名称为起点分配未占用的文件名并写入数据，返回最终名称。
// 目标路径用 O_EXCL 独占创建，写入直接落在最终路径上：
// 写入中途失败时错误向上传播，不会留下临时文件。
func (s *Store) WriteUnique(folder Folder, desired string, data []byte) (string, error) {
	if err := s.Initialize(); err != nil {
		return "", err
	}

	var file *os.File
	final, err := allocate(desired, func(name string) error {
		path, err := s.FilePath(folder, name)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return err
		}
		file = f
		return nil
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return "", se
		}
		return "", WrapStorage("create", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return "", WrapStorage("write", err)
	}
	if err := file.Sync(); err != nil {
		return "", WrapStorage("sync", err)
	}
	if err := file.Close(); err != nil {
		return "", WrapStorage("close", err)
	}

	return final, nil
}

// Exists 探测文件是否存在。
func (s *Store) Exists(folder Folder, filename string) (bool, error) {
	if err := s.Initialize(); err != nil {
		return false, err
	}

	path, err := s.FilePath(folder, filename)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, WrapStorage("stat", err)
}

// Stat 返回单个文件的元数据，文件不存在时返回 KindFileNotFound。
func (s *Store) Stat(folder Folder, filename string) (FileMetadata, error) {
	if err := s.Initialize(); err != nil {
		return FileMetadata{}, err
	}

	path, err := s.FilePath(folder, filename)
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

	return s.metadataFromInfo(folder, filename, info), nil
}

// Remove 删除文件，文件不存在时返回 KindFileNotFound。
func (s *Store) Remove(folder Folder, filename string) error {
	if err := s.Initialize(); err != nil {
		return err
	}

	path, err := s.FilePath(folder, filename)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return NewError(KindFileNotFound, "filename", filename)
		}
		return WrapStorage("remove", err)
	}
	return nil
}

// ReadFolder 读取类别目录下所有文件的元数据。
// 目录不存在视为空结果（类别尚未使用是正常状态），
// 扫描过程中 stat 失败的条目跳过而不是让整个调用失败。
func (s *Store) ReadFolder(folder Folder) ([]FileMetadata, error) {
	if err := s.Initialize(); err != nil {
		return nil, err
	}
	if !folder.Valid() {
		return nil, NewError(KindInvalidFolder, "folder", string(folder))
	}

	entries, err := os.ReadDir(s.FolderPath(folder))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, WrapStorage("readdir", err)
	}

	files := make([]FileMetadata, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// 可能在扫描中途被删除
			continue
		}
		files = append(files, s.metadataFromInfo(folder, entry.Name(), info))
	}

	return files, nil
}

// SortByCreatedAt 按创建时间排序，同一时刻的条目按名称保证全序稳定。
func SortByCreatedAt(files []FileMetadata, order SortOrder) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if order == SortDesc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if order == SortDesc {
			return a.Filename > b.Filename
		}
		return a.Filename < b.Filename
	})
}

func (s *Store) metadataFromInfo(folder Folder, filename string, info os.FileInfo) FileMetadata {
	// 文件写入后不会原地修改，修改时间即创建时间
	return FileMetadata{
		Filename:   filename,
		MimeType:   signature.MimeByExtension(filepath.Ext(filename)),
		Size:       info.Size(),
		Folder:     folder,
		URL:        s.FileURL(folder, filename),
		ModifiedAt: info.ModTime(),
		CreatedAt:  info.ModTime(),
	}
}
