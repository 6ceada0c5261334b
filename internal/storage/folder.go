package storage

// Folder 是封闭的存储类别枚举。
type Folder string

const (
	FolderImages    Folder = "images"
	FolderDocuments Folder = "documents"
	// FolderAvatars 仅供服务内部使用，不对列表类调用方暴露。
	FolderAvatars Folder = "avatars"
)

// Valid 判断是否是已知类别。
func (f Folder) Valid() bool {
	switch f {
	case FolderImages, FolderDocuments, FolderAvatars:
		return true
	}
	return false
}

// Public 判断类别是否可以出现在对外的列表/管理接口中。
func (f Folder) Public() bool {
	return f == FolderImages || f == FolderDocuments
}

// ParsePublicFolder 解析调用方传入的类别名，avatars 与未知值都会被拒绝。
func ParsePublicFolder(raw string) (Folder, error) {
	f := Folder(raw)
	if !f.Valid() || !f.Public() {
		return "", NewError(KindInvalidFolder, "folder", raw)
	}
	return f, nil
}
