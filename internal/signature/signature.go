package signature

import (
	"bytes"
	"strings"
)

// 允许上传的 MIME 类型与存储扩展名的映射。
// 存储文件的扩展名始终由校验后的 MIME 类型决定，客户端文件名不可信。
var extensionByMime = map[string]string{
	"image/jpeg":         ".jpg",
	"image/png":          ".png",
	"image/gif":          ".gif",
	"image/webp":         ".webp",
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

// mimeByExtension 用于读取时根据扩展名重新推导 MIME 类型。
var mimeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// sig 描述一个文件格式的魔数特征。
// Offset 为 0 时匹配文件开头；WebP 在 RIFF 容器之后第 8 字节处
// 还需要出现 "WEBP" 标记，用 secondary 表达。
type sig struct {
	prefix          []byte
	secondary       []byte
	secondaryOffset int
}

var signatures = map[string]sig{
	"image/jpeg": {prefix: []byte{0xFF, 0xD8, 0xFF}},
	"image/png":  {prefix: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	"image/gif":  {prefix: []byte("GIF8")},
	"image/webp": {
		prefix:          []byte("RIFF"),
		secondary:       []byte("WEBP"),
		secondaryOffset: 8,
	},
	"application/pdf":    {prefix: []byte("%PDF")},
	"application/msword": {prefix: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {
		prefix: []byte{0x50, 0x4B, 0x03, 0x04},
	},
}

// 各类别的体积上限（字节）。
const (
	MaxImageBytes    int64 = 5 << 20
	MaxDocumentBytes int64 = 10 << 20
	MaxDefaultBytes  int64 = 1 << 20
)

// IsAllowed 判断 MIME 类型是否在白名单内。
func IsAllowed(mimeType string) bool {
	_, ok := extensionByMime[mimeType]
	return ok
}

// ExtensionByMime 返回 MIME 类型对应的存储扩展名（含点号）。
func ExtensionByMime(mimeType string) (string, bool) {
	ext, ok := extensionByMime[mimeType]
	return ext, ok
}

// MimeByExtension 根据扩展名推导 MIME 类型，未知扩展名返回通用二进制类型。
func MimeByExtension(ext string) string {
	if mime, ok := mimeByExtension[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// MaxSizeFor 返回 MIME 类型所属类别的体积上限。
// 图片与文档各有上限，无法归类的类型落到保守的默认上限。
func MaxSizeFor(mimeType string) int64 {
	if strings.HasPrefix(mimeType, "image/") {
		return MaxImageBytes
	}
	if IsAllowed(mimeType) {
		return MaxDocumentBytes
	}
	return MaxDefaultBytes
}

// HasSignature 判断目录中是否登记了该 MIME 类型的魔数。
func HasSignature(mimeType string) bool {
	_, ok := signatures[mimeType]
	return ok
}

// Matches 校验数据开头是否符合声明类型的魔数特征。
// 目录中没有登记魔数的类型默认通过，由白名单和体积检查兜底。
func Matches(mimeType string, data []byte) bool {
	s, ok := signatures[mimeType]
	if !ok {
		return true
	}

	if len(data) < len(s.prefix) || !bytes.HasPrefix(data, s.prefix) {
		return false
	}

	if len(s.secondary) > 0 {
		end := s.secondaryOffset + len(s.secondary)
		if len(data) < end || !bytes.Equal(data[s.secondaryOffset:end], s.secondary) {
			return false
		}
	}

	return true
}
