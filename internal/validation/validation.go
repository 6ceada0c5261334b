// Package validation 在任何磁盘写入发生之前裁决一次上传：
// 白名单、体积上限、再对照声明类型做魔数校验，三道检查按成本
// 从低到高短路执行。扩展名始终取自通过校验的 MIME 类型，
// 客户端文件名里的扩展名不参与任何决策。
package validation

import (
	"strconv"
	"strings"

	"mediastore/internal/signature"
	"mediastore/internal/storage"
)

// Validate 裁决一次上传并给出目标类别。
// override 非空时使用调用方指定的类别（必须是对外类别），
// 否则按 MIME 类型推断：image/* 归入 images，其余归入 documents。
func Validate(mimeType string, size int64, data []byte, override storage.Folder) (storage.Folder, error) {
	if len(data) == 0 || size <= 0 {
		return "", storage.NewError(storage.KindFileRequired, "file", "")
	}

	if !signature.IsAllowed(mimeType) {
		return "", storage.NewError(storage.KindInvalidMimeType, "mime_type", mimeType)
	}

	if limit := signature.MaxSizeFor(mimeType); size > limit {
		return "", storage.NewError(storage.KindFileTooLarge, "size", strconv.FormatInt(size, 10))
	}

	// 魔数必须在采信声明类型之前核对，否则脚本可以伪装成图片入库
	if !signature.Matches(mimeType, data) {
		return "", storage.NewError(storage.KindMimeMismatch, "mime_type", mimeType)
	}

	return classify(mimeType, override)
}

// ValidateImage 是头像专用的变体，非图片类型直接拒绝。
func ValidateImage(mimeType string, size int64, data []byte) error {
	if !strings.HasPrefix(mimeType, "image/") {
		return storage.NewError(storage.KindInvalidMimeType, "mime_type", mimeType)
	}
	_, err := Validate(mimeType, size, data, "")
	return err
}

func classify(mimeType string, override storage.Folder) (storage.Folder, error) {
	if override != "" {
		if !override.Valid() || !override.Public() {
			return "", storage.NewError(storage.KindInvalidFolder, "folder", string(override))
		}
		return override, nil
	}
	if strings.HasPrefix(mimeType, "image/") {
		return storage.FolderImages, nil
	}
	return storage.FolderDocuments, nil
}
