package storage

import (
	"errors"
	"fmt"
)

// Kind 是存储子系统的封闭错误分类，HTTP 层据此机械地映射状态码。
type Kind string

const (
	KindFileRequired    Kind = "file_required"
	KindInvalidMimeType Kind = "invalid_mime_type"
	KindMimeMismatch    Kind = "mime_mismatch"
	KindFileTooLarge    Kind = "file_too_large"
	KindInvalidFolder   Kind = "invalid_folder"
	KindFileNotFound    Kind = "file_not_found"
	KindPathTraversal   Kind = "path_traversal"
	KindStorage         Kind = "storage_error"
)

// Error 携带错误分类与出错的字段/值，底层 OS 错误包在 Err 里。
type Error struct {
	Kind  Kind
	Field string
	Value string
	Err   error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (%s=%q)", msg, e.Field, e.Value)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 构造指定分类的错误。
func NewError(kind Kind, field, value string) *Error {
	return &Error{Kind: kind, Field: field, Value: value}
}

// WrapStorage 把底层 I/O 错误包装成 KindStorage，避免原始 OS 错误跨边界泄露。
func WrapStorage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Field: "op", Value: op, Err: err}
}

// KindOf 返回错误的分类；不是存储错误时返回空串。
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind 判断错误是否属于指定分类。
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
