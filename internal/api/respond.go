package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"mediastore/internal/storage"
)

type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error string       `json:"error"`
	Kind  storage.Kind `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Error: message})
}

// writeStorageError 按错误分类机械地映射 HTTP 状态码。
func writeStorageError(w http.ResponseWriter, err error) {
	var se *storage.Error
	if !errors.As(err, &se) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch se.Kind {
	case storage.KindFileRequired,
		storage.KindInvalidMimeType,
		storage.KindMimeMismatch,
		storage.KindFileTooLarge,
		storage.KindInvalidFolder:
		status = http.StatusBadRequest
	case storage.KindFileNotFound:
		status = http.StatusNotFound
	case storage.KindPathTraversal, storage.KindStorage:
		status = http.StatusInternalServerError
	}

	message := se.Error()
	if status == http.StatusInternalServerError {
		// 不把内部路径或 OS 错误细节透给调用方
		message = "storage operation failed"
	}

	writeJSON(w, status, errorEnvelope{Error: message, Kind: se.Kind})
}
