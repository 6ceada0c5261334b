package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mediastore/internal/service"
	"mediastore/internal/storage"
)

// StorageHandler 把存储服务的操作暴露为 HTTP 端点，
// 并承担对外 URL 约定的文件服务路由（请求时读盘）。
type StorageHandler struct {
	service        *service.StorageService
	maxUploadBytes int64
}

const multipartMemoryBudget int64 = 16 * 1024 * 1024

func NewStorageHandler(s *service.StorageService, maxUploadBytes int64) *StorageHandler {
	return &StorageHandler{service: s, maxUploadBytes: maxUploadBytes}
}

func (h *StorageHandler) RegisterRoutes(r chi.Router) {
	r.Route("/storage", func(r chi.Router) {
		r.Post("/files", h.Upload)
		r.Get("/files", h.List)
		r.Get("/usage", h.Usage)

		// 头像的三段式路径必须注册在两段式通配之前
		r.Get("/files/avatars/{userID}/{filename}", h.ServeAvatar)
		r.Get("/files/{folder}/{filename}", h.Serve)
		r.Get("/files/{folder}/{filename}/meta", h.Metadata)
		r.Delete("/files/{folder}/{filename}", h.Delete)

		r.Post("/avatars/{userID}", h.UploadAvatar)
		r.Get("/avatars/{userID}", h.AvatarURL)
		r.Delete("/avatars/{userID}", h.DeleteAvatar)
	})
}

// Upload 接受 multipart/form-data 上传，file 字段必填，
// folder 字段可选（显式指定目标类别）。
func (h *StorageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		writeError(w, http.StatusInternalServerError, "handler not initialized")
		return
	}

	data, header, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	var folder storage.Folder
	if raw := strings.TrimSpace(r.FormValue("folder")); raw != "" {
		parsed, err := storage.ParsePublicFolder(raw)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		folder = parsed
	}

	file, err := h.service.Upload(r.Context(), service.UploadRequest{
		Data:         data,
		OriginalName: header.Filename,
		MimeType:     declaredMimeType(header, data),
		Size:         int64(len(data)),
		Folder:       folder,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{Data: file})
}

// List 返回类别目录的一页文件。avatars 是服务内部类别，不可列出。
func (h *StorageHandler) List(w http.ResponseWriter, r *http.Request) {
	folder, err := storage.ParsePublicFolder(queryOrDefault(r, "folder", string(storage.FolderImages)))
	if err != nil {
		writeStorageError(w, err)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", service.DefaultPageLimit)
	order := storage.SortOrder(queryOrDefault(r, "sort", string(storage.SortAsc)))

	result, err := h.service.List(r.Context(), folder, page, limit, order)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Data: result})
}

// Usage 返回类别目录的占用汇总。
func (h *StorageHandler) Usage(w http.ResponseWriter, r *http.Request) {
	folder, err := storage.ParsePublicFolder(queryOrDefault(r, "folder", string(storage.FolderImages)))
	if err != nil {
		writeStorageError(w, err)
		return
	}

	usage, err := h.service.GetUsage(r.Context(), folder)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Data: usage})
}

// Serve 按对外 URL 约定读盘返回文件内容。
func (h *StorageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	folder, err := storage.ParsePublicFolder(chi.URLParam(r, "folder"))
	if err != nil {
		writeStorageError(w, err)
		return
	}
	filename := chi.URLParam(r, "filename")

	meta, err := h.service.GetMetadata(r.Context(), folder, filename)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	path, err := h.service.ResolvePath(folder, filename)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	w.Header().Set("Content-Type", meta.MimeType)
	http.ServeFile(w, r, path)
}

// ServeAvatar 读盘返回头像内容。
func (h *StorageHandler) ServeAvatar(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	filename := chi.URLParam(r, "filename")

	meta, err := h.service.GetAvatarMetadata(r.Context(), userID, filename)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	path, err := h.service.ResolveAvatarPath(userID, filename)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	w.Header().Set("Content-Type", meta.MimeType)
	http.ServeFile(w, r, path)
}

// Metadata 返回单个文件的元数据。
func (h *StorageHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	folder, err := storage.ParsePublicFolder(chi.URLParam(r, "folder"))
	if err != nil {
		writeStorageError(w, err)
		return
	}

	meta, err := h.service.GetMetadata(r.Context(), folder, chi.URLParam(r, "filename"))
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Data: meta})
}

// Delete 删除单个文件。
func (h *StorageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	folder, err := storage.ParsePublicFolder(chi.URLParam(r, "folder"))
	if err != nil {
		writeStorageError(w, err)
		return
	}
	filename := chi.URLParam(r, "filename")

	if err := h.service.Delete(r.Context(), folder, filename); err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Data: map[string]any{
		"folder":   folder,
		"filename": filename,
		"deleted":  true,
	}})
}

// UploadAvatar 上传用户头像（单槽位）。
func (h *StorageHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	data, header, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	info, err := h.service.UploadUserAvatar(r.Context(), userID, data, declaredMimeType(header, data), int64(len(data)))
	if err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{Data: info})
}

// AvatarURL 返回用户头像的 URL，未设置头像时 url 为 null。
func (h *StorageHandler) AvatarURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.GetUserAvatarURL(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeStorageError(w, err)
		return
	}

	var payload *string
	if url != "" {
		payload = &url
	}
	writeJSON(w, http.StatusOK, envelope{Data: map[string]*string{"url": payload}})
}

// DeleteAvatar 删除用户头像。
func (h *StorageHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.service.DeleteUserAvatar(r.Context(), userID); err != nil {
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Data: map[string]any{
		"user_id": userID,
		"deleted": true,
	}})
}

// readUpload 解析 multipart 表单并把 file 字段完整读入内存。
// 体积在读取前由 MaxBytesReader 粗限，精确的类别上限由校验层裁决。
func (h *StorageHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, *multipart.FileHeader, bool) {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is empty")
		return nil, nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemoryBudget)
	defer r.Body.Close()

	if err := r.ParseMultipartForm(multipartMemoryBudget); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return nil, nil, false
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return nil, nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read uploaded file")
		return nil, nil, false
	}
	if int64(len(data)) > h.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds upload size limit")
		return nil, nil, false
	}

	return data, header, true
}

// declaredMimeType 取表单里声明的 Content-Type；未声明时
// 从内容嗅探一个声明值，后续仍要过白名单与魔数校验。
func declaredMimeType(header *multipart.FileHeader, data []byte) string {
	if header != nil {
		if value := header.Header.Get("Content-Type"); value != "" && value != "application/octet-stream" {
			// 去掉可能携带的参数，如 "; charset=..."
			if idx := strings.IndexByte(value, ';'); idx >= 0 {
				value = value[:idx]
			}
			return strings.TrimSpace(value)
		}
	}
	return http.DetectContentType(data)
}

func queryOrDefault(r *http.Request, key, fallback string) string {
	if value := strings.TrimSpace(r.URL.Query().Get(key)); value != "" {
		return value
	}
	return fallback
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
