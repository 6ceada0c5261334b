package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"mediastore/internal/service"
	"mediastore/internal/storage"
)

var (
	pngBytes  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
)

func newTestRouter(t *testing.T) (http.Handler, *service.StorageService) {
	t.Helper()

	store, err := storage.NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := service.NewStorageService(store, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		NewStorageHandler(svc, 32<<20).RegisterRoutes(r)
	})
	return r, svc
}

func newMultipartRequest(t *testing.T, target string, fields map[string]string, filename, mimeType string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := newMultipartRequest(t, "/api/storage/files", nil, "Team Photo.png", "image/png", pngBytes)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data storage.StorageFile `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Filename != "team-photo.png" {
		t.Fatalf("unexpected filename: %s", resp.Data.Filename)
	}
	if resp.Data.Folder != storage.FolderImages {
		t.Fatalf("unexpected folder: %s", resp.Data.Folder)
	}
	if resp.Data.URL != "/api/storage/files/images/team-photo.png" {
		t.Fatalf("unexpected url: %s", resp.Data.URL)
	}
}

func TestUploadEndpointSpoofedMime(t *testing.T) {
	router, _ := newTestRouter(t)

	// 声明 PNG、提供 JPEG 字节
	req := newMultipartRequest(t, "/api/storage/files", nil, "fake.png", "image/png", jpegBytes)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp struct {
		Kind storage.Kind `json:"kind"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Kind != storage.KindMimeMismatch {
		t.Fatalf("expected mime_mismatch kind, got %s", resp.Kind)
	}
}

func TestUploadEndpointMissingFile(t *testing.T) {
	router, _ := newTestRouter(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("folder", "images")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/storage/files", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)

	if _, err := svc.Upload(context.Background(), service.UploadRequest{
		Data: pngBytes, OriginalName: "a.png", MimeType: "image/png", Size: int64(len(pngBytes)),
	}); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/storage/files?folder=images&page=1&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data storage.ListResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Total != 1 || len(resp.Data.Files) != 1 {
		t.Fatalf("unexpected list result: %+v", resp.Data)
	}
}

func TestListEndpointRejectsAvatars(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/storage/files?folder=avatars", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("avatars folder must not be listable, got %d", rec.Code)
	}
}

func TestServeAndDeleteEndpoints(t *testing.T) {
	router, svc := newTestRouter(t)

	file, err := svc.Upload(context.Background(), service.UploadRequest{
		Data: pngBytes, OriginalName: "pic.png", MimeType: "image/png", Size: int64(len(pngBytes)),
	})
	if err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, file.URL, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("serve: expected 200, got %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), pngBytes) {
		t.Fatal("served bytes differ from uploaded bytes")
	}

	req = httptest.NewRequest(http.MethodGet, file.URL+"/meta", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("meta: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, file.URL, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}

	// 再删一次必须 404
	req = httptest.NewRequest(http.MethodDelete, file.URL, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestDeleteEndpointTraversal(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/storage/files/images/..%2F..%2Fetc%2Fpasswd", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// 无论被路由层还是路径解析拒绝，都绝不能成功
	if rec.Code == http.StatusOK {
		t.Fatalf("traversal delete must not succeed, got %d", rec.Code)
	}
}

func TestAvatarEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	req := newMultipartRequest(t, "/api/storage/avatars/u1", nil, "me.png", "image/png", pngBytes)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("avatar upload: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Data storage.AvatarInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Data.Filename != "avatar.png" {
		t.Fatalf("unexpected avatar filename: %s", created.Data.Filename)
	}

	// 头像 URL 查询
	req = httptest.NewRequest(http.MethodGet, "/api/storage/avatars/u1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("avatar url: expected 200, got %d", rec.Code)
	}
	var got struct {
		Data struct {
			URL *string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Data.URL == nil || *got.Data.URL != created.Data.URL {
		t.Fatalf("avatar url mismatch: %v", got.Data.URL)
	}

	// 按对外 URL 取回头像内容
	req = httptest.NewRequest(http.MethodGet, created.Data.URL, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("avatar serve: expected 200, got %d", rec.Code)
	}

	// 删除后查询得到 url:null
	req = httptest.NewRequest(http.MethodDelete, "/api/storage/avatars/u1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("avatar delete: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/storage/avatars/u1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("avatar url after delete: expected 200, got %d", rec.Code)
	}
	got.Data.URL = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Data.URL != nil {
		t.Fatalf("expected null url after delete, got %v", *got.Data.URL)
	}
}

func TestUsageEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)

	for _, name := range []string{"a.png", "b.png"} {
		if _, err := svc.Upload(context.Background(), service.UploadRequest{
			Data: pngBytes, OriginalName: name, MimeType: "image/png", Size: int64(len(pngBytes)),
		}); err != nil {
			t.Fatalf("seed upload: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/storage/usage?folder=images", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data storage.Usage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Count != 2 {
		t.Fatalf("usage count = %d, want 2", resp.Data.Count)
	}
	if resp.Data.TotalSize != int64(2*len(pngBytes)) {
		t.Fatalf("usage size = %d, want %d", resp.Data.TotalSize, 2*len(pngBytes))
	}
}
