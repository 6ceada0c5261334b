package service

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"mediastore/internal/signature"
	"mediastore/internal/storage"
)

var (
	pngBytes  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	pdfBytes  = []byte("%PDF-1.7\nhello")
)

func newTestService(t *testing.T) *StorageService {
	t.Helper()
	store, err := storage.NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewStorageService(store, logger)
}

func pngRequest(name string) UploadRequest {
	return UploadRequest{
		Data:         pngBytes,
		OriginalName: name,
		MimeType:     "image/png",
		Size:         int64(len(pngBytes)),
	}
}

func TestUploadRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	file, err := svc.Upload(ctx, pngRequest("Team Photo.PNG"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if file.Folder != storage.FolderImages {
		t.Fatalf("expected images folder, got %s", file.Folder)
	}
	if file.Filename != "team-photo.png" {
		t.Fatalf("unexpected stored name: %s", file.Filename)
	}
	if file.ID != "team-photo" {
		t.Fatalf("unexpected id: %s", file.ID)
	}
	if file.URL != "/api/storage/files/images/team-photo.png" {
		t.Fatalf("unexpected url: %s", file.URL)
	}

	ok, err := svc.Exists(ctx, file.Folder, file.Filename)
	if err != nil || !ok {
		t.Fatalf("Exists after upload = %v, %v", ok, err)
	}

	meta, err := svc.GetMetadata(ctx, file.Folder, file.Filename)
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.Size != file.Size {
		t.Fatalf("metadata size = %d, want %d", meta.Size, file.Size)
	}
	if meta.MimeType != file.MimeType {
		t.Fatalf("metadata mime = %s, want %s", meta.MimeType, file.MimeType)
	}
}

func TestUploadExtensionFromValidatedMime(t *testing.T) {
	svc := newTestService(t)

	// 客户端扩展名撒谎时，落盘扩展名来自校验过的 MIME 类型
	req := pngRequest("script.exe")
	file, err := svc.Upload(context.Background(), req)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if file.Filename != "script.png" {
		t.Fatalf("expected script.png, got %s", file.Filename)
	}
}

func TestUploadMismatchCreatesNoFile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadRequest{
		Data:         jpegBytes,
		OriginalName: "photo.png",
		MimeType:     "image/png",
		Size:         int64(len(jpegBytes)),
	})
	if !storage.IsKind(err, storage.KindMimeMismatch) {
		t.Fatalf("expected mime_mismatch, got %v", err)
	}

	result, err := svc.List(ctx, storage.FolderImages, 1, 10, storage.SortAsc)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.Total != 0 {
		t.Fatalf("rejected upload must not create files, found %d", result.Total)
	}
}

func TestUploadSizeBoundary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	exact := make([]byte, signature.MaxImageBytes)
	copy(exact, pngBytes)

	if _, err := svc.Upload(ctx, UploadRequest{
		Data: exact, OriginalName: "big.png", MimeType: "image/png", Size: int64(len(exact)),
	}); err != nil {
		t.Fatalf("upload at exact ceiling rejected: %v", err)
	}

	over := append(exact, 0x00)
	_, err := svc.Upload(ctx, UploadRequest{
		Data: over, OriginalName: "bigger.png", MimeType: "image/png", Size: int64(len(over)),
	})
	if !storage.IsKind(err, storage.KindFileTooLarge) {
		t.Fatalf("expected file_too_large one byte over, got %v", err)
	}
}

func TestUploadCollisionMonotonicity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	want := []string{"report.pdf", "report-1.pdf", "report-2.pdf", "report-3.pdf"}
	for i, expected := range want {
		file, err := svc.Upload(ctx, UploadRequest{
			Data:         pdfBytes,
			OriginalName: "Report.pdf",
			MimeType:     "application/pdf",
			Size:         int64(len(pdfBytes)),
		})
		if err != nil {
			t.Fatalf("Upload #%d: %v", i, err)
		}
		if file.Filename != expected {
			t.Fatalf("Upload #%d = %s, want %s", i, file.Filename, expected)
		}
	}

	// N 个文件共存且各自可查
	for _, name := range want {
		if _, err := svc.GetMetadata(ctx, storage.FolderDocuments, name); err != nil {
			t.Fatalf("GetMetadata(%s): %v", name, err)
		}
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	file, err := svc.Upload(ctx, pngRequest("gone.png"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Delete(ctx, file.Folder, file.Filename); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, file.Folder, file.Filename); !storage.IsKind(err, storage.KindFileNotFound) {
		t.Fatalf("second Delete = %v, want file_not_found", err)
	}
}

func TestDeleteTraversalRejected(t *testing.T) {
	svc := newTestService(t)

	err := svc.Delete(context.Background(), storage.FolderImages, "../../etc/passwd")
	if !storage.IsKind(err, storage.KindPathTraversal) {
		t.Fatalf("expected path_traversal, got %v", err)
	}
}

func TestListPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	const total = 5
	for i := 0; i < total; i++ {
		if _, err := svc.Upload(ctx, pngRequest(fmt.Sprintf("img %d.png", i))); err != nil {
			t.Fatalf("Upload #%d: %v", i, err)
		}
	}

	for _, order := range []storage.SortOrder{storage.SortAsc, storage.SortDesc} {
		seen := map[string]int{}
		limit := 2
		pages := (total + limit - 1) / limit

		for page := 1; page <= pages; page++ {
			result, err := svc.List(ctx, storage.FolderImages, page, limit, order)
			if err != nil {
				t.Fatalf("List page %d: %v", page, err)
			}
			if result.Total != total {
				t.Fatalf("Total = %d, want %d", result.Total, total)
			}
			if result.TotalPages != pages {
				t.Fatalf("TotalPages = %d, want %d", result.TotalPages, pages)
			}
			for _, f := range result.Files {
				seen[f.Filename]++
			}
		}

		if len(seen) != total {
			t.Fatalf("order %s: saw %d distinct files, want %d", order, len(seen), total)
		}
		for name, count := range seen {
			if count != 1 {
				t.Fatalf("order %s: file %s appeared %d times", order, name, count)
			}
		}

		// 越界页码得到空切片而不是错误
		result, err := svc.List(ctx, storage.FolderImages, pages+5, limit, order)
		if err != nil {
			t.Fatalf("List out of range: %v", err)
		}
		if len(result.Files) != 0 {
			t.Fatalf("out-of-range page returned %d files", len(result.Files))
		}
	}
}

func TestListLimitCap(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.List(context.Background(), storage.FolderImages, 0, MaxPageLimit*10, storage.SortAsc)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.Limit != MaxPageLimit {
		t.Fatalf("limit not capped: %d", result.Limit)
	}
	if result.Page != 1 {
		t.Fatalf("page not floored: %d", result.Page)
	}
}

func TestGetUsage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var expected int64
	for i := 0; i < 3; i++ {
		file, err := svc.Upload(ctx, pngRequest(fmt.Sprintf("u%d.png", i)))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		expected += file.Size
	}

	usage, err := svc.GetUsage(ctx, storage.FolderImages)
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if usage.Count != 3 {
		t.Fatalf("Count = %d, want 3", usage.Count)
	}
	if usage.TotalSize != expected {
		t.Fatalf("TotalSize = %d, want %d", usage.TotalSize, expected)
	}
}

func TestUploadCancelledContext(t *testing.T) {
	svc := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Upload(ctx, pngRequest("late.png")); err == nil {
		t.Fatal("expected context error")
	}
}
