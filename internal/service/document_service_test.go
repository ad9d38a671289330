package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lms_support_backend/internal/config"
	"lms_support_backend/internal/model"
	"lms_support_backend/internal/repository"
	"lms_support_backend/internal/taxonomy"
	"lms_support_backend/internal/util"
)

type failingProvider struct{}

func (failingProvider) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	return "", errors.New("bucket unreachable")
}
func (failingProvider) Delete(ctx context.Context, objectName string) error {
	return errors.New("bucket unreachable")
}
func (failingProvider) GetURL(objectName string) string { return "" }

func newTestDocumentService(t *testing.T) (*DocumentService, *repository.DocumentRepository, string) {
	t.Helper()
	db := newTestDB(t)
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = dir

	docs := repository.NewDocumentRepository(db)
	svc := NewDocumentService(docs, NewStorageService(cfg), taxonomy.Default())
	return svc, docs, dir
}

func uploadRequest() *UploadDocumentRequest {
	return &UploadDocumentRequest{
		FileName:         "ml syllabus.pdf",
		ContentType:      "application/pdf",
		Size:             11,
		Category:         model.CategoryCurriculum,
		CourseCategories: []string{"AI/ML"},
		CourseNames:      []string{"Machine Learning"},
		UploadedBy:       1,
	}
}

func TestUploadDocument(t *testing.T) {
	svc, _, dir := newTestDocumentService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, uploadRequest(), strings.NewReader("pdf content"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.ID == "" {
		t.Error("document has no id")
	}
	if !strings.HasPrefix(doc.FileURL, "/uploads/"+string(model.CategoryCurriculum)+"/") {
		t.Errorf("fileURL = %q", doc.FileURL)
	}

	// 文件真实落盘
	matches, _ := filepath.Glob(filepath.Join(dir, string(model.CategoryCurriculum), "*_ml_syllabus.pdf"))
	if len(matches) != 1 {
		t.Fatalf("stored files = %v", matches)
	}
	content, _ := os.ReadFile(matches[0])
	if string(content) != "pdf content" {
		t.Errorf("stored content = %q", content)
	}

	listed, err := svc.List(string(model.CategoryCurriculum))
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].FileName != "ml syllabus.pdf" {
		t.Errorf("listed = %+v", listed)
	}
}

func TestUploadDocumentTaggingRejected(t *testing.T) {
	svc, docs, _ := newTestDocumentService(t)
	ctx := context.Background()

	req := uploadRequest()
	req.CourseCategories = nil
	req.CourseNames = nil

	_, err := svc.Upload(ctx, req, strings.NewReader("x"))
	var vErr *util.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}

	// 校验失败不落元数据
	all, _ := docs.List("")
	if len(all) != 0 {
		t.Errorf("metadata rows = %d, want 0", len(all))
	}
}

func TestUploadDocumentStorageFailure(t *testing.T) {
	svc, docs, _ := newTestDocumentService(t)
	svc.storage = &StorageService{Provider: failingProvider{}}
	ctx := context.Background()

	_, err := svc.Upload(ctx, uploadRequest(), strings.NewReader("x"))
	var depErr *util.DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("error = %v, want DependencyError", err)
	}

	all, _ := docs.List("")
	if len(all) != 0 {
		t.Errorf("metadata rows = %d after storage failure", len(all))
	}
}

func TestDeleteDocument(t *testing.T) {
	svc, docs, dir := newTestDocumentService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, uploadRequest(), strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	all, _ := docs.List("")
	if len(all) != 0 {
		t.Errorf("metadata rows = %d after delete", len(all))
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*", "*"))
	if len(matches) != 0 {
		t.Errorf("stored files left behind: %v", matches)
	}

	err = svc.Delete(ctx, doc.ID)
	var nfErr *util.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Errorf("second delete error = %v, want NotFoundError", err)
	}
}

func TestDeleteDocumentStorageFailureKeepsMetadata(t *testing.T) {
	svc, docs, _ := newTestDocumentService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, uploadRequest(), strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}

	svc.storage = &StorageService{Provider: failingProvider{}}
	err = svc.Delete(ctx, doc.ID)
	var depErr *util.DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("error = %v, want DependencyError", err)
	}

	// 存储删除失败时文档保持完整
	all, _ := docs.List("")
	if len(all) != 1 {
		t.Errorf("metadata rows = %d, want 1", len(all))
	}
}

func TestListDocumentsUnknownCategory(t *testing.T) {
	svc, _, _ := newTestDocumentService(t)

	_, err := svc.List("misc_documents")
	var vErr *util.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}
