package service

import (
	"context"
	"encoding/json"
	"io"
	"path"
	"strings"

	"lms_support_backend/internal/model"
	"lms_support_backend/internal/repository"
	"lms_support_backend/internal/taxonomy"
	"lms_support_backend/internal/util"
	"lms_support_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DocumentService 知识库文档：上传校验标签、写对象存储、落元数据。
type DocumentService struct {
	docs    *repository.DocumentRepository
	storage *StorageService
	catalog *taxonomy.Catalog
}

func NewDocumentService(docs *repository.DocumentRepository, storage *StorageService, catalog *taxonomy.Catalog) *DocumentService {
	return &DocumentService{docs: docs, storage: storage, catalog: catalog}
}

type UploadDocumentRequest struct {
	FileName         string
	ContentType      string
	Size             int64
	Category         model.DocumentCategory
	CourseCategories []string
	CourseNames      []string
	UploadedBy       uint
}

// Upload validates the tagging against the course catalog, stores the file,
// then records metadata. A storage failure leaves no metadata row behind.
func (s *DocumentService) Upload(ctx context.Context, req *UploadDocumentRequest, reader io.Reader) (*model.KnowledgeDocument, error) {
	if req.FileName == "" {
		return nil, util.NewValidationError("fileName", "file name is required")
	}
	if err := s.catalog.ValidateTagging(req.Category, req.CourseCategories, req.CourseNames); err != nil {
		return nil, err
	}

	objectName := objectNameFor(req.Category, req.FileName)
	fileURL, err := s.storage.Upload(ctx, objectName, reader, req.Size, req.ContentType)
	if err != nil {
		return nil, err
	}

	categories, _ := json.Marshal(req.CourseCategories)
	courses, _ := json.Marshal(req.CourseNames)
	doc := &model.KnowledgeDocument{
		FileName:         req.FileName,
		FileURL:          fileURL,
		FileSize:         req.Size,
		MimeType:         req.ContentType,
		Category:         req.Category,
		CourseCategories: categories,
		CourseNames:      courses,
		UploadedBy:       req.UploadedBy,
	}
	if err := s.docs.Create(doc); err != nil {
		// 元数据写入失败时回收已上传的对象，避免孤儿文件
		if delErr := s.storage.Delete(ctx, objectName); delErr != nil {
			logger.Log.Warn("orphan object cleanup failed",
				zap.String("object", objectName), zap.Error(delErr))
		}
		return nil, err
	}

	logger.Log.Info("document uploaded",
		zap.String("id", doc.ID),
		zap.String("category", string(doc.Category)),
		zap.String("fileName", doc.FileName))
	return doc, nil
}

// List returns documents, optionally filtered to one top-level category.
func (s *DocumentService) List(category string) ([]model.KnowledgeDocument, error) {
	if category != "" && !model.DocumentCategory(category).Valid() {
		return nil, util.NewValidationError("category", "unknown document category "+category)
	}
	return s.docs.List(model.DocumentCategory(category))
}

// Delete removes the stored object and its metadata. The metadata row is
// only removed after the object is gone, so a storage failure leaves the
// document fully intact rather than half-deleted.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.docs.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return util.NewNotFoundError("document", id)
		}
		return err
	}
	objectName := objectNameFromURL(doc.FileURL, doc.Category, doc.FileName)
	if err := s.storage.Delete(ctx, objectName); err != nil {
		return err
	}
	return s.docs.Delete(doc.ID)
}

// Categories returns the valid top-level document categories.
func (s *DocumentService) Categories() []model.DocumentCategory {
	return model.DocumentCategories()
}

func objectNameFor(category model.DocumentCategory, fileName string) string {
	safe := strings.ReplaceAll(path.Base(fileName), " ", "_")
	return string(category) + "/" + uuid.NewString() + "_" + safe
}

// objectNameFromURL recovers the storage key from the stored URL; the key
// is the last two path segments (category/uniquified-name).
func objectNameFromURL(fileURL string, category model.DocumentCategory, fileName string) string {
	parts := strings.Split(fileURL, "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return string(category) + "/" + fileName
}
