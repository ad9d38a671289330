package repository

import (
	"lms_support_backend/internal/model"

	"gorm.io/gorm"
)

type DocumentRepository struct {
	DB *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

func (r *DocumentRepository) Create(doc *model.KnowledgeDocument) error {
	return r.DB.Create(doc).Error
}

func (r *DocumentRepository) FindByID(docID string) (*model.KnowledgeDocument, error) {
	var doc model.KnowledgeDocument
	err := r.DB.Where("id = ?", docID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns documents, optionally filtered by top-level category,
// newest upload first.
func (r *DocumentRepository) List(category model.DocumentCategory) ([]model.KnowledgeDocument, error) {
	q := r.DB.Model(&model.KnowledgeDocument{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var docs []model.KnowledgeDocument
	err := q.Order("created_at desc").Find(&docs).Error
	return docs, err
}

// Delete removes the metadata row. Soft delete is deliberately not used
// here: a deleted document must leave no category association behind.
func (r *DocumentRepository) Delete(docID string) error {
	return r.DB.Unscoped().Where("id = ?", docID).Delete(&model.KnowledgeDocument{}).Error
}
