package model

import "encoding/json"

// DocumentCategory 知识库文档的一级分类，固定三类。
type DocumentCategory string

const (
	CategoryProgramDetails DocumentCategory = "program_details_documents"
	CategoryCurriculum     DocumentCategory = "curriculum_documents"
	CategoryQADocuments    DocumentCategory = "qa_documents"
)

// DocumentCategories lists the valid top-level categories in display order.
func DocumentCategories() []DocumentCategory {
	return []DocumentCategory{CategoryProgramDetails, CategoryCurriculum, CategoryQADocuments}
}

func (c DocumentCategory) Valid() bool {
	switch c {
	case CategoryProgramDetails, CategoryCurriculum, CategoryQADocuments:
		return true
	}
	return false
}

// KnowledgeDocument is the metadata row for an uploaded knowledge-base
// document. The file itself lives in object storage under FileURL.
// swagger:model KnowledgeDocument
type KnowledgeDocument struct {
	UUIDBase
	FileName string           `gorm:"size:255;not null" json:"fileName"`
	FileURL  string           `gorm:"size:512;not null" json:"fileUrl"`
	FileSize int64            `json:"fileSize"`
	MimeType string           `gorm:"size:128" json:"mimeType"`
	Category DocumentCategory `gorm:"type:varchar(40);index;not null" json:"category"`

	// 课程分类与课程名标签，上传时经过级联校验
	CourseCategories json.RawMessage `gorm:"type:json" json:"courseCategories"`
	CourseNames      json.RawMessage `gorm:"type:json" json:"courseNames"`

	UploadedBy uint `gorm:"index" json:"uploadedBy"`
}

func (KnowledgeDocument) TableName() string {
	return "knowledge_documents"
}
