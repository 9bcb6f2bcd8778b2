// Package entity 定义领域实体
package entity

import (
	"time"
)

// ChunkMetadata 分块元数据
type ChunkMetadata struct {
	FileName string `json:"file_name,omitempty"`
	FileType string `json:"file_type,omitempty"`
	// Extra 扩展元数据，键值对形式
	Extra map[string]string `json:"extra,omitempty"`
}

// DocumentChunk 文档分块实体
// 文本内容落在 Postgres，向量落在 Milvus，二者以 (document_id, chunk_index) 对齐
type DocumentChunk struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentID    string         `json:"document_id" gorm:"type:uuid;index;not null"`
	AccountID     string         `json:"account_id" gorm:"type:uuid;index;not null"`
	ProjectID     string         `json:"project_id" gorm:"type:uuid;index;not null"`
	ChunkIndex    int            `json:"chunk_index" gorm:"not null"`
	Content       string         `json:"content" gorm:"type:text;not null"`
	ContentLength int            `json:"content_length" gorm:"not null;default:0"`
	Metadata      *ChunkMetadata `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// NewDocumentChunk 创建文档分块
func NewDocumentChunk(doc *Document, index int, content string) *DocumentChunk {
	return &DocumentChunk{
		DocumentID:    doc.ID,
		AccountID:     doc.AccountID,
		ProjectID:     doc.ProjectID,
		ChunkIndex:    index,
		Content:       content,
		ContentLength: len(content),
		Metadata: &ChunkMetadata{
			FileName: doc.FileName,
			FileType: doc.FileType,
		},
		CreatedAt: time.Now(),
	}
}
