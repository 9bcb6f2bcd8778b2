// Package entity 定义领域实体
package entity

import (
	"time"
)

// DocumentStatus 文档处理状态
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document 文档实体
type Document struct {
	ID              string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AccountID       string         `json:"account_id" gorm:"type:uuid;index;not null"`
	ProjectID       string         `json:"project_id" gorm:"type:uuid;index;not null"`
	FileName        string         `json:"file_name" gorm:"type:varchar(512);not null"`
	FileType        string         `json:"file_type" gorm:"type:varchar(128)"`
	FileSize        int64          `json:"file_size" gorm:"not null;default:0"`
	ContentHash     string         `json:"content_hash" gorm:"type:char(64);index"`
	Status          DocumentStatus `json:"status" gorm:"type:varchar(32);default:'pending'"`
	ChunkCount      int            `json:"chunk_count" gorm:"not null;default:0"`
	ProcessingError string         `json:"processing_error,omitempty" gorm:"type:text"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Document) TableName() string {
	return "documents"
}

// NewDocument 创建新文档记录
// ContentHash 在抽取完成后回填，创建时为空
func NewDocument(accountID, projectID, fileName, fileType string, fileSize int64) *Document {
	now := time.Now()
	return &Document{
		AccountID: accountID,
		ProjectID: projectID,
		FileName:  fileName,
		FileType:  fileType,
		FileSize:  fileSize,
		Status:    DocumentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal 检查文档是否已进入终态
func (d *Document) IsTerminal() bool {
	return d.Status == DocumentStatusCompleted || d.Status == DocumentStatusFailed
}
