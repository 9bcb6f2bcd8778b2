// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"github.com/shreyan01/ruberic/internal/domain/entity"
)

// DocumentFilter 文档过滤条件
type DocumentFilter struct {
	AccountID string
	ProjectID string
	Status    entity.DocumentStatus
}

// DocumentRepository 文档仓储接口
type DocumentRepository interface {
	// Create 创建文档记录
	Create(ctx context.Context, doc *entity.Document) error

	// GetByID 根据 ID 获取文档
	GetByID(ctx context.Context, id string) (*entity.Document, error)

	// List 获取文档列表
	List(ctx context.Context, filter *DocumentFilter, pagination Pagination) (*PagedResult[*entity.Document], error)

	// UpdateStatus 更新文档状态
	// 终态 failed 时 processingError 记录失败原因，completed 时 chunkCount 记录分块数
	UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus, chunkCount int, processingError string) error

	// UpdateContentHash 回填抽取文本的内容哈希
	UpdateContentHash(ctx context.Context, id, contentHash string) error

	// Delete 删除文档记录
	Delete(ctx context.Context, id string) error

	// CreateChunks 批量创建文档分块，全量成功或全量失败
	CreateChunks(ctx context.Context, chunks []*entity.DocumentChunk) error

	// ListChunks 获取文档的分块列表，按 chunk_index 升序
	ListChunks(ctx context.Context, documentID string, pagination Pagination) (*PagedResult[*entity.DocumentChunk], error)

	// DeleteChunksByDocument 删除文档的全部分块
	DeleteChunksByDocument(ctx context.Context, documentID string) error
}
