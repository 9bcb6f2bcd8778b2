// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
)

// DocumentRepository 文档仓储实现
type DocumentRepository struct {
	client *Client
}

// NewDocumentRepository 创建文档仓储
func NewDocumentRepository(client *Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

// Create 创建文档记录
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(doc).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取文档
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var doc entity.Document
	if err := db.Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDocumentNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// List 获取文档列表
func (r *DocumentRepository) List(ctx context.Context, filter *repository.DocumentFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)

	query := db.Model(&entity.Document{})
	if filter != nil {
		if filter.AccountID != "" {
			query = query.Where("account_id = ?", filter.AccountID)
		}
		if filter.ProjectID != "" {
			query = query.Where("project_id = ?", filter.ProjectID)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	var docs []*entity.Document
	if err := query.
		Order("created_at DESC").
		Limit(pagination.Limit()).
		Offset(pagination.Offset()).
		Find(&docs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return repository.NewPagedResult(docs, total, pagination), nil
}

// UpdateStatus 更新文档状态
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus, chunkCount int, processingError string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.UpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)

	updates := map[string]interface{}{
		"status":           status,
		"chunk_count":      chunkCount,
		"processing_error": processingError,
	}

	result := db.Model(&entity.Document{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to update document status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrDocumentNotFound
	}
	return nil
}

// UpdateContentHash 回填抽取文本的内容哈希
func (r *DocumentRepository) UpdateContentHash(ctx context.Context, id, contentHash string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.UpdateContentHash")
	defer span.End()

	db := getDB(ctx, r.client.db)

	result := db.Model(&entity.Document{}).Where("id = ?", id).
		Update("content_hash", contentHash)
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to update document content hash: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrDocumentNotFound
	}
	return nil
}

// Delete 删除文档记录
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)

	result := db.Where("id = ?", id).Delete(&entity.Document{})
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrDocumentNotFound
	}
	return nil
}

// CreateChunks 批量创建文档分块
// 单条 INSERT 批量写入，借助外层事务保证全量成功或全量失败
func (r *DocumentRepository) CreateChunks(ctx context.Context, chunks []*entity.DocumentChunk) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.CreateChunks")
	defer span.End()

	if len(chunks) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.CreateInBatches(chunks, 500).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create document chunks: %w", err)
	}
	return nil
}

// ListChunks 获取文档的分块列表，按 chunk_index 升序
func (r *DocumentRepository) ListChunks(ctx context.Context, documentID string, pagination repository.Pagination) (*repository.PagedResult[*entity.DocumentChunk], error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.ListChunks")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var total int64
	if err := db.Model(&entity.DocumentChunk{}).Where("document_id = ?", documentID).Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count document chunks: %w", err)
	}

	var chunks []*entity.DocumentChunk
	if err := db.Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Limit(pagination.Limit()).
		Offset(pagination.Offset()).
		Find(&chunks).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list document chunks: %w", err)
	}

	return repository.NewPagedResult(chunks, total, pagination), nil
}

// DeleteChunksByDocument 删除文档的全部分块
func (r *DocumentRepository) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.DeleteChunksByDocument")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Where("document_id = ?", documentID).Delete(&entity.DocumentChunk{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete document chunks: %w", err)
	}
	return nil
}
