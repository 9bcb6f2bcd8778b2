// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
)

// APIKeyRepository API 密钥仓储实现
type APIKeyRepository struct {
	client *Client
}

// NewAPIKeyRepository 创建 API 密钥仓储
func NewAPIKeyRepository(client *Client) *APIKeyRepository {
	return &APIKeyRepository{client: client}
}

// Create 创建密钥记录
func (r *APIKeyRepository) Create(ctx context.Context, key *entity.APIKey) error {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(key).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取密钥
func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*entity.APIKey, error) {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var key entity.APIKey
	if err := db.Where("id = ?", id).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAPIKeyNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return &key, nil
}

// GetByHash 根据密钥散列查找
func (r *APIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*entity.APIKey, error) {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.GetByHash")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var key entity.APIKey
	if err := db.Where("key_hash = ?", keyHash).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAPIKeyNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get api key by hash: %w", err)
	}
	return &key, nil
}

// ListByAccount 获取账户下的密钥列表
func (r *APIKeyRepository) ListByAccount(ctx context.Context, accountID string, pagination repository.Pagination) (*repository.PagedResult[*entity.APIKey], error) {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.ListByAccount")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var total int64
	if err := db.Model(&entity.APIKey{}).Where("account_id = ?", accountID).Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count api keys: %w", err)
	}

	var keys []*entity.APIKey
	if err := db.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(pagination.Limit()).
		Offset(pagination.Offset()).
		Find(&keys).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}

	return repository.NewPagedResult(keys, total, pagination), nil
}

// Deactivate 停用密钥
func (r *APIKeyRepository) Deactivate(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.Deactivate")
	defer span.End()

	db := getDB(ctx, r.client.db)

	result := db.Model(&entity.APIKey{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to deactivate api key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAPIKeyNotFound
	}
	return nil
}

// Delete 删除密钥
func (r *APIKeyRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)

	result := db.Where("id = ?", id).Delete(&entity.APIKey{})
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to delete api key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAPIKeyNotFound
	}
	return nil
}

// TouchUsage 原子累加使用次数并刷新最近使用时间
func (r *APIKeyRepository) TouchUsage(ctx context.Context, id string, usedAt time.Time) error {
	ctx, span := tracer.Start(ctx, "postgres.APIKeyRepository.TouchUsage")
	defer span.End()

	db := getDB(ctx, r.client.db)

	if err := db.Model(&entity.APIKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": usedAt,
		}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to touch api key usage: %w", err)
	}
	return nil
}
