// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"github.com/shreyan01/ruberic/internal/domain/entity"
)

// APIKeyRepository API 密钥仓储接口
type APIKeyRepository interface {
	// Create 创建密钥记录
	Create(ctx context.Context, key *entity.APIKey) error

	// GetByID 根据 ID 获取密钥
	GetByID(ctx context.Context, id string) (*entity.APIKey, error)

	// GetByHash 根据密钥散列查找
	GetByHash(ctx context.Context, keyHash string) (*entity.APIKey, error)

	// ListByAccount 获取账户下的密钥列表
	ListByAccount(ctx context.Context, accountID string, pagination Pagination) (*PagedResult[*entity.APIKey], error)

	// Deactivate 停用密钥
	Deactivate(ctx context.Context, id string) error

	// Delete 删除密钥
	Delete(ctx context.Context, id string) error

	// TouchUsage 原子累加使用次数并刷新最近使用时间
	TouchUsage(ctx context.Context, id string, usedAt time.Time) error
}
