// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"github.com/shreyan01/ruberic/internal/domain/entity"
)

// AccountRepository 账户仓储接口
type AccountRepository interface {
	// Create 创建账户
	Create(ctx context.Context, account *entity.Account) error

	// GetByID 根据 ID 获取账户
	GetByID(ctx context.Context, id string) (*entity.Account, error)

	// GetByEmail 根据邮箱获取账户
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)

	// Update 更新账户
	Update(ctx context.Context, account *entity.Account) error

	// IncrementUsage 原子累加当前用量
	// 无条件累加，不做额度判断；额度检查发生在请求入口
	IncrementUsage(ctx context.Context, id string, delta int64) error

	// ConsumeWithinLimit 条件式消费额度
	// 仅当 current_usage + delta <= usage_limit 时累加并返回 true
	ConsumeWithinLimit(ctx context.Context, id string, delta int64) (bool, error)
}
