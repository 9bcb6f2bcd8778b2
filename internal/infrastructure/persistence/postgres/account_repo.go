// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
)

// AccountRepository 账户仓储实现
type AccountRepository struct {
	client *Client
}

// NewAccountRepository 创建账户仓储
func NewAccountRepository(client *Client) *AccountRepository {
	return &AccountRepository{client: client}
}

// Create 创建账户
func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) error {
	ctx, span := tracer.Start(ctx, "postgres.AccountRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(account).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取账户
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	ctx, span := tracer.Start(ctx, "postgres.AccountRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var account entity.Account
	if err := db.Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetByEmail 根据邮箱获取账户
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	ctx, span := tracer.Start(ctx, "postgres.AccountRepository.GetByEmail")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var account entity.Account
	if err := db.Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

// Update 更新账户
func (r *AccountRepository) Update(ctx context.Context, account *entity.Account) error {
	ctx, span := tracer.Start(ctx, "postgres.AccountRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(account).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// IncrementUsage 原子累加当前用量
// UPDATE ... SET current_usage = current_usage + delta，避免读改写竞态
func (r *AccountRepository) IncrementUsage(ctx context.Context, id string, delta int64) error {
	ctx, span := tracer.Start(ctx, "postgres.AccountRepository.IncrementUsage")
	defer span.End()

	db := getDB(ctx, r.client.db)

	result := db.Model(&entity.Account{}).
		Where("id = ?", id).
		Update("current_usage", gorm.Expr("current_usage + ?", delta))
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to increment usage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}

// ConsumeWithinLimit 条件式消费额度
// WHERE 子句带额度判断，RowsAffected == 0 且账户存在时表示额度不足
func (r *AccountRepository) ConsumeWithinLimit(ctx context.Context, id string, delta int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.AccountRepository.ConsumeWithinLimit")
	defer span.End()

	db := getDB(ctx, r.client.db)

	result := db.Model(&entity.Account{}).
		Where("id = ? AND current_usage + ? <= usage_limit", id, delta).
		Update("current_usage", gorm.Expr("current_usage + ?", delta))
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to consume usage: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// 区分账户不存在与额度不足
	var count int64
	if err := db.Model(&entity.Account{}).Where("id = ?", id).Count(&count).Error; err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	if count == 0 {
		return false, apperrors.ErrAccountNotFound
	}
	return false, nil
}
