// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
)

// UsageRepository 用量记录仓储实现
type UsageRepository struct {
	client *Client
}

// NewUsageRepository 创建用量记录仓储
func NewUsageRepository(client *Client) *UsageRepository {
	return &UsageRepository{client: client}
}

// Create 写入一条用量记录
func (r *UsageRepository) Create(ctx context.Context, record *entity.UsageRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.UsageRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create usage record: %w", err)
	}
	return nil
}

// ListByAccount 获取账户时间范围内的用量记录
func (r *UsageRepository) ListByAccount(ctx context.Context, accountID string, from, to time.Time, pagination repository.Pagination) (*repository.PagedResult[*entity.UsageRecord], error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRepository.ListByAccount")
	defer span.End()

	db := getDB(ctx, r.client.db)

	query := db.Model(&entity.UsageRecord{}).
		Where("account_id = ? AND created_at >= ? AND created_at < ?", accountID, from, to)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count usage records: %w", err)
	}

	var records []*entity.UsageRecord
	if err := query.
		Order("created_at DESC").
		Limit(pagination.Limit()).
		Offset(pagination.Offset()).
		Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}

	return repository.NewPagedResult(records, total, pagination), nil
}

// Summarize 汇总账户时间范围内的用量
func (r *UsageRepository) Summarize(ctx context.Context, accountID string, from, to time.Time) (*repository.UsageSummary, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRepository.Summarize")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var summary repository.UsageSummary
	if err := db.Model(&entity.UsageRecord{}).
		Where("account_id = ? AND created_at >= ? AND created_at < ?", accountID, from, to).
		Select("COUNT(*) as total_requests, COALESCE(SUM(tokens_used),0) as total_tokens, COALESCE(SUM(cost),0) as total_cost").
		Scan(&summary).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}
	return &summary, nil
}
