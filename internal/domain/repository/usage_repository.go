// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"github.com/shreyan01/ruberic/internal/domain/entity"
)

// UsageSummary 账户用量汇总
type UsageSummary struct {
	TotalRequests int64   `json:"total_requests"`
	TotalTokens   int64   `json:"total_tokens"`
	TotalCost     float64 `json:"total_cost"`
}

// UsageRepository 用量记录仓储接口
type UsageRepository interface {
	// Create 写入一条用量记录
	Create(ctx context.Context, record *entity.UsageRecord) error

	// ListByAccount 获取账户时间范围内的用量记录
	ListByAccount(ctx context.Context, accountID string, from, to time.Time, pagination Pagination) (*PagedResult[*entity.UsageRecord], error)

	// Summarize 汇总账户时间范围内的用量
	Summarize(ctx context.Context, accountID string, from, to time.Time) (*UsageSummary, error)
}
