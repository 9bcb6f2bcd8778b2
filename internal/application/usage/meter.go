// Package usage 提供账户用量计量能力
package usage

import (
	"context"
	"time"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
	"github.com/shreyan01/ruberic/pkg/logger"
	"github.com/shreyan01/ruberic/pkg/metrics"
)

// Meter 用量计量器
type Meter struct {
	accountRepo repository.AccountRepository
	usageRepo   repository.UsageRepository

	// costPer1K 每千 token 估算单价
	costPer1K float64
}

// NewMeter 创建用量计量器
func NewMeter(accountRepo repository.AccountRepository, usageRepo repository.UsageRepository, costPer1K float64) *Meter {
	return &Meter{
		accountRepo: accountRepo,
		usageRepo:   usageRepo,
		costPer1K:   costPer1K,
	}
}

// EstimateTokens 按约 4 字符/token 估算文本的 token 数
// 嵌入调用不回报用量，上传与检索按此估算计费，非空输入至少计 1
func EstimateTokens(chars int) int64 {
	if chars <= 0 {
		return 0
	}
	tokens := int64(chars) / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

// CheckLimit 检查账户是否仍有额度
// current_usage >= usage_limit 时拒绝
func (m *Meter) CheckLimit(ctx context.Context, accountID string) error {
	account, err := m.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.WithinLimit() {
		metrics.UsageLimitRejections.Inc()
		return apperrors.ErrUsageLimitExceeded
	}
	return nil
}

// Record 记录一次计费调用
// 用量累加是权威数据，失败向上返回；明细记录为旁路动作，失败只记日志。
func (m *Meter) Record(ctx context.Context, accountID, apiKeyID, endpoint string, tokens int64) error {
	if err := m.accountRepo.IncrementUsage(ctx, accountID, tokens); err != nil {
		return err
	}
	metrics.UsageIncrementsTotal.WithLabelValues(endpoint).Inc()

	record := &entity.UsageRecord{
		AccountID:  accountID,
		APIKeyID:   apiKeyID,
		Endpoint:   endpoint,
		TokensUsed: tokens,
		Cost:       entity.EstimateCost(tokens, m.costPer1K),
	}
	if err := m.usageRepo.Create(ctx, record); err != nil {
		logger.FromContext(ctx).Warn("failed to write usage record",
			"account_id", accountID,
			"endpoint", endpoint,
			"error", err,
		)
	}
	return nil
}

// Consume 条件式消费额度
// 仅当剩余额度足够时累加，返回是否成功；用于需要先占额度的调用路径。
func (m *Meter) Consume(ctx context.Context, accountID string, tokens int64) error {
	ok, err := m.accountRepo.ConsumeWithinLimit(ctx, accountID, tokens)
	if err != nil {
		return err
	}
	if !ok {
		metrics.UsageLimitRejections.Inc()
		return apperrors.ErrUsageLimitExceeded
	}
	return nil
}

// Snapshot 返回账户当前额度快照
func (m *Meter) Snapshot(ctx context.Context, accountID string) (*entity.Account, error) {
	return m.accountRepo.GetByID(ctx, accountID)
}

// Cost 按当前单价估算 token 费用
func (m *Meter) Cost(tokens int64) float64 {
	return entity.EstimateCost(tokens, m.costPer1K)
}

// Report 汇总账户时间范围内的用量
func (m *Meter) Report(ctx context.Context, accountID string, from, to time.Time) (*repository.UsageSummary, error) {
	return m.usageRepo.Summarize(ctx, accountID, from, to)
}

// Records 获取账户时间范围内的用量明细
func (m *Meter) Records(ctx context.Context, accountID string, from, to time.Time, pagination repository.Pagination) (*repository.PagedResult[*entity.UsageRecord], error) {
	return m.usageRepo.ListByAccount(ctx, accountID, from, to, pagination)
}
