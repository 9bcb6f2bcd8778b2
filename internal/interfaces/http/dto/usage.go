// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
)

// UsageReportResponse 账户用量报告
type UsageReportResponse struct {
	Tier           string  `json:"tier"`
	CurrentUsage   int64   `json:"current_usage"`
	UsageLimit     int64   `json:"usage_limit"`
	UsageRemaining int64   `json:"usage_remaining"`
	TotalRequests  int64   `json:"total_requests"`
	TotalTokens    int64   `json:"total_tokens"`
	TotalCost      float64 `json:"total_cost"`
}

// UsageRecordResponse 单条用量明细
type UsageRecordResponse struct {
	ID         string    `json:"id"`
	APIKeyID   string    `json:"api_key_id,omitempty"`
	Endpoint   string    `json:"endpoint"`
	TokensUsed int64     `json:"tokens_used"`
	Cost       float64   `json:"cost"`
	CreatedAt  time.Time `json:"created_at"`
}

// UsageRecordListResponse 用量明细列表响应
type UsageRecordListResponse struct {
	Records []*UsageRecordResponse `json:"records"`
}

// ToUsageReportResponse 组装用量报告
func ToUsageReportResponse(account *entity.Account, summary *repository.UsageSummary) *UsageReportResponse {
	resp := &UsageReportResponse{
		Tier:           string(account.Tier),
		CurrentUsage:   account.CurrentUsage,
		UsageLimit:     account.UsageLimit,
		UsageRemaining: account.Remaining(),
	}
	if summary != nil {
		resp.TotalRequests = summary.TotalRequests
		resp.TotalTokens = summary.TotalTokens
		resp.TotalCost = summary.TotalCost
	}
	return resp
}

// ToUsageRecordListResponse 将用量明细转换为响应 DTO
func ToUsageRecordListResponse(records []*entity.UsageRecord) *UsageRecordListResponse {
	resp := &UsageRecordListResponse{
		Records: make([]*UsageRecordResponse, 0, len(records)),
	}
	for _, r := range records {
		resp.Records = append(resp.Records, &UsageRecordResponse{
			ID:         r.ID,
			APIKeyID:   r.APIKeyID,
			Endpoint:   r.Endpoint,
			TokensUsed: r.TokensUsed,
			Cost:       r.Cost,
			CreatedAt:  r.CreatedAt,
		})
	}
	return resp
}
