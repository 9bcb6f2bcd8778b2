// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"github.com/shreyan01/ruberic/internal/domain/entity"
)

// RegisterAccountRequest 注册账户请求
type RegisterAccountRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
	Name  string `json:"name" binding:"max=255"`
}

// AccountResponse 账户响应
type AccountResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Tier         string    `json:"tier"`
	UsageLimit   int64     `json:"usage_limit"`
	CurrentUsage int64     `json:"current_usage"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterAccountResponse 注册结果
// APIKey 为初始密钥明文，仅在本响应中返回一次
type RegisterAccountResponse struct {
	Account *AccountResponse `json:"account"`
	APIKey  string           `json:"api_key"`
}

// ToAccountResponse 将领域实体转换为响应 DTO
func ToAccountResponse(a *entity.Account) *AccountResponse {
	if a == nil {
		return nil
	}
	return &AccountResponse{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Name,
		Tier:         string(a.Tier),
		UsageLimit:   a.UsageLimit,
		CurrentUsage: a.CurrentUsage,
		CreatedAt:    a.CreatedAt,
	}
}
