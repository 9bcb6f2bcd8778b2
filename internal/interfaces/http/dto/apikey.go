// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"github.com/shreyan01/ruberic/internal/domain/entity"
)

// CreateAPIKeyRequest 创建密钥请求
type CreateAPIKeyRequest struct {
	Name      string     `json:"name" binding:"required,max=255"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// APIKeyResponse 密钥响应，永不包含散列或明文
type APIKeyResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	IsActive   bool       `json:"is_active"`
	UsageCount int64      `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateAPIKeyResponse 创建密钥结果
// Key 为明文，仅在本响应中返回一次
type CreateAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

// APIKeyListResponse 密钥列表响应
type APIKeyListResponse struct {
	Keys []*APIKeyResponse `json:"keys"`
}

// ToAPIKeyResponse 将领域实体转换为响应 DTO
func ToAPIKeyResponse(k *entity.APIKey) *APIKeyResponse {
	if k == nil {
		return nil
	}
	return &APIKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		IsActive:   k.IsActive,
		UsageCount: k.UsageCount,
		LastUsedAt: k.LastUsedAt,
		ExpiresAt:  k.ExpiresAt,
		CreatedAt:  k.CreatedAt,
	}
}

// ToAPIKeyListResponse 将领域实体列表转换为响应 DTO
func ToAPIKeyListResponse(keys []*entity.APIKey) *APIKeyListResponse {
	resp := &APIKeyListResponse{
		Keys: make([]*APIKeyResponse, 0, len(keys)),
	}
	for _, k := range keys {
		resp.Keys = append(resp.Keys, ToAPIKeyResponse(k))
	}
	return resp
}
