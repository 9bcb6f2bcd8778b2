// Package entity 定义领域实体
package entity

import (
	"time"
)

// APIKey API 密钥实体
// 只持久化密钥散列，明文仅在创建时返回一次
type APIKey struct {
	ID         string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AccountID  string     `json:"account_id" gorm:"type:uuid;index;not null"`
	KeyHash    string     `json:"-" gorm:"type:char(64);uniqueIndex;not null"`
	KeyPrefix  string     `json:"key_prefix" gorm:"type:varchar(16);not null"`
	Name       string     `json:"name" gorm:"type:varchar(255)"`
	IsActive   bool       `json:"is_active" gorm:"not null;default:true"`
	UsageCount int64      `json:"usage_count" gorm:"not null;default:0"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (APIKey) TableName() string {
	return "api_keys"
}

// IsExpired 检查密钥是否已过期
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// Usable 检查密钥是否可用于认证
func (k *APIKey) Usable(now time.Time) bool {
	return k.IsActive && !k.IsExpired(now)
}
