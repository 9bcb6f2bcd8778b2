// Package entity 定义领域实体
package entity

import (
	"time"
)

// AccountTier 账户等级
type AccountTier string

const (
	AccountTierFree       AccountTier = "free"
	AccountTierPro        AccountTier = "pro"
	AccountTierEnterprise AccountTier = "enterprise"
)

// Account 账户实体，持有用量额度
type Account struct {
	ID           string      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email        string      `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name         string      `json:"name" gorm:"type:varchar(255)"`
	Tier         AccountTier `json:"tier" gorm:"type:varchar(32);default:'free'"`
	UsageLimit   int64       `json:"usage_limit" gorm:"not null;default:10000"`
	CurrentUsage int64       `json:"current_usage" gorm:"not null;default:0"`
	CreatedAt    time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Account) TableName() string {
	return "accounts"
}

// NewAccount 创建新账户
func NewAccount(email, name string) *Account {
	now := time.Now()
	return &Account{
		Email:      email,
		Name:       name,
		Tier:       AccountTierFree,
		UsageLimit: 10000,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// WithinLimit 检查当前用量是否仍在额度内
// current_usage == usage_limit 视为已耗尽
func (a *Account) WithinLimit() bool {
	return a.CurrentUsage < a.UsageLimit
}

// Remaining 剩余额度
func (a *Account) Remaining() int64 {
	if a.CurrentUsage >= a.UsageLimit {
		return 0
	}
	return a.UsageLimit - a.CurrentUsage
}
