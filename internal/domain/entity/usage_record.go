// Package entity 定义领域实体
package entity

import (
	"time"
)

// UsageRecord 单次计费调用的用量记录
type UsageRecord struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AccountID  string    `json:"account_id" gorm:"type:uuid;index;not null"`
	APIKeyID   string    `json:"api_key_id,omitempty" gorm:"type:uuid;index"`
	Endpoint   string    `json:"endpoint" gorm:"type:varchar(128);not null"`
	TokensUsed int64     `json:"tokens_used" gorm:"not null;default:0"`
	Cost       float64   `json:"cost" gorm:"type:numeric(12,6);not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (UsageRecord) TableName() string {
	return "usage_tracking"
}

// EstimateCost 按每千 token 单价估算成本
func EstimateCost(tokens int64, costPer1K float64) float64 {
	return float64(tokens) / 1000 * costPer1K
}
