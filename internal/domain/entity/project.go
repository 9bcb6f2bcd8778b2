// Package entity 定义领域实体
package entity

import (
	"time"
)

// Project 文档项目实体
// 项目是文档和检索的隔离边界；未显式指定项目时以账户 ID 作为默认项目
type Project struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AccountID   string    `json:"account_id" gorm:"type:uuid;index;not null"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// NewProject 创建新项目
func NewProject(accountID, name, description string) *Project {
	now := time.Now()
	return &Project{
		AccountID:   accountID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DefaultProjectID 返回账户的默认项目标识
// 与账户 ID 同值，调用方不需要事先创建项目即可摄取文档
func DefaultProjectID(accountID string) string {
	return accountID
}
