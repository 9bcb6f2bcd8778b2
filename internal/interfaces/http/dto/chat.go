// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"github.com/shreyan01/ruberic/internal/application/chat"
)

// ChatRequest 文档问答请求
type ChatRequest struct {
	Query     string `json:"query" binding:"required,max=4096"`
	ProjectID string `json:"project_id,omitempty" binding:"omitempty,uuid"`
	Provider  string `json:"provider,omitempty" binding:"omitempty,max=32"`
}

// ChatMetadata 问答元信息
type ChatMetadata struct {
	TokensUsed     int64   `json:"tokens_used"`
	Cost           float64 `json:"cost"`
	RelevantChunks int     `json:"relevant_chunks"`
	UsageRemaining int64   `json:"usage_remaining"`
	// Warning 检索降级时的提示信息
	Warning string `json:"warning,omitempty"`
}

// ChatResponse 问答响应
type ChatResponse struct {
	Answer   string         `json:"answer"`
	Sources  []*SearchMatch `json:"sources"`
	Metadata *ChatMetadata  `json:"metadata"`
}

// ToChatResponse 将问答结果转换为响应 DTO
func ToChatResponse(out *chat.Output, cost float64, remaining int64) *ChatResponse {
	resp := &ChatResponse{
		Answer:  out.Answer,
		Sources: ToSearchResponse(out.Sources).Matches,
		Metadata: &ChatMetadata{
			TokensUsed:     out.TokensUsed,
			Cost:           cost,
			RelevantChunks: len(out.Sources),
			UsageRemaining: remaining,
		},
	}
	if out.Degraded {
		resp.Metadata.Warning = "similarity search was unavailable; answered without document context"
	}
	return resp
}
