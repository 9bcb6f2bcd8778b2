// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"github.com/shreyan01/ruberic/internal/application/retrieval"
)

// SearchRequest 相似检索请求
type SearchRequest struct {
	Query     string  `json:"query" binding:"required,max=4096"`
	ProjectID string  `json:"project_id,omitempty" binding:"omitempty,uuid"`
	Limit     int     `json:"limit,omitempty" binding:"omitempty,gte=1"`
	Threshold float64 `json:"threshold,omitempty" binding:"omitempty,gt=0,lte=1"`
}

// SearchMatch 单条检索命中
type SearchMatch struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int64   `json:"chunk_index"`
}

// SearchResponse 检索响应，按相似度降序
type SearchResponse struct {
	Matches []*SearchMatch `json:"matches"`
	Count   int            `json:"count"`
}

// ToSearchResponse 将检索结果转换为响应 DTO
func ToSearchResponse(matches []retrieval.Match) *SearchResponse {
	resp := &SearchResponse{
		Matches: make([]*SearchMatch, 0, len(matches)),
	}
	for i := range matches {
		m := matches[i]
		resp.Matches = append(resp.Matches, &SearchMatch{
			ID:         m.ID,
			Content:    m.Content,
			Similarity: m.Similarity,
			DocumentID: m.DocumentID,
			ChunkIndex: m.ChunkIndex,
		})
	}
	resp.Count = len(resp.Matches)
	return resp
}
