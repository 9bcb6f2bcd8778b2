// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"github.com/shreyan01/ruberic/internal/domain/entity"
)

// DocumentResponse 文档响应
type DocumentResponse struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	FileName        string    `json:"file_name"`
	FileType        string    `json:"file_type,omitempty"`
	FileSize        int64     `json:"file_size"`
	ContentHash     string    `json:"content_hash,omitempty"`
	Status          string    `json:"status"`
	ChunkCount      int       `json:"chunk_count"`
	ProcessingError string    `json:"processing_error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DocumentListResponse 文档列表响应
type DocumentListResponse struct {
	Documents []*DocumentResponse `json:"documents"`
}

// ChunkResponse 文档分块响应
type ChunkResponse struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	ChunkIndex    int    `json:"chunk_index"`
	Content       string `json:"content"`
	ContentLength int    `json:"content_length"`
}

// ChunkListResponse 分块列表响应
type ChunkListResponse struct {
	Chunks []*ChunkResponse `json:"chunks"`
}

// ToDocumentResponse 将领域实体转换为响应 DTO
func ToDocumentResponse(d *entity.Document) *DocumentResponse {
	if d == nil {
		return nil
	}
	return &DocumentResponse{
		ID:              d.ID,
		ProjectID:       d.ProjectID,
		FileName:        d.FileName,
		FileType:        d.FileType,
		FileSize:        d.FileSize,
		ContentHash:     d.ContentHash,
		Status:          string(d.Status),
		ChunkCount:      d.ChunkCount,
		ProcessingError: d.ProcessingError,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// ToDocumentListResponse 将领域实体列表转换为响应 DTO
func ToDocumentListResponse(docs []*entity.Document) *DocumentListResponse {
	resp := &DocumentListResponse{
		Documents: make([]*DocumentResponse, 0, len(docs)),
	}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, ToDocumentResponse(d))
	}
	return resp
}

// ToChunkResponse 将分块实体转换为响应 DTO
func ToChunkResponse(c *entity.DocumentChunk) *ChunkResponse {
	if c == nil {
		return nil
	}
	return &ChunkResponse{
		ID:            c.ID,
		DocumentID:    c.DocumentID,
		ChunkIndex:    c.ChunkIndex,
		Content:       c.Content,
		ContentLength: c.ContentLength,
	}
}

// ToChunkListResponse 将分块实体列表转换为响应 DTO
func ToChunkListResponse(chunks []*entity.DocumentChunk) *ChunkListResponse {
	resp := &ChunkListResponse{
		Chunks: make([]*ChunkResponse, 0, len(chunks)),
	}
	for _, c := range chunks {
		resp.Chunks = append(resp.Chunks, ToChunkResponse(c))
	}
	return resp
}
