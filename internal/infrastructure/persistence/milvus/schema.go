// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionDocumentChunks 文档分块集合
	CollectionDocumentChunks = "document_chunks"

	// VectorDimension 向量维度，对应 text-embedding-ada-002
	VectorDimension = 1536
)

// DocumentChunksSchema 文档分块 Collection Schema
func DocumentChunksSchema() *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionDocumentChunks,
		Description:    "Document chunk embeddings for semantic retrieval",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": "1536",
				},
			},
			{
				Name:     "account_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "project_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "document_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "text_content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

// ChunkVector 文档分块向量数据结构
type ChunkVector struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	AccountID   string    `json:"account_id"`
	ProjectID   string    `json:"project_id"`
	DocumentID  string    `json:"document_id"`
	ChunkIndex  int64     `json:"chunk_index"`
	TextContent string    `json:"text_content"`
}

// PartitionName 生成分区名称
func PartitionName(accountID, projectID string) string {
	return "acct_" + accountID + "_proj_" + projectID
}
