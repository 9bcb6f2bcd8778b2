package ingest

import "context"

// VectorIndex 定义摄取流水线对向量存储的最小依赖（port）。
// 由基础设施层提供具体实现（例如 Milvus）。
type VectorIndex interface {
	EnsureChunkCollection(ctx context.Context) error
	InsertChunks(ctx context.Context, accountID, projectID string, chunks []*VectorChunk) error
	DeleteChunksByDocument(ctx context.Context, accountID, projectID, documentID string) error
}

// VectorChunk 待写入向量存储的分块
type VectorChunk struct {
	ID          string
	AccountID   string
	ProjectID   string
	DocumentID  string
	ChunkIndex  int64
	TextContent string
	Vector      []float32
}
