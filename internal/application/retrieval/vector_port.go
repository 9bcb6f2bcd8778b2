package retrieval

import "context"

// VectorSearcher 定义检索引擎对向量存储的最小依赖（port）。
// 由基础设施层提供具体实现（例如 Milvus）。
type VectorSearcher interface {
	EnsureChunkCollection(ctx context.Context) error
	SearchChunks(ctx context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error)
}

// VectorSearchParams 向量检索参数
type VectorSearchParams struct {
	AccountID   string
	ProjectID   string
	QueryVector []float32
	TopK        int
}

// VectorSearchResult 向量检索结果
// Score 为 Milvus 返回的 COSINE 距离
type VectorSearchResult struct {
	ID          string
	Score       float32
	TextContent string
	DocumentID  string
	ChunkIndex  int64
}
