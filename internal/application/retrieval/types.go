package retrieval

// SearchInput 相似检索输入。
type SearchInput struct {
	AccountID string
	ProjectID string
	Query     string

	// Limit 为 0 时使用引擎默认值
	Limit int
	// Threshold 为 0 时使用引擎默认值
	Threshold float64

	IncludeEmbedding bool
}

// Match 单条检索命中
type Match struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int64   `json:"chunk_index"`
}

// SearchOutput 检索结果
type SearchOutput struct {
	Matches []Match

	QueryEmbedding []float32
}
