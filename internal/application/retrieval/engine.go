package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
	"github.com/shreyan01/ruberic/pkg/metrics"
)

const (
	defaultLimit     = 5
	maxLimit         = 50
	defaultThreshold = 0.7
)

// Engine 相似检索引擎
// 将查询向量化后在账户+项目分区内召回，按相似度过滤排序。
type Engine struct {
	embedder embedding.Embedder
	vector   VectorSearcher

	limit     int
	maxLimit  int
	threshold float64
}

// NewEngine 创建检索引擎
func NewEngine(embedder embedding.Embedder, vector VectorSearcher, limit, max int, threshold float64) *Engine {
	if limit <= 0 {
		limit = defaultLimit
	}
	if max <= 0 {
		max = maxLimit
	}
	if threshold <= 0 || threshold > 1 {
		threshold = defaultThreshold
	}
	return &Engine{
		embedder:  embedder,
		vector:    vector,
		limit:     limit,
		maxLimit:  max,
		threshold: threshold,
	}
}

// Enabled 检查检索能力是否可用
func (e *Engine) Enabled() bool {
	return e != nil && e.embedder != nil && e.vector != nil
}

// Search 执行相似检索
// 向量存储或向量化失败时返回 ErrSearchFailed，由调用方决定是否降级。
func (e *Engine) Search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	if !e.Enabled() {
		return nil, ErrVectorDisabled
	}

	in.Query = strings.TrimSpace(in.Query)
	in.AccountID = strings.TrimSpace(in.AccountID)
	if in.AccountID == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "account_id is required")
	}
	if in.Query == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "query is required")
	}

	in.ProjectID = strings.TrimSpace(in.ProjectID)
	if in.ProjectID == "" {
		in.ProjectID = entity.DefaultProjectID(in.AccountID)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = e.limit
	}
	if limit > e.maxLimit {
		limit = e.maxLimit
	}

	threshold := e.threshold
	if in.Threshold > 0 {
		threshold = in.Threshold
	}

	if err := e.vector.EnsureChunkCollection(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "vector search failed")
	}

	emb, err := e.embedQuery(ctx, in.Query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "vector search failed")
	}

	start := time.Now()
	results, err := e.vector.SearchChunks(ctx, &VectorSearchParams{
		AccountID:   in.AccountID,
		ProjectID:   in.ProjectID,
		QueryVector: emb,
		TopK:        limit,
	})
	metrics.VectorSearchDuration.WithLabelValues("document_chunks").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VectorSearchTotal.WithLabelValues("document_chunks", "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "vector search failed")
	}
	metrics.VectorSearchTotal.WithLabelValues("document_chunks", "ok").Inc()

	out := &SearchOutput{
		Matches: make([]Match, 0, len(results)),
	}
	if in.IncludeEmbedding {
		out.QueryEmbedding = emb
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		// 将 COSINE 距离转换为相似度（distance = 1 - cos）
		similarity := 1 - float64(r.Score)
		if similarity < threshold {
			continue
		}
		out.Matches = append(out.Matches, Match{
			ID:         r.ID,
			Content:    r.TextContent,
			Similarity: similarity,
			DocumentID: r.DocumentID,
			ChunkIndex: r.ChunkIndex,
		})
	}

	sort.SliceStable(out.Matches, func(i, j int) bool {
		return out.Matches[i].Similarity > out.Matches[j].Similarity
	})
	if len(out.Matches) > limit {
		out.Matches = out.Matches[:limit]
	}

	return out, nil
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	v64, err := e.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(v64) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	vec := v64[0]
	out := make([]float32, len(vec))
	for i, x := range vec {
		out[i] = float32(x)
	}
	return out, nil
}
