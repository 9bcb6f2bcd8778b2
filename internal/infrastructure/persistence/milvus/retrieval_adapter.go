package milvus

import (
	"context"

	"github.com/shreyan01/ruberic/internal/application/ingest"
	"github.com/shreyan01/ruberic/internal/application/retrieval"
)

// ChunkVectorRepository 将 Milvus 仓储适配到应用层的向量 port
type ChunkVectorRepository struct {
	repo *Repository
}

// NewChunkVectorRepository 创建向量 port 适配器
func NewChunkVectorRepository(repo *Repository) *ChunkVectorRepository {
	return &ChunkVectorRepository{repo: repo}
}

var (
	_ retrieval.VectorSearcher = (*ChunkVectorRepository)(nil)
	_ ingest.VectorIndex       = (*ChunkVectorRepository)(nil)
)

func (r *ChunkVectorRepository) EnsureChunkCollection(ctx context.Context) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.EnsureChunkCollection(ctx)
}

func (r *ChunkVectorRepository) SearchChunks(ctx context.Context, params *retrieval.VectorSearchParams) ([]*retrieval.VectorSearchResult, error) {
	if r == nil || r.repo == nil {
		return nil, retrieval.ErrVectorDisabled
	}
	if params == nil {
		return nil, nil
	}

	out, err := r.repo.SearchChunks(ctx, &SearchParams{
		AccountID:   params.AccountID,
		ProjectID:   params.ProjectID,
		QueryVector: params.QueryVector,
		TopK:        params.TopK,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*retrieval.VectorSearchResult, 0, len(out))
	for i := range out {
		v := out[i]
		if v == nil {
			continue
		}
		results = append(results, &retrieval.VectorSearchResult{
			ID:          v.ID,
			Score:       v.Score,
			TextContent: v.TextContent,
			DocumentID:  v.DocumentID,
			ChunkIndex:  v.ChunkIndex,
		})
	}
	return results, nil
}

func (r *ChunkVectorRepository) InsertChunks(ctx context.Context, accountID, projectID string, chunks []*ingest.VectorChunk) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	if len(chunks) == 0 {
		return nil
	}

	out := make([]*ChunkVector, 0, len(chunks))
	for i := range chunks {
		c := chunks[i]
		if c == nil {
			continue
		}
		out = append(out, &ChunkVector{
			ID:          c.ID,
			AccountID:   c.AccountID,
			ProjectID:   c.ProjectID,
			DocumentID:  c.DocumentID,
			ChunkIndex:  c.ChunkIndex,
			TextContent: c.TextContent,
			Vector:      c.Vector,
		})
	}
	return r.repo.InsertChunks(ctx, accountID, projectID, out)
}

func (r *ChunkVectorRepository) DeleteChunksByDocument(ctx context.Context, accountID, projectID, documentID string) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.DeleteChunksByDocument(ctx, accountID, projectID, documentID)
}
