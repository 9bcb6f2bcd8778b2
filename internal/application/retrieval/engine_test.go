package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
)

type embedderStub struct {
	err error
}

func (s *embedderStub) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.1, 0.2, 0.3}
	}
	return out, nil
}

type searcherStub struct {
	results []*VectorSearchResult
	err     error

	lastParams *VectorSearchParams
}

func (s *searcherStub) EnsureChunkCollection(ctx context.Context) error {
	return nil
}

func (s *searcherStub) SearchChunks(ctx context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error) {
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// result 以相似度构造检索结果（Score 为 COSINE 距离）
func result(id string, similarity float64) *VectorSearchResult {
	return &VectorSearchResult{
		ID:          id,
		Score:       float32(1 - similarity),
		TextContent: "content of " + id,
		DocumentID:  "doc-" + id,
		ChunkIndex:  1,
	}
}

func newTestEngine(searcher VectorSearcher) *Engine {
	return NewEngine(&embedderStub{}, searcher, 5, 50, 0.7)
}

func TestEngineSearch(t *testing.T) {
	searcher := &searcherStub{results: []*VectorSearchResult{
		result("a", 0.75),
		result("b", 0.95),
		result("c", 0.85),
	}}
	e := newTestEngine(searcher)

	out, err := e.Search(context.Background(), SearchInput{
		AccountID: "acct-1",
		ProjectID: "proj-1",
		Query:     "how to configure",
	})
	require.NoError(t, err)

	// 按相似度降序
	require.Len(t, out.Matches, 3)
	assert.Equal(t, "b", out.Matches[0].ID)
	assert.Equal(t, "c", out.Matches[1].ID)
	assert.Equal(t, "a", out.Matches[2].ID)
	assert.InDelta(t, 0.95, out.Matches[0].Similarity, 1e-6)

	assert.Equal(t, "acct-1", searcher.lastParams.AccountID)
	assert.Equal(t, "proj-1", searcher.lastParams.ProjectID)
}

func TestEngineSearchThresholdFilter(t *testing.T) {
	searcher := &searcherStub{results: []*VectorSearchResult{
		result("keep", 0.9),
		result("drop", 0.3),
	}}
	e := newTestEngine(searcher)

	out, err := e.Search(context.Background(), SearchInput{
		AccountID: "acct-1",
		Query:     "q",
	})
	require.NoError(t, err)

	require.Len(t, out.Matches, 1)
	assert.Equal(t, "keep", out.Matches[0].ID)
}

func TestEngineSearchCustomThreshold(t *testing.T) {
	searcher := &searcherStub{results: []*VectorSearchResult{
		result("a", 0.5),
		result("b", 0.2),
	}}
	e := newTestEngine(searcher)

	out, err := e.Search(context.Background(), SearchInput{
		AccountID: "acct-1",
		Query:     "q",
		Threshold: 0.4,
	})
	require.NoError(t, err)

	require.Len(t, out.Matches, 1)
	assert.Equal(t, "a", out.Matches[0].ID)
}

func TestEngineSearchEmptyResultIsNotError(t *testing.T) {
	e := newTestEngine(&searcherStub{})

	out, err := e.Search(context.Background(), SearchInput{
		AccountID: "acct-1",
		Query:     "nothing matches",
	})
	require.NoError(t, err)
	assert.Empty(t, out.Matches)
}

func TestEngineSearchDefaultProject(t *testing.T) {
	searcher := &searcherStub{}
	e := newTestEngine(searcher)

	_, err := e.Search(context.Background(), SearchInput{
		AccountID: "acct-1",
		Query:     "q",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.DefaultProjectID("acct-1"), searcher.lastParams.ProjectID)
}

func TestEngineSearchLimitClamped(t *testing.T) {
	searcher := &searcherStub{}
	e := newTestEngine(searcher)

	_, err := e.Search(context.Background(), SearchInput{
		AccountID: "acct-1",
		Query:     "q",
		Limit:     500,
	})
	require.NoError(t, err)

	assert.Equal(t, 50, searcher.lastParams.TopK)
}

func TestEngineSearchInvalidInput(t *testing.T) {
	e := newTestEngine(&searcherStub{})

	_, err := e.Search(context.Background(), SearchInput{Query: "q"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidParam, apperrors.AsAppError(err).Code)

	_, err = e.Search(context.Background(), SearchInput{AccountID: "acct-1", Query: "   "})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidParam, apperrors.AsAppError(err).Code)
}

func TestEngineSearchVectorFailure(t *testing.T) {
	e := newTestEngine(&searcherStub{err: errors.New("milvus unavailable")})

	_, err := e.Search(context.Background(), SearchInput{
		AccountID: "acct-1",
		Query:     "q",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSearchFailed, apperrors.AsAppError(err).Code)
}

func TestEngineSearchEmbedderFailure(t *testing.T) {
	e := NewEngine(&embedderStub{err: errors.New("embed down")}, &searcherStub{}, 5, 50, 0.7)

	_, err := e.Search(context.Background(), SearchInput{
		AccountID: "acct-1",
		Query:     "q",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSearchFailed, apperrors.AsAppError(err).Code)
}

func TestEngineSearchDisabled(t *testing.T) {
	var nilEngine *Engine
	_, err := nilEngine.Search(context.Background(), SearchInput{AccountID: "a", Query: "q"})
	assert.ErrorIs(t, err, ErrVectorDisabled)

	e := NewEngine(nil, nil, 5, 50, 0.7)
	_, err = e.Search(context.Background(), SearchInput{AccountID: "a", Query: "q"})
	assert.ErrorIs(t, err, ErrVectorDisabled)
}

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine(&embedderStub{}, &searcherStub{}, 0, 0, 0)

	assert.Equal(t, defaultLimit, e.limit)
	assert.Equal(t, maxLimit, e.maxLimit)
	assert.InDelta(t, defaultThreshold, e.threshold, 1e-9)
}
