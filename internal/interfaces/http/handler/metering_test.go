package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shreyan01/ruberic/internal/application/extract"
	"github.com/shreyan01/ruberic/internal/application/ingest"
	"github.com/shreyan01/ruberic/internal/application/retrieval"
	"github.com/shreyan01/ruberic/internal/application/usage"
	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	"github.com/shreyan01/ruberic/internal/interfaces/http/middleware"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
)

type meterAccountStub struct {
	mu       sync.Mutex
	accounts map[string]*entity.Account
}

func newMeterAccountStub(accounts ...*entity.Account) *meterAccountStub {
	s := &meterAccountStub{accounts: make(map[string]*entity.Account)}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *meterAccountStub) Create(ctx context.Context, account *entity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
	return nil
}

func (s *meterAccountStub) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *meterAccountStub) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return nil, apperrors.ErrAccountNotFound
}

func (s *meterAccountStub) Update(ctx context.Context, account *entity.Account) error {
	return nil
}

func (s *meterAccountStub) IncrementUsage(ctx context.Context, id string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return apperrors.ErrAccountNotFound
	}
	a.CurrentUsage += delta
	return nil
}

func (s *meterAccountStub) ConsumeWithinLimit(ctx context.Context, id string, delta int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return false, apperrors.ErrAccountNotFound
	}
	if a.CurrentUsage+delta > a.UsageLimit {
		return false, nil
	}
	a.CurrentUsage += delta
	return true, nil
}

func (s *meterAccountStub) currentUsage(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].CurrentUsage
}

type meterUsageRepoStub struct {
	mu      sync.Mutex
	records []*entity.UsageRecord
}

func (s *meterUsageRepoStub) Create(ctx context.Context, record *entity.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *meterUsageRepoStub) ListByAccount(ctx context.Context, accountID string, from, to time.Time, pagination repository.Pagination) (*repository.PagedResult[*entity.UsageRecord], error) {
	return repository.NewPagedResult([]*entity.UsageRecord{}, 0, pagination), nil
}

func (s *meterUsageRepoStub) Summarize(ctx context.Context, accountID string, from, to time.Time) (*repository.UsageSummary, error) {
	return &repository.UsageSummary{}, nil
}

func (s *meterUsageRepoStub) endpoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Endpoint)
	}
	return out
}

type handlerEmbedStub struct{}

func (s *handlerEmbedStub) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.1, 0.2, 0.3, 0.4}
	}
	return out, nil
}

type searchVectorStub struct {
	mu    sync.Mutex
	calls int
}

func (s *searchVectorStub) EnsureChunkCollection(ctx context.Context) error { return nil }

func (s *searchVectorStub) SearchChunks(ctx context.Context, params *retrieval.VectorSearchParams) ([]*retrieval.VectorSearchResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return []*retrieval.VectorSearchResult{
		{ID: uuid.NewString(), Score: 0.1, TextContent: "refunds are issued in 14 days", DocumentID: uuid.NewString(), ChunkIndex: 0},
	}, nil
}

func (s *searchVectorStub) searchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type indexVectorStub struct{}

func (s *indexVectorStub) EnsureChunkCollection(ctx context.Context) error { return nil }
func (s *indexVectorStub) InsertChunks(ctx context.Context, accountID, projectID string, chunks []*ingest.VectorChunk) error {
	return nil
}
func (s *indexVectorStub) DeleteChunksByDocument(ctx context.Context, accountID, projectID, documentID string) error {
	return nil
}

type ingestDocRepoStub struct {
	mu      sync.Mutex
	docs    map[string]*entity.Document
	creates int
}

func newIngestDocRepoStub() *ingestDocRepoStub {
	return &ingestDocRepoStub{docs: make(map[string]*entity.Document)}
}

func (s *ingestDocRepoStub) Create(ctx context.Context, doc *entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	cp := *doc
	s.docs[doc.ID] = &cp
	s.creates++
	return nil
}

func (s *ingestDocRepoStub) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *ingestDocRepoStub) List(ctx context.Context, filter *repository.DocumentFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	return repository.NewPagedResult([]*entity.Document{}, 0, pagination), nil
}

func (s *ingestDocRepoStub) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus, chunkCount int, processingError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return apperrors.ErrDocumentNotFound
	}
	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.ProcessingError = processingError
	return nil
}

func (s *ingestDocRepoStub) UpdateContentHash(ctx context.Context, id, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return apperrors.ErrDocumentNotFound
	}
	doc.ContentHash = contentHash
	return nil
}

func (s *ingestDocRepoStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *ingestDocRepoStub) CreateChunks(ctx context.Context, chunks []*entity.DocumentChunk) error {
	return nil
}

func (s *ingestDocRepoStub) ListChunks(ctx context.Context, documentID string, pagination repository.Pagination) (*repository.PagedResult[*entity.DocumentChunk], error) {
	return repository.NewPagedResult([]*entity.DocumentChunk{}, 0, pagination), nil
}

func (s *ingestDocRepoStub) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	return nil
}

func (s *ingestDocRepoStub) createCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

type passTxStub struct{}

func (passTxStub) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// authedContext 模拟认证中间件写入的账户与密钥上下文
func authedContext(accountID, apiKeyID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextAccountID, accountID)
		c.Set(middleware.ContextAPIKeyID, apiKeyID)
		c.Next()
	}
}

func testAccount(id string, currentUsage, limit int64) *entity.Account {
	return &entity.Account{
		ID:           id,
		Email:        id + "@example.com",
		Tier:         entity.AccountTierFree,
		UsageLimit:   limit,
		CurrentUsage: currentUsage,
	}
}

func newSearchRouter(accounts *meterAccountStub, usageRepo *meterUsageRepoStub, vector *searchVectorStub, accountID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	meter := usage.NewMeter(accounts, usageRepo, 0.002)
	engine := retrieval.NewEngine(&handlerEmbedStub{}, vector, 0, 0, 0)
	h := NewSearchHandler(engine, meter)

	r := gin.New()
	r.POST("/v1/search", authedContext(accountID, "key-1"), h.Search)
	return r
}

func TestSearchHandlerMetersUsage(t *testing.T) {
	accountID := uuid.NewString()
	accounts := newMeterAccountStub(testAccount(accountID, 0, 10000))
	usageRepo := &meterUsageRepoStub{}
	r := newSearchRouter(accounts, usageRepo, &searchVectorStub{}, accountID)

	query := "what is the refund policy"
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"`+query+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usage.EstimateTokens(len(query)), accounts.currentUsage(accountID))
	assert.Equal(t, []string{"search"}, usageRepo.endpoints())
}

func TestSearchHandlerRejectsOverLimit(t *testing.T) {
	accountID := uuid.NewString()
	accounts := newMeterAccountStub(testAccount(accountID, 10000, 10000))
	vector := &searchVectorStub{}
	r := newSearchRouter(accounts, &meterUsageRepoStub{}, vector, accountID)

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"anything"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// 额度耗尽时不做向量检索
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 0, vector.searchCalls())
	assert.Equal(t, int64(10000), accounts.currentUsage(accountID))
}

func TestSearchHandlerRejectsMalformedProjectID(t *testing.T) {
	accountID := uuid.NewString()
	accounts := newMeterAccountStub(testAccount(accountID, 0, 10000))
	vector := &searchVectorStub{}
	r := newSearchRouter(accounts, &meterUsageRepoStub{}, vector, accountID)

	body := `{"query":"anything","project_id":"p1\" || true"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, vector.searchCalls())
}

func newUploadRouter(accounts *meterAccountStub, usageRepo *meterUsageRepoStub, docRepo *ingestDocRepoStub, accountID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	meter := usage.NewMeter(accounts, usageRepo, 0.002)
	processor := ingest.NewProcessor(
		docRepo, passTxStub{}, &indexVectorStub{}, &handlerEmbedStub{},
		extract.NewExtractor(), ingest.NewChunker(1000, 0), ingest.Options{},
	)
	h := NewDocumentHandler(processor, docRepo, meter)

	r := gin.New()
	r.POST("/v1/documents", authedContext(accountID, "key-1"), h.Upload)
	return r
}

func uploadRequest(t *testing.T, projectID, fileName string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if projectID != "" {
		require.NoError(t, w.WriteField("project_id", projectID))
	}
	fw, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestDocumentUploadMetersUsage(t *testing.T) {
	accountID := uuid.NewString()
	accounts := newMeterAccountStub(testAccount(accountID, 0, 10000))
	usageRepo := &meterUsageRepoStub{}
	docRepo := newIngestDocRepoStub()
	r := newUploadRouter(accounts, usageRepo, docRepo, accountID)

	content := []byte("Refunds are issued within fourteen days of purchase.")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "", "policy.txt", content))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, usage.EstimateTokens(len(content)), accounts.currentUsage(accountID))
	assert.Equal(t, []string{"upload"}, usageRepo.endpoints())
}

func TestDocumentUploadRejectsOverLimit(t *testing.T) {
	accountID := uuid.NewString()
	accounts := newMeterAccountStub(testAccount(accountID, 10000, 10000))
	docRepo := newIngestDocRepoStub()
	r := newUploadRouter(accounts, &meterUsageRepoStub{}, docRepo, accountID)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "", "policy.txt", []byte("Some content.")))

	// 额度耗尽时不落文档记录
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 0, docRepo.createCalls())
}

func TestDocumentUploadRejectsMalformedProjectID(t *testing.T) {
	accountID := uuid.NewString()
	accounts := newMeterAccountStub(testAccount(accountID, 0, 10000))
	docRepo := newIngestDocRepoStub()
	r := newUploadRouter(accounts, &meterUsageRepoStub{}, docRepo, accountID)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, `p1" || true`, "policy.txt", []byte("Some content.")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, docRepo.createCalls())
}
