package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shreyan01/ruberic/internal/application/extract"
	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
)

type docRepoStub struct {
	mu     sync.Mutex
	docs   map[string]*entity.Document
	chunks map[string][]*entity.DocumentChunk

	createChunksErr error
}

func newDocRepoStub() *docRepoStub {
	return &docRepoStub{
		docs:   make(map[string]*entity.Document),
		chunks: make(map[string][]*entity.DocumentChunk),
	}
}

func (s *docRepoStub) Create(ctx context.Context, doc *entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	cp := *doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s *docRepoStub) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *docRepoStub) List(ctx context.Context, filter *repository.DocumentFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	return repository.NewPagedResult([]*entity.Document{}, 0, pagination), nil
}

func (s *docRepoStub) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus, chunkCount int, processingError string) error {
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

func (s *docRepoStub) UpdateContentHash(ctx context.Context, id, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return apperrors.ErrDocumentNotFound
	}
	doc.ContentHash = contentHash
	return nil
}

func (s *docRepoStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *docRepoStub) CreateChunks(ctx context.Context, chunks []*entity.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createChunksErr != nil {
		return s.createChunksErr
	}
	for _, c := range chunks {
		s.chunks[c.DocumentID] = append(s.chunks[c.DocumentID], c)
	}
	return nil
}

func (s *docRepoStub) ListChunks(ctx context.Context, documentID string, pagination repository.Pagination) (*repository.PagedResult[*entity.DocumentChunk], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunks := s.chunks[documentID]
	return repository.NewPagedResult(chunks, int64(len(chunks)), pagination), nil
}

func (s *docRepoStub) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, documentID)
	return nil
}

func (s *docRepoStub) stored(id string) *entity.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[id]
}

// txStub 直接执行回调，不开启真实事务
type txStub struct{}

func (txStub) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type vectorStub struct {
	mu       sync.Mutex
	inserted map[string][]*VectorChunk
	deleted  []string

	insertErr error
	ensureErr error
}

func newVectorStub() *vectorStub {
	return &vectorStub{inserted: make(map[string][]*VectorChunk)}
}

func (s *vectorStub) EnsureChunkCollection(ctx context.Context) error {
	return s.ensureErr
}

func (s *vectorStub) InsertChunks(ctx context.Context, accountID, projectID string, chunks []*VectorChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, c := range chunks {
		s.inserted[c.DocumentID] = append(s.inserted[c.DocumentID], c)
	}
	return nil
}

func (s *vectorStub) DeleteChunksByDocument(ctx context.Context, accountID, projectID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inserted, documentID)
	s.deleted = append(s.deleted, documentID)
	return nil
}

func (s *vectorStub) vectors(documentID string) []*VectorChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserted[documentID]
}

type embedderStub struct {
	mu    sync.Mutex
	calls int
	dim   int
	err   error
}

func (s *embedderStub) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	dim := s.dim
	if dim == 0 {
		dim = 4
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		vec := make([]float64, dim)
		vec[0] = float64(len(texts[i]))
		out[i] = vec
	}
	return out, nil
}

func newTestProcessor(docRepo *docRepoStub, vector *vectorStub, embedder *embedderStub, opts Options) *Processor {
	return NewProcessor(docRepo, txStub{}, vector, embedder, extract.NewExtractor(), NewChunker(50, 0), opts)
}

func textUpload(accountID, projectID, content string) *UploadInput {
	return &UploadInput{
		AccountID:   accountID,
		ProjectID:   projectID,
		FileName:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte(content),
	}
}

func TestProcessorProcess(t *testing.T) {
	docRepo := newDocRepoStub()
	vector := newVectorStub()
	p := newTestProcessor(docRepo, vector, &embedderStub{}, Options{})

	doc, err := p.Process(context.Background(), textUpload("acct-1", "proj-1", "First sentence here. Second sentence is a bit longer. Third one."))
	require.NoError(t, err)

	assert.Equal(t, entity.DocumentStatusCompleted, doc.Status)
	assert.Greater(t, doc.ChunkCount, 0)
	assert.Equal(t, "acct-1", doc.AccountID)
	assert.Equal(t, "proj-1", doc.ProjectID)
	assert.Len(t, doc.ContentHash, 64)

	stored := docRepo.stored(doc.ID)
	require.NotNil(t, stored)
	assert.Equal(t, entity.DocumentStatusCompleted, stored.Status)
	assert.Equal(t, doc.ChunkCount, stored.ChunkCount)

	// 向量与关系行按分块一一对应
	assert.Len(t, vector.vectors(doc.ID), doc.ChunkCount)
	assert.Len(t, docRepo.chunks[doc.ID], doc.ChunkCount)
	for i, chunk := range docRepo.chunks[doc.ID] {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.NotEmpty(t, chunk.ID)
	}
}

func TestProcessorProcessDefaultProject(t *testing.T) {
	docRepo := newDocRepoStub()
	p := newTestProcessor(docRepo, newVectorStub(), &embedderStub{}, Options{})

	doc, err := p.Process(context.Background(), textUpload("acct-1", "", "Some content."))
	require.NoError(t, err)

	assert.Equal(t, entity.DefaultProjectID("acct-1"), doc.ProjectID)
}

func TestProcessorProcessNoText(t *testing.T) {
	docRepo := newDocRepoStub()
	p := newTestProcessor(docRepo, newVectorStub(), &embedderStub{}, Options{})

	doc, err := p.Process(context.Background(), textUpload("acct-1", "", "   \n  "))
	require.Error(t, err)
	require.NotNil(t, doc)

	// 失败作为终态落库，带失败原因
	assert.Equal(t, entity.DocumentStatusFailed, doc.Status)
	assert.NotEmpty(t, doc.ProcessingError)

	stored := docRepo.stored(doc.ID)
	assert.Equal(t, entity.DocumentStatusFailed, stored.Status)
	assert.Equal(t, doc.ProcessingError, stored.ProcessingError)
}

func TestProcessorProcessEmbeddingFailure(t *testing.T) {
	docRepo := newDocRepoStub()
	p := newTestProcessor(docRepo, newVectorStub(), &embedderStub{err: errors.New("upstream down")}, Options{})

	doc, err := p.Process(context.Background(), textUpload("acct-1", "", "Some content."))
	require.Error(t, err)

	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeEmbeddingFailed, appErr.Code)
	assert.Equal(t, entity.DocumentStatusFailed, docRepo.stored(doc.ID).Status)
}

func TestProcessorProcessChunkStoreFailureRollsBackVectors(t *testing.T) {
	docRepo := newDocRepoStub()
	docRepo.createChunksErr = errors.New("insert failed")
	vector := newVectorStub()
	p := newTestProcessor(docRepo, vector, &embedderStub{}, Options{})

	doc, err := p.Process(context.Background(), textUpload("acct-1", "", "Some content."))
	require.Error(t, err)

	// 关系行写入失败后，同文档的向量被清理
	assert.Contains(t, vector.deleted, doc.ID)
	assert.Empty(t, vector.vectors(doc.ID))
}

func TestProcessorProcessDuplicateContent(t *testing.T) {
	docRepo := newDocRepoStub()
	p := newTestProcessor(docRepo, newVectorStub(), &embedderStub{}, Options{})

	first, err := p.Process(context.Background(), textUpload("acct-1", "", "Same content twice."))
	require.NoError(t, err)
	// 字节不同但抽取文本相同，散列必须一致
	second, err := p.Process(context.Background(), textUpload("acct-1", "", "\n  Same content twice.  \n"))
	require.NoError(t, err)

	// 重复内容各自成档，散列相同便于后续识别
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.ContentHash, second.ContentHash)

	sum := sha256.Sum256([]byte("Same content twice."))
	assert.Equal(t, hex.EncodeToString(sum[:]), first.ContentHash)
	assert.Equal(t, first.ContentHash, docRepo.stored(first.ID).ContentHash)
}

func TestProcessorValidate(t *testing.T) {
	p := newTestProcessor(newDocRepoStub(), newVectorStub(), &embedderStub{}, Options{
		MaxFileSize:  16,
		AllowedTypes: []string{"text/plain"},
	})

	t.Run("empty file", func(t *testing.T) {
		err := p.Validate(&UploadInput{FileName: "a.txt", ContentType: "text/plain"})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInvalidParam, apperrors.AsAppError(err).Code)
	})

	t.Run("oversized file", func(t *testing.T) {
		err := p.Validate(&UploadInput{
			FileName:    "a.txt",
			ContentType: "text/plain",
			Data:        []byte("this content is longer than sixteen bytes"),
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInvalidParam, apperrors.AsAppError(err).Code)
	})

	t.Run("disallowed content type", func(t *testing.T) {
		err := p.Validate(&UploadInput{
			FileName:    "a.txt",
			ContentType: "application/zip",
			Data:        []byte("x"),
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeUnsupportedFileType, apperrors.AsAppError(err).Code)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		err := p.Validate(&UploadInput{
			FileName:    "binary.exe",
			ContentType: "text/plain",
			Data:        []byte("x"),
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeUnsupportedFileType, apperrors.AsAppError(err).Code)
	})

	t.Run("valid upload", func(t *testing.T) {
		assert.NoError(t, p.Validate(&UploadInput{
			FileName:    "a.txt",
			ContentType: "text/plain",
			Data:        []byte("hello"),
		}))
	})
}

func TestProcessorDelete(t *testing.T) {
	docRepo := newDocRepoStub()
	vector := newVectorStub()
	p := newTestProcessor(docRepo, vector, &embedderStub{}, Options{})

	doc, err := p.Process(context.Background(), textUpload("acct-1", "proj-1", "Content to delete."))
	require.NoError(t, err)

	require.NoError(t, p.Delete(context.Background(), doc))

	assert.Nil(t, docRepo.stored(doc.ID))
	assert.Empty(t, docRepo.chunks[doc.ID])
	assert.Empty(t, vector.vectors(doc.ID))
}

func TestProcessorEmbedAllBatches(t *testing.T) {
	emb := &embedderStub{}
	p := newTestProcessor(newDocRepoStub(), newVectorStub(), emb, Options{EmbeddingBatchSize: 2})

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := p.embedAll(context.Background(), texts)
	require.NoError(t, err)

	assert.Len(t, vectors, 5)
	assert.Equal(t, 3, emb.calls)
}
