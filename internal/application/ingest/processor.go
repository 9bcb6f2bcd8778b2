// Package ingest 提供文档摄取流水线
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"github.com/shreyan01/ruberic/internal/application/extract"
	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
	"github.com/shreyan01/ruberic/pkg/logger"
	"github.com/shreyan01/ruberic/pkg/metrics"
)

const defaultEmbeddingBatch = 64

// Options 摄取流水线配置
type Options struct {
	EmbeddingBatchSize int
	MaxFileSize        int64
	AllowedTypes       []string
}

// UploadInput 摄取输入
type UploadInput struct {
	AccountID   string
	ProjectID   string
	FileName    string
	ContentType string
	Data        []byte
}

// Processor 文档摄取协调器
// 状态机：pending -> processing -> completed | failed，
// 失败直接按文档 ID 落终态，不依赖启发式匹配。
type Processor struct {
	docRepo   repository.DocumentRepository
	tx        repository.Transactor
	vector    VectorIndex
	embedder  embedding.Embedder
	extractor *extract.Extractor
	chunker   *Chunker

	batchSize    int
	maxFileSize  int64
	allowedTypes map[string]struct{}
}

// NewProcessor 创建摄取协调器
func NewProcessor(
	docRepo repository.DocumentRepository,
	tx repository.Transactor,
	vector VectorIndex,
	embedder embedding.Embedder,
	extractor *extract.Extractor,
	chunker *Chunker,
	opts Options,
) *Processor {
	bs := opts.EmbeddingBatchSize
	if bs <= 0 {
		bs = defaultEmbeddingBatch
	}
	allowed := make(map[string]struct{}, len(opts.AllowedTypes))
	for _, t := range opts.AllowedTypes {
		allowed[t] = struct{}{}
	}
	return &Processor{
		docRepo:      docRepo,
		tx:           tx,
		vector:       vector,
		embedder:     embedder,
		extractor:    extractor,
		chunker:      chunker,
		batchSize:    bs,
		maxFileSize:  opts.MaxFileSize,
		allowedTypes: allowed,
	}
}

// Validate 校验上传文件的大小与类型
func (p *Processor) Validate(in *UploadInput) error {
	if len(in.Data) == 0 {
		return apperrors.New(apperrors.CodeInvalidParam, "file is empty")
	}
	if p.maxFileSize > 0 && int64(len(in.Data)) > p.maxFileSize {
		return apperrors.New(apperrors.CodeInvalidParam,
			fmt.Sprintf("file exceeds size limit of %d bytes", p.maxFileSize))
	}
	if len(p.allowedTypes) > 0 && in.ContentType != "" {
		if _, ok := p.allowedTypes[in.ContentType]; !ok {
			return apperrors.New(apperrors.CodeUnsupportedFileType,
				"unsupported content type: "+in.ContentType)
		}
	}
	if !p.extractor.Supported(in.FileName) {
		return apperrors.New(apperrors.CodeUnsupportedFileType,
			"unsupported file extension: "+in.FileName)
	}
	return nil
}

// Process 执行完整摄取流水线
// 同一内容允许重复摄取，各自产生独立的文档记录。
func (p *Processor) Process(ctx context.Context, in *UploadInput) (*entity.Document, error) {
	if err := p.Validate(in); err != nil {
		return nil, err
	}

	projectID := in.ProjectID
	if projectID == "" {
		projectID = entity.DefaultProjectID(in.AccountID)
	}

	doc := entity.NewDocument(
		in.AccountID, projectID, in.FileName, in.ContentType,
		int64(len(in.Data)),
	)

	if err := p.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	start := time.Now()
	log := logger.FromContext(ctx).With(
		"document_id", doc.ID,
		"file_name", doc.FileName,
	)

	if err := p.docRepo.UpdateStatus(ctx, doc.ID, entity.DocumentStatusProcessing, 0, ""); err != nil {
		return nil, err
	}
	doc.Status = entity.DocumentStatusProcessing

	chunkCount, err := p.run(ctx, doc, in.Data)
	if err != nil {
		p.markFailed(ctx, doc, err)
		metrics.DocumentsProcessedTotal.WithLabelValues("failed").Inc()
		log.Error("document ingestion failed", "error", err)
		return doc, err
	}

	if err := p.docRepo.UpdateStatus(ctx, doc.ID, entity.DocumentStatusCompleted, chunkCount, ""); err != nil {
		return nil, err
	}
	doc.Status = entity.DocumentStatusCompleted
	doc.ChunkCount = chunkCount

	metrics.DocumentsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.DocumentProcessDuration.WithLabelValues(doc.FileType).Observe(time.Since(start).Seconds())
	log.Info("document ingestion completed",
		"chunk_count", chunkCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return doc, nil
}

// run 执行抽取、分块、向量化、写入
// 返回成功写入的分块数
func (p *Processor) run(ctx context.Context, doc *entity.Document, data []byte) (int, error) {
	text, err := p.extractor.Extract(ctx, doc.FileName, data)
	if err != nil {
		return 0, err
	}

	// 内容哈希取抽取后的文本，同一内容换格式上传也能命中同一哈希
	hash := sha256.Sum256([]byte(text))
	doc.ContentHash = hex.EncodeToString(hash[:])
	if err := p.docRepo.UpdateContentHash(ctx, doc.ID, doc.ContentHash); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to store content hash")
	}

	parts := p.chunker.Split(text)
	if len(parts) == 0 {
		return 0, apperrors.ErrNoChunks
	}

	vectors, err := p.embedAll(ctx, parts)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeEmbeddingFailed, "failed to generate embeddings")
	}

	chunks := make([]*entity.DocumentChunk, len(parts))
	vectorChunks := make([]*VectorChunk, len(parts))
	for i, content := range parts {
		chunk := entity.NewDocumentChunk(doc, i, content)
		chunk.ID = uuid.NewString()
		chunks[i] = chunk
		vectorChunks[i] = &VectorChunk{
			ID:          chunk.ID,
			AccountID:   doc.AccountID,
			ProjectID:   doc.ProjectID,
			DocumentID:  doc.ID,
			ChunkIndex:  int64(i),
			TextContent: content,
			Vector:      vectors[i],
		}
	}

	if err := p.vector.EnsureChunkCollection(ctx); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeVectorDBError, "vector collection unavailable")
	}
	if err := p.vector.InsertChunks(ctx, doc.AccountID, doc.ProjectID, vectorChunks); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeVectorDBError, "failed to index chunks")
	}

	// 分块行全量写入；失败时按文档 ID 清理已写入的向量，避免两边不一致
	if err := p.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return p.docRepo.CreateChunks(txCtx, chunks)
	}); err != nil {
		if delErr := p.vector.DeleteChunksByDocument(ctx, doc.AccountID, doc.ProjectID, doc.ID); delErr != nil {
			logger.FromContext(ctx).Warn("failed to roll back vector chunks",
				"document_id", doc.ID,
				"error", delErr,
			)
		}
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to store chunks")
	}

	metrics.ChunksIndexedTotal.Add(float64(len(chunks)))
	return len(chunks), nil
}

// Delete 删除文档及其分块与向量
// 向量先删；关系行在一个事务中删除，保证文档与分块同生共死。
func (p *Processor) Delete(ctx context.Context, doc *entity.Document) error {
	if err := p.vector.DeleteChunksByDocument(ctx, doc.AccountID, doc.ProjectID, doc.ID); err != nil {
		return apperrors.Wrap(err, apperrors.CodeVectorDBError, "failed to delete vector chunks")
	}
	return p.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := p.docRepo.DeleteChunksByDocument(txCtx, doc.ID); err != nil {
			return err
		}
		return p.docRepo.Delete(txCtx, doc.ID)
	})
}

// embedAll 分批向量化
func (p *Processor) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := p.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(batch), end-start)
		}

		for _, v64 := range batch {
			vec := make([]float32, len(v64))
			for i, x := range v64 {
				vec[i] = float32(x)
			}
			out = append(out, vec)
		}
	}
	return out, nil
}

// markFailed 将文档落为失败终态，记录失败原因
func (p *Processor) markFailed(ctx context.Context, doc *entity.Document, cause error) {
	doc.Status = entity.DocumentStatusFailed
	doc.ProcessingError = cause.Error()
	if err := p.docRepo.UpdateStatus(ctx, doc.ID, entity.DocumentStatusFailed, 0, cause.Error()); err != nil {
		logger.FromContext(ctx).Error("failed to mark document as failed",
			"document_id", doc.ID,
			"error", err,
		)
	}
}
