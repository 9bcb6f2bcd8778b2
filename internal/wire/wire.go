//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/google/wire"

	"github.com/shreyan01/ruberic/internal/application/apikey"
	"github.com/shreyan01/ruberic/internal/application/chat"
	"github.com/shreyan01/ruberic/internal/application/extract"
	"github.com/shreyan01/ruberic/internal/application/ingest"
	"github.com/shreyan01/ruberic/internal/application/retrieval"
	"github.com/shreyan01/ruberic/internal/application/usage"
	"github.com/shreyan01/ruberic/internal/config"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	infraembedding "github.com/shreyan01/ruberic/internal/infrastructure/embedding"
	"github.com/shreyan01/ruberic/internal/infrastructure/llm"
	"github.com/shreyan01/ruberic/internal/infrastructure/persistence/milvus"
	"github.com/shreyan01/ruberic/internal/infrastructure/persistence/postgres"
	"github.com/shreyan01/ruberic/internal/infrastructure/persistence/redis"
	"github.com/shreyan01/ruberic/internal/interfaces/http/handler"
	"github.com/shreyan01/ruberic/internal/interfaces/http/middleware"
	"github.com/shreyan01/ruberic/internal/interfaces/http/router"
	"github.com/shreyan01/ruberic/pkg/logger"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		EmbeddingSet,
		MilvusAppSet,
		ApplicationSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewAccountRepository,
	postgres.NewAPIKeyRepository,
	postgres.NewProjectRepository,
	postgres.NewDocumentRepository,
	postgres.NewUsageRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.AccountRepository), new(*postgres.AccountRepository)),
	wire.Bind(new(repository.APIKeyRepository), new(*postgres.APIKeyRepository)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.DocumentRepository), new(*postgres.DocumentRepository)),
	wire.Bind(new(repository.UsageRepository), new(*postgres.UsageRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(apikey.LookupCache), new(*redis.Cache)),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// EmbeddingSet 可选 Embedder（不可用时禁用向量检索/索引）
var EmbeddingSet = wire.NewSet(
	ProvideEmbedderOptional,
)

// MilvusAppSet 可选 Milvus（不可达时不阻塞启动，向量功能降级）
var MilvusAppSet = wire.NewSet(
	ProvideMilvusClientOptional,
	ProvideMilvusRepositoryOptional,
	ProvideChunkVectorRepositoryOptional,
	ProvideVectorSearcher,
	ProvideVectorIndex,
)

// ApplicationSet 应用层提供者集合
var ApplicationSet = wire.NewSet(
	apikey.NewManager,
	ProvideMeter,
	extract.NewExtractor,
	ProvideChunker,
	ProvideIngestOptions,
	ingest.NewProcessor,
	ProvideRetrievalEngine,
	llm.NewEinoFactory,
	chat.NewAssistant,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewAccountHandler,
	handler.NewAPIKeyHandler,
	handler.NewProjectHandler,
	handler.NewDocumentHandler,
	handler.NewSearchHandler,
	handler.NewChatHandler,
	handler.NewUsageHandler,
	wire.Struct(new(router.Handlers), "*"),
	wire.Bind(new(middleware.KeyVerifier), new(*apikey.Manager)),
	router.New,
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusClientOptional 提供可选的 Milvus 客户端
func ProvideMilvusClientOptional(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus not available, vector features disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusRepositoryOptional 提供可选的向量仓储
func ProvideMilvusRepositoryOptional(client *milvus.Client) *milvus.Repository {
	if client == nil {
		return nil
	}
	return milvus.NewRepository(client)
}

// ProvideChunkVectorRepositoryOptional 提供可选的分块向量适配器
func ProvideChunkVectorRepositoryOptional(repo *milvus.Repository) *milvus.ChunkVectorRepository {
	if repo == nil {
		return nil
	}
	return milvus.NewChunkVectorRepository(repo)
}

// ProvideVectorSearcher 以检索端口暴露向量仓储
func ProvideVectorSearcher(repo *milvus.ChunkVectorRepository) retrieval.VectorSearcher {
	return repo
}

// ProvideVectorIndex 以摄取端口暴露向量仓储
func ProvideVectorIndex(repo *milvus.ChunkVectorRepository) ingest.VectorIndex {
	return repo
}

// ProvideEmbedderOptional 提供可选的 Embedder
// provider 为 http 时使用自托管服务，否则走 eino 的 OpenAI 适配器
func ProvideEmbedderOptional(ctx context.Context, cfg *config.Config) (einoembedding.Embedder, error) {
	var (
		embedder einoembedding.Embedder
		err      error
	)
	if cfg.Embedding.Provider == "http" {
		embedder, err = infraembedding.NewHTTPEmbedder(&cfg.Embedding)
	} else {
		embedder, err = infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	}
	if err != nil {
		logger.Warn(ctx, "embedding not available, vector features disabled", "error", err.Error())
		return nil, nil
	}
	return embedder, nil
}

// ProvideMeter 提供用量计量器
func ProvideMeter(cfg *config.Config, accountRepo repository.AccountRepository, usageRepo repository.UsageRepository) *usage.Meter {
	costPer1K := 0.0
	if p, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; ok {
		costPer1K = p.CostPer1KTokens
	}
	return usage.NewMeter(accountRepo, usageRepo, costPer1K)
}

// ProvideChunker 提供分块器
func ProvideChunker(cfg *config.Config) *ingest.Chunker {
	return ingest.NewChunker(cfg.Ingestion.MaxChunkSize, cfg.Ingestion.ChunkOverlap)
}

// ProvideIngestOptions 提供摄取流水线配置
func ProvideIngestOptions(cfg *config.Config) ingest.Options {
	return ingest.Options{
		EmbeddingBatchSize: cfg.Embedding.BatchSize,
		MaxFileSize:        cfg.Ingestion.MaxFileSize,
		AllowedTypes:       cfg.Ingestion.AllowedTypes,
	}
}

// ProvideRetrievalEngine 提供检索引擎
func ProvideRetrievalEngine(cfg *config.Config, embedder einoembedding.Embedder, vector retrieval.VectorSearcher) *retrieval.Engine {
	return retrieval.NewEngine(
		embedder,
		vector,
		cfg.Retrieval.DefaultLimit,
		cfg.Retrieval.MaxLimit,
		cfg.Retrieval.SimilarityThreshold,
	)
}
