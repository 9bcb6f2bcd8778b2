package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
)

// schemaDDL SQLite 版建表语句，列名与实体的 GORM 标签对齐
var schemaDDL = []string{
	`CREATE TABLE accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT,
		tier TEXT DEFAULT 'free',
		usage_limit INTEGER NOT NULL DEFAULT 10000,
		current_usage INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE api_keys (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		key_hash TEXT NOT NULL UNIQUE,
		key_prefix TEXT NOT NULL,
		name TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		usage_count INTEGER NOT NULL DEFAULT 0,
		last_used_at DATETIME,
		expires_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE projects (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE documents (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_type TEXT,
		file_size INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT,
		status TEXT DEFAULT 'pending',
		chunk_count INTEGER NOT NULL DEFAULT 0,
		processing_error TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE document_chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		content_length INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE usage_tracking (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		api_key_id TEXT,
		endpoint TEXT NOT NULL,
		tokens_used INTEGER NOT NULL DEFAULT 0,
		cost REAL NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	// 连接池会打开多个连接，内存库在连接间不共享，这里用临时文件
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	for _, ddl := range schemaDDL {
		require.NoError(t, db.Exec(ddl).Error)
	}

	return &Client{db: db}
}

func seedAccount(t *testing.T, client *Client, current, limit int64) *entity.Account {
	t.Helper()
	account := entity.NewAccount(uuid.NewString()+"@example.com", "test account")
	account.ID = uuid.NewString()
	account.CurrentUsage = current
	account.UsageLimit = limit
	require.NoError(t, NewAccountRepository(client).Create(context.Background(), account))
	return account
}

func TestAccountRepository(t *testing.T) {
	client := newTestClient(t)
	repo := NewAccountRepository(client)
	ctx := context.Background()

	account := seedAccount(t, client, 0, 10000)

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.Email, got.Email)
		assert.Equal(t, entity.AccountTierFree, got.Tier)
	})

	t.Run("GetByIDNotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)
	})

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, account.Email)
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("IncrementUsage", func(t *testing.T) {
		require.NoError(t, repo.IncrementUsage(ctx, account.ID, 250))
		require.NoError(t, repo.IncrementUsage(ctx, account.ID, 250))

		got, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(500), got.CurrentUsage)
	})

	t.Run("IncrementUsageUnknownAccount", func(t *testing.T) {
		err := repo.IncrementUsage(ctx, uuid.NewString(), 10)
		assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)
	})
}

func TestAccountRepositoryConsumeWithinLimit(t *testing.T) {
	client := newTestClient(t)
	repo := NewAccountRepository(client)
	ctx := context.Background()

	account := seedAccount(t, client, 9000, 10000)

	ok, err := repo.ConsumeWithinLimit(ctx, account.ID, 1000)
	require.NoError(t, err)
	assert.True(t, ok)

	// 额度已满，再消费被拒绝且不改变用量
	ok, err = repo.ConsumeWithinLimit(ctx, account.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.CurrentUsage)

	_, err = repo.ConsumeWithinLimit(ctx, uuid.NewString(), 1)
	assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)
}

func seedAPIKey(t *testing.T, client *Client, accountID string) *entity.APIKey {
	t.Helper()
	key := &entity.APIKey{
		ID:        uuid.NewString(),
		AccountID: accountID,
		KeyHash:   uuid.NewString(),
		KeyPrefix: "rub_0000...",
		Name:      "test key",
		IsActive:  true,
	}
	require.NoError(t, NewAPIKeyRepository(client).Create(context.Background(), key))
	return key
}

func TestAPIKeyRepository(t *testing.T) {
	client := newTestClient(t)
	repo := NewAPIKeyRepository(client)
	ctx := context.Background()

	account := seedAccount(t, client, 0, 10000)
	key := seedAPIKey(t, client, account.ID)

	t.Run("GetByHash", func(t *testing.T) {
		got, err := repo.GetByHash(ctx, key.KeyHash)
		require.NoError(t, err)
		assert.Equal(t, key.ID, got.ID)
	})

	t.Run("GetByHashNotFound", func(t *testing.T) {
		_, err := repo.GetByHash(ctx, "no-such-hash")
		assert.ErrorIs(t, err, apperrors.ErrAPIKeyNotFound)
	})

	t.Run("TouchUsage", func(t *testing.T) {
		usedAt := time.Now().UTC()
		require.NoError(t, repo.TouchUsage(ctx, key.ID, usedAt))
		require.NoError(t, repo.TouchUsage(ctx, key.ID, usedAt))

		got, err := repo.GetByID(ctx, key.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.UsageCount)
		require.NotNil(t, got.LastUsedAt)
	})

	t.Run("Deactivate", func(t *testing.T) {
		require.NoError(t, repo.Deactivate(ctx, key.ID))

		got, err := repo.GetByID(ctx, key.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("DeactivateNotFound", func(t *testing.T) {
		err := repo.Deactivate(ctx, uuid.NewString())
		assert.ErrorIs(t, err, apperrors.ErrAPIKeyNotFound)
	})

	t.Run("ListByAccount", func(t *testing.T) {
		seedAPIKey(t, client, account.ID)

		result, err := repo.ListByAccount(ctx, account.ID, repository.NewPagination(1, 10))
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Total)
		assert.Len(t, result.Items, 2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, key.ID))

		_, err := repo.GetByID(ctx, key.ID)
		assert.ErrorIs(t, err, apperrors.ErrAPIKeyNotFound)

		assert.ErrorIs(t, repo.Delete(ctx, key.ID), apperrors.ErrAPIKeyNotFound)
	})
}

func seedDocument(t *testing.T, client *Client, accountID, projectID string) *entity.Document {
	t.Helper()
	doc := entity.NewDocument(accountID, projectID, "manual.txt", "text/plain", 42)
	doc.ID = uuid.NewString()
	require.NoError(t, NewDocumentRepository(client).Create(context.Background(), doc))
	return doc
}

func TestDocumentRepository(t *testing.T) {
	client := newTestClient(t)
	repo := NewDocumentRepository(client)
	ctx := context.Background()

	account := seedAccount(t, client, 0, 10000)
	doc := seedDocument(t, client, account.ID, account.ID)

	t.Run("StatusTransitions", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, doc.ID, entity.DocumentStatusProcessing, 0, ""))
		require.NoError(t, repo.UpdateStatus(ctx, doc.ID, entity.DocumentStatusCompleted, 3, ""))

		got, err := repo.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.DocumentStatusCompleted, got.Status)
		assert.Equal(t, 3, got.ChunkCount)
		assert.True(t, got.IsTerminal())
	})

	t.Run("FailedStatusKeepsReason", func(t *testing.T) {
		failed := seedDocument(t, client, account.ID, account.ID)
		require.NoError(t, repo.UpdateStatus(ctx, failed.ID, entity.DocumentStatusFailed, 0, "no text content"))

		got, err := repo.GetByID(ctx, failed.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.DocumentStatusFailed, got.Status)
		assert.Equal(t, "no text content", got.ProcessingError)
	})

	t.Run("UpdateStatusNotFound", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, uuid.NewString(), entity.DocumentStatusCompleted, 0, "")
		assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	})

	t.Run("UpdateContentHash", func(t *testing.T) {
		hashed := seedDocument(t, client, account.ID, account.ID)
		require.NoError(t, repo.UpdateContentHash(ctx, hashed.ID, "deadbeef"))

		got, err := repo.GetByID(ctx, hashed.ID)
		require.NoError(t, err)
		assert.Equal(t, "deadbeef", got.ContentHash)

		err = repo.UpdateContentHash(ctx, uuid.NewString(), "deadbeef")
		assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	})

	t.Run("ListFilterByStatus", func(t *testing.T) {
		result, err := repo.List(ctx, &repository.DocumentFilter{
			AccountID: account.ID,
			Status:    entity.DocumentStatusFailed,
		}, repository.NewPagination(1, 10))
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
	})

	t.Run("Chunks", func(t *testing.T) {
		chunks := []*entity.DocumentChunk{}
		for i := 0; i < 3; i++ {
			chunk := entity.NewDocumentChunk(doc, i, "chunk content")
			chunk.ID = uuid.NewString()
			chunks = append(chunks, chunk)
		}
		require.NoError(t, repo.CreateChunks(ctx, chunks))

		result, err := repo.ListChunks(ctx, doc.ID, repository.NewPagination(1, 10))
		require.NoError(t, err)
		require.Len(t, result.Items, 3)
		for i, chunk := range result.Items {
			assert.Equal(t, i, chunk.ChunkIndex)
		}

		require.NoError(t, repo.DeleteChunksByDocument(ctx, doc.ID))
		result, err = repo.ListChunks(ctx, doc.ID, repository.NewPagination(1, 10))
		require.NoError(t, err)
		assert.Empty(t, result.Items)
	})
}

func TestUsageRepositorySummarize(t *testing.T) {
	client := newTestClient(t)
	repo := NewUsageRepository(client)
	ctx := context.Background()

	account := seedAccount(t, client, 0, 10000)

	for _, tokens := range []int64{100, 200, 300} {
		require.NoError(t, repo.Create(ctx, &entity.UsageRecord{
			ID:         uuid.NewString(),
			AccountID:  account.ID,
			Endpoint:   "chat",
			TokensUsed: tokens,
			Cost:       float64(tokens) / 1000 * 0.002,
			CreatedAt:  time.Now().UTC(),
		}))
	}

	from := time.Now().UTC().Add(-time.Hour)
	to := time.Now().UTC().Add(time.Hour)

	summary, err := repo.Summarize(ctx, account.ID, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalRequests)
	assert.Equal(t, int64(600), summary.TotalTokens)
	assert.InDelta(t, 0.0012, summary.TotalCost, 1e-9)

	// 范围之外返回零值汇总
	empty, err := repo.Summarize(ctx, account.ID, from.Add(-2*time.Hour), from)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalRequests)

	result, err := repo.ListByAccount(ctx, account.ID, from, to, repository.NewPagination(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	assert.Len(t, result.Items, 2)
}

func TestTxManagerRollback(t *testing.T) {
	client := newTestClient(t)
	accountRepo := NewAccountRepository(client)
	tx := NewTxManager(client)
	ctx := context.Background()

	account := seedAccount(t, client, 0, 10000)

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := accountRepo.IncrementUsage(txCtx, account.ID, 100); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// 回滚后用量不变
	got, err := accountRepo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.CurrentUsage)
}

func TestTxManagerNestedReusesTransaction(t *testing.T) {
	client := newTestClient(t)
	accountRepo := NewAccountRepository(client)
	tx := NewTxManager(client)
	ctx := context.Background()

	account := seedAccount(t, client, 0, 10000)

	err := tx.WithTransaction(ctx, func(outer context.Context) error {
		return tx.WithTransaction(outer, func(inner context.Context) error {
			return accountRepo.IncrementUsage(inner, account.ID, 100)
		})
	})
	require.NoError(t, err)

	got, err := accountRepo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.CurrentUsage)
}
