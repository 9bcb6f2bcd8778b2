// Package apikey 提供 API 密钥的生成、散列与管理能力
package apikey

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
	"github.com/shreyan01/ruberic/pkg/logger"
)

// LookupCache 密钥查询缓存，合并并发的同键回源
type LookupCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

const (
	keyCachePrefix = "apikey:"
	keyCacheTTL    = 30 * time.Second
)

// Manager API 密钥管理器
type Manager struct {
	keyRepo repository.APIKeyRepository
	cache   LookupCache
	now     func() time.Time
}

// NewManager 创建密钥管理器，cache 可为 nil 表示不启用缓存
func NewManager(keyRepo repository.APIKeyRepository, cache LookupCache) *Manager {
	return &Manager{
		keyRepo: keyRepo,
		cache:   cache,
		now:     time.Now,
	}
}

// CreatedKey 创建结果，Plaintext 仅在此处出现一次
type CreatedKey struct {
	Key       *entity.APIKey
	Plaintext string
}

// Create 为账户生成新密钥并持久化散列
func (m *Manager) Create(ctx context.Context, accountID, name string, expiresAt *time.Time) (*CreatedKey, error) {
	plaintext := Generate()

	key := &entity.APIKey{
		AccountID: accountID,
		KeyHash:   Hash(plaintext),
		KeyPrefix: DisplayPrefix(plaintext),
		Name:      name,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}

	if err := m.keyRepo.Create(ctx, key); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("api key created",
		"account_id", accountID,
		"key_prefix", key.KeyPrefix,
	)

	return &CreatedKey{Key: key, Plaintext: plaintext}, nil
}

// Verify 认证明文密钥
// 未知、停用、过期、畸形密钥统一返回 ErrAPIKeyInvalid，不泄露具体原因。
// 认证成功后异步式地累加使用计数，失败不影响认证结果。
func (m *Manager) Verify(ctx context.Context, plaintext string) (*entity.APIKey, error) {
	if !WellFormed(plaintext) {
		return nil, apperrors.ErrAPIKeyInvalid
	}

	key, err := m.lookup(ctx, Hash(plaintext))
	if err != nil {
		return nil, apperrors.ErrAPIKeyInvalid
	}

	if !key.Usable(m.now()) {
		return nil, apperrors.ErrAPIKeyInvalid
	}

	// 使用统计为旁路动作，写入失败只记日志
	if err := m.keyRepo.TouchUsage(ctx, key.ID, m.now()); err != nil {
		logger.FromContext(ctx).Warn("failed to touch api key usage",
			"key_id", key.ID,
			"error", err,
		)
	}

	return key, nil
}

// lookup 按散列查询密钥，启用缓存时走 read-through 路径
func (m *Manager) lookup(ctx context.Context, hash string) (*entity.APIKey, error) {
	if m.cache == nil {
		return m.keyRepo.GetByHash(ctx, hash)
	}

	raw, err := m.cache.GetOrLoadSafe(ctx, keyCachePrefix+hash, keyCacheTTL, func() (interface{}, error) {
		return m.keyRepo.GetByHash(ctx, hash)
	})
	if err != nil {
		// 缓存层异常时回退到数据库，避免缓存故障放大为认证失败
		return m.keyRepo.GetByHash(ctx, hash)
	}

	key := &entity.APIKey{}
	if err := json.Unmarshal(raw, key); err != nil {
		return m.keyRepo.GetByHash(ctx, hash)
	}
	return key, nil
}

// List 获取账户下的密钥列表
func (m *Manager) List(ctx context.Context, accountID string, pagination repository.Pagination) (*repository.PagedResult[*entity.APIKey], error) {
	return m.keyRepo.ListByAccount(ctx, accountID, pagination)
}

// Revoke 停用密钥，保留记录与使用统计
func (m *Manager) Revoke(ctx context.Context, accountID, keyID string) error {
	key, err := m.keyRepo.GetByID(ctx, keyID)
	if err != nil {
		return err
	}
	if key.AccountID != accountID {
		return apperrors.ErrAPIKeyNotFound
	}
	if err := m.keyRepo.Deactivate(ctx, keyID); err != nil {
		return err
	}
	m.evict(ctx, key.KeyHash)
	return nil
}

// Delete 删除密钥
func (m *Manager) Delete(ctx context.Context, accountID, keyID string) error {
	key, err := m.keyRepo.GetByID(ctx, keyID)
	if err != nil {
		return err
	}
	if key.AccountID != accountID {
		return apperrors.ErrAPIKeyNotFound
	}
	if err := m.keyRepo.Delete(ctx, keyID); err != nil {
		return err
	}
	m.evict(ctx, key.KeyHash)
	return nil
}

func (m *Manager) evict(ctx context.Context, hash string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Delete(ctx, keyCachePrefix+hash); err != nil {
		logger.FromContext(ctx).Warn("failed to evict api key cache", "error", err)
	}
}
