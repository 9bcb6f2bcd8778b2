package apikey

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shreyan01/ruberic/internal/domain/entity"
	"github.com/shreyan01/ruberic/internal/domain/repository"
	apperrors "github.com/shreyan01/ruberic/pkg/errors"
)

type keyRepoStub struct {
	mu     sync.Mutex
	byHash map[string]*entity.APIKey
	byID   map[string]*entity.APIKey

	touchCalls  int
	touchErr    error
	deactivated []string
	deleted     []string
}

func newKeyRepoStub() *keyRepoStub {
	return &keyRepoStub{
		byHash: make(map[string]*entity.APIKey),
		byID:   make(map[string]*entity.APIKey),
	}
}

func (s *keyRepoStub) add(key *entity.APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key.ID == "" {
		key.ID = uuid.NewString()
	}
	s.byHash[key.KeyHash] = key
	s.byID[key.ID] = key
}

func (s *keyRepoStub) Create(ctx context.Context, key *entity.APIKey) error {
	s.add(key)
	return nil
}

func (s *keyRepoStub) GetByID(ctx context.Context, id string) (*entity.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[id]
	if !ok {
		return nil, apperrors.ErrAPIKeyNotFound
	}
	return key, nil
}

func (s *keyRepoStub) GetByHash(ctx context.Context, keyHash string) (*entity.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byHash[keyHash]
	if !ok {
		return nil, apperrors.ErrAPIKeyNotFound
	}
	return key, nil
}

func (s *keyRepoStub) ListByAccount(ctx context.Context, accountID string, pagination repository.Pagination) (*repository.PagedResult[*entity.APIKey], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []*entity.APIKey
	for _, k := range s.byID {
		if k.AccountID == accountID {
			keys = append(keys, k)
		}
	}
	return repository.NewPagedResult(keys, int64(len(keys)), pagination), nil
}

func (s *keyRepoStub) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[id]
	if !ok {
		return apperrors.ErrAPIKeyNotFound
	}
	key.IsActive = false
	s.deactivated = append(s.deactivated, id)
	return nil
}

func (s *keyRepoStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[id]
	if !ok {
		return apperrors.ErrAPIKeyNotFound
	}
	delete(s.byID, id)
	delete(s.byHash, key.KeyHash)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *keyRepoStub) TouchUsage(ctx context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchCalls++
	return s.touchErr
}

func (s *keyRepoStub) touched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchCalls
}

// cacheStub 记录读写行为的内存缓存
type cacheStub struct {
	mu      sync.Mutex
	loads   int
	evicted []string
	store   map[string][]byte

	getErr error
	delErr error
}

func newCacheStub() *cacheStub {
	return &cacheStub{store: make(map[string][]byte)}
}

func (c *cacheStub) GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	if raw, ok := c.store[key]; ok {
		return raw, nil
	}
	c.loads++
	v, err := loader()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	c.store[key] = raw
	return raw, nil
}

func (c *cacheStub) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delErr != nil {
		return c.delErr
	}
	for _, k := range keys {
		delete(c.store, k)
		c.evicted = append(c.evicted, k)
	}
	return nil
}

func seedKey(t *testing.T, repo *keyRepoStub, accountID string, active bool, expiresAt *time.Time) (string, *entity.APIKey) {
	t.Helper()
	plaintext := Generate()
	key := &entity.APIKey{
		AccountID: accountID,
		KeyHash:   Hash(plaintext),
		KeyPrefix: DisplayPrefix(plaintext),
		IsActive:  active,
		ExpiresAt: expiresAt,
	}
	repo.add(key)
	return plaintext, key
}

func TestManagerCreate(t *testing.T) {
	repo := newKeyRepoStub()
	m := NewManager(repo, nil)

	created, err := m.Create(context.Background(), "acct-1", "ci key", nil)
	require.NoError(t, err)

	assert.True(t, WellFormed(created.Plaintext))
	assert.Equal(t, Hash(created.Plaintext), created.Key.KeyHash)
	assert.Equal(t, "acct-1", created.Key.AccountID)
	assert.True(t, created.Key.IsActive)

	// 散列可反查，明文不落库
	stored, err := repo.GetByHash(context.Background(), Hash(created.Plaintext))
	require.NoError(t, err)
	assert.NotContains(t, stored.KeyHash, created.Plaintext)
}

func TestManagerVerify(t *testing.T) {
	repo := newKeyRepoStub()
	m := NewManager(repo, nil)

	plaintext, _ := seedKey(t, repo, "acct-1", true, nil)

	key, err := m.Verify(context.Background(), plaintext)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", key.AccountID)
	assert.Equal(t, 1, repo.touched())
}

func TestManagerVerifyConcurrent(t *testing.T) {
	repo := newKeyRepoStub()
	m := NewManager(repo, newCacheStub())

	plaintext, _ := seedKey(t, repo, "acct-1", true, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := m.Verify(context.Background(), plaintext)
			assert.NoError(t, err)
			assert.Equal(t, "acct-1", key.AccountID)
		}()
	}
	wg.Wait()

	// 每次验证恰好记一次使用
	assert.Equal(t, 10, repo.touched())
}

func TestManagerVerifyUniformRejection(t *testing.T) {
	repo := newKeyRepoStub()
	m := NewManager(repo, nil)

	past := time.Now().Add(-time.Hour)
	inactivePlain, _ := seedKey(t, repo, "acct-1", false, nil)
	expiredPlain, _ := seedKey(t, repo, "acct-1", true, &past)

	cases := []struct {
		name      string
		plaintext string
	}{
		{"malformed", "not-a-key"},
		{"well formed but unknown", Generate()},
		{"inactive", inactivePlain},
		{"expired", expiredPlain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Verify(context.Background(), tc.plaintext)
			assert.ErrorIs(t, err, apperrors.ErrAPIKeyInvalid)
		})
	}

	// 拒绝的请求不应累计使用次数
	assert.Equal(t, 0, repo.touched())
}

func TestManagerVerifyTouchFailureIgnored(t *testing.T) {
	repo := newKeyRepoStub()
	repo.touchErr = assert.AnError
	m := NewManager(repo, nil)

	plaintext, _ := seedKey(t, repo, "acct-1", true, nil)

	_, err := m.Verify(context.Background(), plaintext)
	assert.NoError(t, err)
}

func TestManagerVerifyCached(t *testing.T) {
	repo := newKeyRepoStub()
	cache := newCacheStub()
	m := NewManager(repo, cache)

	plaintext, _ := seedKey(t, repo, "acct-1", true, nil)

	for i := 0; i < 3; i++ {
		key, err := m.Verify(context.Background(), plaintext)
		require.NoError(t, err)
		assert.Equal(t, "acct-1", key.AccountID)
	}

	// 重复认证命中缓存，只回源一次
	assert.Equal(t, 1, cache.loads)
}

func TestManagerVerifyCacheErrorFallsBack(t *testing.T) {
	repo := newKeyRepoStub()
	cache := newCacheStub()
	cache.getErr = assert.AnError
	m := NewManager(repo, cache)

	plaintext, _ := seedKey(t, repo, "acct-1", true, nil)

	key, err := m.Verify(context.Background(), plaintext)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", key.AccountID)
}

func TestManagerRevoke(t *testing.T) {
	repo := newKeyRepoStub()
	cache := newCacheStub()
	m := NewManager(repo, cache)

	_, key := seedKey(t, repo, "acct-1", true, nil)

	require.NoError(t, m.Revoke(context.Background(), "acct-1", key.ID))
	assert.Contains(t, repo.deactivated, key.ID)
	assert.Contains(t, cache.evicted, keyCachePrefix+key.KeyHash)
}

func TestManagerRevokeCrossAccount(t *testing.T) {
	repo := newKeyRepoStub()
	m := NewManager(repo, nil)

	_, key := seedKey(t, repo, "acct-1", true, nil)

	err := m.Revoke(context.Background(), "acct-2", key.ID)
	assert.ErrorIs(t, err, apperrors.ErrAPIKeyNotFound)
	assert.Empty(t, repo.deactivated)
}

func TestManagerDelete(t *testing.T) {
	repo := newKeyRepoStub()
	cache := newCacheStub()
	m := NewManager(repo, cache)

	plaintext, key := seedKey(t, repo, "acct-1", true, nil)

	require.NoError(t, m.Delete(context.Background(), "acct-1", key.ID))
	assert.Contains(t, repo.deleted, key.ID)
	assert.Contains(t, cache.evicted, keyCachePrefix+key.KeyHash)

	_, err := m.Verify(context.Background(), plaintext)
	assert.ErrorIs(t, err, apperrors.ErrAPIKeyInvalid)
}

func TestManagerDeleteCrossAccount(t *testing.T) {
	repo := newKeyRepoStub()
	m := NewManager(repo, nil)

	_, key := seedKey(t, repo, "acct-1", true, nil)

	err := m.Delete(context.Background(), "acct-2", key.ID)
	assert.ErrorIs(t, err, apperrors.ErrAPIKeyNotFound)
	assert.Empty(t, repo.deleted)
}
