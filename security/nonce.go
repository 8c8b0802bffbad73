package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Nonce scopes. Admin actions and front-end actions carry different tokens.
const (
	ScopeAdmin  = "aslp_admin_nonce"
	ScopePublic = "aslp_public_nonce"
)

const DefaultNonceTTL = 12 * time.Hour

// NonceStore persists issued anti-forgery tokens until they expire.
type NonceStore interface {
	Put(ctx context.Context, key string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// NonceManager issues and verifies tokens bound to a user and a scope.
type NonceManager struct {
	store NonceStore
	ttl   time.Duration
}

func NewNonceManager(store NonceStore, ttl time.Duration) *NonceManager {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &NonceManager{store: store, ttl: ttl}
}

func (m *NonceManager) TTL() time.Duration { return m.ttl }

// Issue creates a token valid for userID (0 for guests) within scope.
func (m *NonceManager) Issue(ctx context.Context, userID int64, scope string) (string, error) {
	token, err := RandomToken(nonceBytes)
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	if err := m.store.Put(ctx, nonceKey(userID, scope, token), m.ttl); err != nil {
		return "", fmt.Errorf("store nonce: %w", err)
	}
	return token, nil
}

// Verify reports whether token was issued to userID for scope and is unexpired.
// Store errors count as a failed check.
func (m *NonceManager) Verify(ctx context.Context, userID int64, scope, token string) bool {
	if token == "" || scope == "" {
		return false
	}
	ok, err := m.store.Exists(ctx, nonceKey(userID, scope, token))
	return err == nil && ok
}

// Revoke invalidates a token, e.g. on logout.
func (m *NonceManager) Revoke(ctx context.Context, userID int64, scope, token string) error {
	return m.store.Delete(ctx, nonceKey(userID, scope, token))
}

func nonceKey(userID int64, scope, token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("aslp:nonce:%d:%s:%s", userID, scope, hex.EncodeToString(sum[:]))
}

// RedisNonceStore keeps nonces in Redis with native expiry.
type RedisNonceStore struct {
	client *redis.Client
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

func (s *RedisNonceStore) Put(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, key, 1, ttl).Err()
}

func (s *RedisNonceStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisNonceStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// MemoryNonceStore is used when Redis is unavailable and in tests.
type MemoryNonceStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{entries: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryNonceStore) Put(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.now().Add(ttl)
	s.sweepLocked()
	return nil
}

func (s *MemoryNonceStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if s.now().After(expiry) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryNonceStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryNonceStore) sweepLocked() {
	now := s.now()
	for k, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, k)
		}
	}
}

