package security

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceManager_IssueVerify(t *testing.T) {
	ctx := context.Background()
	m := NewNonceManager(NewMemoryNonceStore(), time.Hour)

	token, err := m.Issue(ctx, 7, ScopeAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.True(t, m.Verify(ctx, 7, ScopeAdmin, token))
	// a nonce is reusable until it expires
	assert.True(t, m.Verify(ctx, 7, ScopeAdmin, token))

	assert.False(t, m.Verify(ctx, 8, ScopeAdmin, token), "other user")
	assert.False(t, m.Verify(ctx, 7, ScopePublic, token), "other scope")
	assert.False(t, m.Verify(ctx, 7, ScopeAdmin, ""), "empty token")
	assert.False(t, m.Verify(ctx, 7, ScopeAdmin, token+"x"), "tampered token")
}

func TestNonceManager_Revoke(t *testing.T) {
	ctx := context.Background()
	m := NewNonceManager(NewMemoryNonceStore(), time.Hour)

	token, err := m.Issue(ctx, 0, ScopePublic)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, 0, ScopePublic, token))
	assert.False(t, m.Verify(ctx, 0, ScopePublic, token))
}

func TestNonceManager_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryNonceStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	m := NewNonceManager(store, time.Hour)

	token, err := m.Issue(ctx, 1, ScopeAdmin)
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	assert.True(t, m.Verify(ctx, 1, ScopeAdmin, token))

	now = now.Add(2 * time.Minute)
	assert.False(t, m.Verify(ctx, 1, ScopeAdmin, token))
}

func TestNonceManager_DefaultTTL(t *testing.T) {
	m := NewNonceManager(NewMemoryNonceStore(), 0)
	assert.Equal(t, DefaultNonceTTL, m.TTL())
}

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer x")
	h.Set("X-WP-Nonce", "n")
	h.Set("Accept", "application/json")

	clean := SanitizeHeaders(h)
	assert.Empty(t, clean.Get("Authorization"))
	assert.Empty(t, clean.Get("X-WP-Nonce"))
	assert.Equal(t, "application/json", clean.Get("Accept"))
	assert.Equal(t, "Bearer x", h.Get("Authorization"), "original untouched")
}
