package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
	redisclient "github.com/gudangmitra/gudang-mitra-backend/pkg/redis"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redisclient.Nil
	}
	return val, nil
}

func (m *memoryStore) GetDel(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redisclient.Nil
	}
	delete(m.data, key)
	return val, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func TestManagerStoresOnlyTokenHash(t *testing.T) {
	store := newMemoryStore()
	manager := &Manager{store: store, ttl: time.Hour}

	token, err := manager.Generate(context.Background(), "access-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	stored := store.data[store.AccessSessionKey("access-123")]
	require.NotEqual(t, token, stored)
	require.Equal(t, hashToken(token), stored)
}

func TestManagerRotateIsSingleUse(t *testing.T) {
	store := newMemoryStore()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	token, err := manager.Generate(ctx, "access-123")
	require.NoError(t, err)

	newAccessID, newToken, err := manager.Rotate(ctx, "access-123", token)
	require.NoError(t, err)
	require.NotEqual(t, "access-123", newAccessID)
	require.NotContains(t, store.data, store.AccessSessionKey("access-123"))
	require.Equal(t, hashToken(newToken), store.data[store.AccessSessionKey(newAccessID)])

	_, _, err = manager.Rotate(ctx, "access-123", token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestManagerRotateWrongTokenEndsSession(t *testing.T) {
	store := newMemoryStore()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	token, err := manager.Generate(ctx, "access-1")
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, "access-1", "guessed")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, _, err = manager.Rotate(ctx, "access-1", token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestManagerRevokeAndHasSession(t *testing.T) {
	store := newMemoryStore()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	_, err := manager.Generate(ctx, "access-1")
	require.NoError(t, err)

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, manager.Revoke(ctx, "access-1"))
	ok, err = manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.Error(t, manager.Revoke(ctx, " "))
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{ExpirationMinutes: 5, SessionTTLMinutes: 10})
	require.Error(t, err)
}
