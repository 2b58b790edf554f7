package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix(), "seller_id": 7})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Save(ctx, "s1", Tokens{Access: "a", Refresh: "r"}))
	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Tokens{Access: "a", Refresh: "r"}, got)

	require.NoError(t, store.Clear(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManagerUsesContextSession(t *testing.T) {
	mgr := NewManager(nil)
	ctx := ContextWithID(context.Background(), "abc")

	_, err := mgr.AccessToken(ctx)
	assert.True(t, IsNoSession(err))

	require.NoError(t, mgr.Save(ctx, Tokens{Access: "opaque", Refresh: "r"}))
	token, err := mgr.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque", token)
	assert.True(t, mgr.Authenticated(ctx))

	require.NoError(t, mgr.Invalidate(ctx))
	assert.False(t, mgr.Authenticated(ctx))

	_, err = mgr.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManagerDropsExpiredAccessToken(t *testing.T) {
	store := NewMemoryStore()
	mgr := NewManager(store)
	ctx := ContextWithID(context.Background(), "abc")

	require.NoError(t, mgr.Save(ctx, Tokens{Access: signedToken(t, time.Now().Add(-time.Minute))}))
	_, err := mgr.AccessToken(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNoSession, "expired pair should be cleared")

	fresh := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, mgr.Save(ctx, Tokens{Access: fresh}))
	token, err := mgr.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, token)
}

func TestAccessExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := AccessExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = AccessExpiry("not-a-jwt")
	assert.False(t, ok)
}

type fakeRedis struct {
	data   map[string]string
	ttl    map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake, WithKeyPrefix("test:"), WithTTL(time.Hour))
	ctx := context.Background()

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Save(ctx, "s1", Tokens{Access: "a", Refresh: "r"}))
	assert.Contains(t, fake.data, "test:s1")
	assert.Equal(t, time.Hour, fake.ttl["test:s1"])

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Access)

	require.NoError(t, store.Clear(ctx, "s1"))
	assert.NotContains(t, fake.data, "test:s1")

	fake.getErr = errors.New("connection refused")
	_, err = store.Load(ctx, "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

type countingStore struct {
	*MemoryStore
	clears atomic.Int32
	err    error
}

func (s *countingStore) Clear(ctx context.Context, id string) error {
	s.clears.Add(1)
	if s.err != nil {
		return s.err
	}
	return s.MemoryStore.Clear(ctx, id)
}

func TestManagerInvalidatesOncePerRequest(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	mgr := NewManager(store)
	ctx := ContextWithID(context.Background(), "abc")
	require.NoError(t, mgr.Save(ctx, Tokens{Access: "opaque"}))
	assert.False(t, Invalidated(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 9; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, mgr.Invalidate(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.clears.Load())
	assert.True(t, Invalidated(ctx))
	assert.False(t, mgr.Authenticated(ctx))

	next := ContextWithID(context.Background(), "abc")
	require.NoError(t, mgr.Invalidate(next))
	assert.Equal(t, int32(2), store.clears.Load())
}

func TestManagerInvalidateReportsStoreFailure(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore(), err: errors.New("redis down")}
	mgr := NewManager(store)
	ctx := ContextWithID(context.Background(), "abc")

	assert.EqualError(t, mgr.Invalidate(ctx), "redis down")
	assert.EqualError(t, mgr.Invalidate(ctx), "redis down")
	assert.Equal(t, int32(1), store.clears.Load())
}
