package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arturoeanton/go-phrasematch-ollama/internal/domain"
	"github.com/arturoeanton/go-phrasematch-ollama/internal/port"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls   int
	emb     domain.Embedding
	err     error
	initErr error
}

func (s *stubProvider) ModelName() string              { return "bge-m3" }
func (s *stubProvider) Init(ctx context.Context) error { return s.initErr }
func (s *stubProvider) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	s.calls++
	return s.emb, s.err
}

func newReadyCache(t *testing.T, next *stubProvider, client *redis.Client) *EmbeddingCache {
	t.Helper()
	c := NewEmbeddingCache(next, client, time.Hour)
	require.NoError(t, c.Init(context.Background()))
	return c
}

func TestEmbeddingCache_EmbedBeforeInit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := &stubProvider{emb: domain.Embedding{1}}
	c := NewEmbeddingCache(next, client, time.Hour)

	// A cached vector must not leak out before the provider is ready.
	mock.ExpectGet(Key("bge-m3", "hello")).SetVal(`[0.5,1]`)

	got, err := c.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, port.ErrNotReady)
	assert.Nil(t, got)
	assert.Equal(t, 0, next.calls)
	assert.Error(t, mock.ExpectationsWereMet(), "redis must not be queried")
}

func TestEmbeddingCache_InitFailureStaysNotReady(t *testing.T) {
	client, _ := redismock.NewClientMock()
	next := &stubProvider{initErr: port.ErrProviderInit}
	c := NewEmbeddingCache(next, client, time.Hour)

	assert.ErrorIs(t, c.Init(context.Background()), port.ErrProviderInit)
	_, err := c.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, port.ErrNotReady)
}

func TestEmbeddingCache_Hit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := &stubProvider{}
	c := newReadyCache(t, next, client)

	mock.ExpectGet(Key("bge-m3", "hello")).SetVal(`[0.5,1]`)

	got, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.Embedding{0.5, 1}, got)
	assert.Equal(t, 0, next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingCache_MissStores(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := &stubProvider{emb: domain.Embedding{1, 2}}
	c := newReadyCache(t, next, client)

	key := Key("bge-m3", "hello")
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, []byte(`[1,2]`), time.Hour).SetVal("OK")

	got, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.Embedding{1, 2}, got)
	assert.Equal(t, 1, next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingCache_ReadFailureFallsThrough(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := &stubProvider{emb: domain.Embedding{3}}
	c := newReadyCache(t, next, client)

	key := Key("bge-m3", "hello")
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, []byte(`[3]`), time.Hour).SetErr(errors.New("connection refused"))

	got, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.Embedding{3}, got)
	assert.Equal(t, 1, next.calls)
}

func TestEmbeddingCache_ProviderErrorNotCached(t *testing.T) {
	client, mock := redismock.NewClientMock()
	boom := errors.New("boom")
	next := &stubProvider{err: boom}
	c := newReadyCache(t, next, client)

	mock.ExpectGet(Key("bge-m3", "hello")).RedisNil()

	_, err := c.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKey_StableAndModelScoped(t *testing.T) {
	assert.Equal(t, Key("m", "x"), Key("m", "x"))
	assert.NotEqual(t, Key("m", "x"), Key("n", "x"))
	assert.NotEqual(t, Key("m", "x"), Key("m", "y"))
}
