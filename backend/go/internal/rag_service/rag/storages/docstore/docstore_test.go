package docstore

import (
	"context"
	"os"
	"testing"

	"pdfrag/backend/go/internal/config"
	redisdb "pdfrag/backend/go/internal/database/redis"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseDocStore(t *testing.T, s interfaces.DocStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing.pdf")
	assert.ErrorIs(t, err, ragerr.ErrNotFound)

	require.NoError(t, s.Upsert(ctx, "b.pdf", []string{"b1"}))
	require.NoError(t, s.Upsert(ctx, "a.pdf", []string{"a1", "a2"}))
	require.NoError(t, s.Upsert(ctx, "a.pdf", []string{"a3"}))

	ids, err := s.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"a3"}, ids)

	names, err := s.ListFilenames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, names)

	require.NoError(t, s.Delete(ctx, "a.pdf"))
	require.NoError(t, s.Delete(ctx, "a.pdf"))
	_, err = s.Get(ctx, "a.pdf")
	assert.ErrorIs(t, err, ragerr.ErrNotFound)

	assert.NoError(t, s.Ping(ctx))
}

func TestInMemoryDocStore(t *testing.T) {
	exerciseDocStore(t, NewInMemoryDocStore())
}

func TestRedisDocStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb, err := redisdb.NewClient(context.Background(), &config.RedisConfig{Address: addr})
	require.NoError(t, err)
	defer rdb.Close()

	key := "pdfrag:test:" + uuid.NewString()
	defer rdb.Del(context.Background(), key)

	exerciseDocStore(t, NewRedisDocStore(rdb, key))
}
