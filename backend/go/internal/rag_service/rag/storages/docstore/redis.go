package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"

	"github.com/go-redis/redis/v8"
)

// RedisDocStore keeps the mapping in one Redis hash: field = filename, value = JSON array of chunk ids.
type RedisDocStore struct {
	rdb *redis.Client
	key string
}

// NewRedisDocStore returns a store over the hash at key.
func NewRedisDocStore(rdb *redis.Client, key string) *RedisDocStore {
	return &RedisDocStore{rdb: rdb, key: key}
}

func (s *RedisDocStore) Upsert(ctx context.Context, filename string, chunkIDs []string) error {
	if chunkIDs == nil {
		chunkIDs = []string{}
	}
	raw, err := json.Marshal(chunkIDs)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, s.key, filename, raw).Err(); err != nil {
		return ragerr.Wrap(ragerr.ErrStore, err)
	}
	return nil
}

func (s *RedisDocStore) Get(ctx context.Context, filename string) ([]string, error) {
	raw, err := s.rdb.HGet(ctx, s.key, filename).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("document %q: %w", filename, ragerr.ErrNotFound)
	}
	if err != nil {
		return nil, ragerr.Wrap(ragerr.ErrStore, err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, ragerr.Wrap(ragerr.ErrStore, fmt.Errorf("corrupt entry for %q: %w", filename, err))
	}
	return ids, nil
}

func (s *RedisDocStore) ListFilenames(ctx context.Context) ([]string, error) {
	names, err := s.rdb.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, ragerr.Wrap(ragerr.ErrStore, err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *RedisDocStore) Delete(ctx context.Context, filename string) error {
	if err := s.rdb.HDel(ctx, s.key, filename).Err(); err != nil {
		return ragerr.Wrap(ragerr.ErrStore, err)
	}
	return nil
}

func (s *RedisDocStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

var _ interfaces.DocStore = (*RedisDocStore)(nil)
