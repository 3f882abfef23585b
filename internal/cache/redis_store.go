package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore is the production Store backed by Redis. It survives process
// restarts and is shared by the gateway, the catalog, the session engine
// and the sync worker.
type RedisStore struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		log: log.With().Str("component", "cache").Logger(),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return nil, false
	}
	return raw, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) {
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func (s *RedisStore) AppendToQueue(ctx context.Context, queue string, item []byte) {
	if err := s.rdb.RPush(ctx, queue, item).Err(); err != nil {
		s.log.Warn().Err(err).Str("queue", queue).Msg("Queue append failed")
	}
}

func (s *RedisStore) DrainQueue(ctx context.Context, queue string, max int) [][]byte {
	var items [][]byte
	for len(items) < max {
		raw, err := s.rdb.LPop(ctx, queue).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				s.log.Warn().Err(err).Str("queue", queue).Msg("Queue drain failed")
			}
			break
		}
		items = append(items, raw)
	}
	return items
}
