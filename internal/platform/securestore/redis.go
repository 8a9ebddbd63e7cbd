package securestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis constructs a redis-backed secure store.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = cfg.Namespace
	}
	if prefix == "" {
		prefix = "securestore"
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}

	return &redisStore{
		client: client,
		prefix: prefix,
	}, nil
}

func (s *redisStore) key(name string) string {
	return s.prefix + name
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key required")
	}
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return raw, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *redisStore) Keys(ctx context.Context) ([]string, error) {
	var cursor uint64
	keys := make([]string, 0)
	pattern := s.prefix + "*"
	for {
		res, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range res {
			keys = append(keys, strings.TrimPrefix(key, s.prefix))
		}
		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}
	return keys, nil
}

func (s *redisStore) Close(_ context.Context) error {
	return s.client.Close()
}
