package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultReadTimeout = 3 * time.Second
)

// RedisFilesystem backs the blob namespace with plain SET/GET/DEL/KEYS
// under a fixed key prefix. Useful for ephemeral test fleets and for
// sharing transaction-store state across horizontally-scaled gateway
// replicas; atomic replace is naturally provided by Redis's SET.
// Grounded on the teacher's backend/libs/redis client constructor and
// sessions-service/internal/redis store shape.
type RedisFilesystem struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisFilesystem dials addr and validates the connection with PING.
func NewRedisFilesystem(ctx context.Context, addr, password, keyPrefix string) (*RedisFilesystem, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("storage: empty redis addr")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultReadTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisFilesystem{client: client, keyPrefix: keyPrefix}, nil
}

// Close releases the underlying redis connection pool.
func (fs *RedisFilesystem) Close() error { return fs.client.Close() }

func (fs *RedisFilesystem) fullKey(key string) string {
	return fs.keyPrefix + key
}

func (fs *RedisFilesystem) WriteFile(ctx context.Context, key string, data []byte) error {
	return fs.client.Set(ctx, fs.fullKey(key), data, 0).Err()
}

func (fs *RedisFilesystem) ReadFile(ctx context.Context, key string) ([]byte, error) {
	data, err := fs.client.Get(ctx, fs.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errNotExist(key)
	}
	return data, err
}

func (fs *RedisFilesystem) Remove(ctx context.Context, key string) error {
	return fs.client.Del(ctx, fs.fullKey(key)).Err()
}

func (fs *RedisFilesystem) List(ctx context.Context, prefix string) ([]string, error) {
	matches, err := fs.client.Keys(ctx, fs.fullKey(prefix)+"*").Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		keys = append(keys, strings.TrimPrefix(m, fs.keyPrefix))
	}
	return keys, nil
}
