package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eddielth/z2mgen/config"
	"github.com/eddielth/z2mgen/logger"
)

const redisKeyPrefix = "z2m:state:"

// RedisStorage caches the last state of every device with a TTL.
type RedisStorage struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStorage connects and pings the server.
func NewRedisStorage(cfg config.RedisStorageConfig) (*RedisStorage, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", cfg.Addr, err)
	}

	logger.Info("init redis state cache: %s", cfg.Addr)
	return NewRedisStorageWithClient(rdb, cfg.TTL), nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(rdb *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{rdb: rdb, ttl: ttl}
}

func redisKey(address string) string { return redisKeyPrefix + address }

// Store replaces the cached state of rec.Address.
func (rs *RedisStorage) Store(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("serialize data failed: %w", err)
	}
	if err := rs.rdb.Set(ctx, redisKey(rec.Address), data, rs.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", rec.Address, err)
	}
	return nil
}

// Last returns the cached record for address, or nil when none is cached.
func (rs *RedisStorage) Last(ctx context.Context, address string) (*Record, error) {
	data, err := rs.rdb.Get(ctx, redisKey(address)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode cached state of %s: %w", address, err)
	}
	return &rec, nil
}

// Close implement StorageBackend
func (rs *RedisStorage) Close() error {
	return rs.rdb.Close()
}
