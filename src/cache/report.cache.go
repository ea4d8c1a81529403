package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"restaurant-inventory/src/config"
)

const (
	reportKeyPrefix = "reports"
	scanBatchSize   = 100
	defaultTTL      = time.Minute
)

// ReportCache caches read-only report payloads per tenant. Movement writes
// invalidate the whole tenant prefix; reports are cheap to rebuild and the
// ledger stays the source of truth.
type ReportCache interface {
	Get(ctx context.Context, tenantID uuid.UUID, name string, dest interface{}) (bool, error)
	Set(ctx context.Context, tenantID uuid.UUID, name string, payload interface{}) error
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

// NewReportCache returns a redis-backed cache, or a noop cache when caching
// is disabled in config.
func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.ReportTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &redisReportCache{client: client, ttl: ttl}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func reportKey(tenantID uuid.UUID, name string) string {
	return fmt.Sprintf("%s:%s:%s", reportKeyPrefix, tenantID, name)
}

func (c *redisReportCache) Get(ctx context.Context, tenantID uuid.UUID, name string, dest interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, reportKey(tenantID, name)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("cache payload decode failed: %w", err)
	}
	return true, nil
}

func (c *redisReportCache) Set(ctx context.Context, tenantID uuid.UUID, name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cache payload encode failed: %w", err)
	}
	return c.client.Set(ctx, reportKey(tenantID, name), raw, c.ttl).Err()
}

func (c *redisReportCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	prefix := fmt.Sprintf("%s:%s:", reportKeyPrefix, tenantID)
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			return nil
		}
	}
}

func (noopReportCache) Get(context.Context, uuid.UUID, string, interface{}) (bool, error) {
	return false, nil
}

func (noopReportCache) Set(context.Context, uuid.UUID, string, interface{}) error {
	return nil
}

func (noopReportCache) InvalidateTenant(context.Context, uuid.UUID) error {
	return nil
}
