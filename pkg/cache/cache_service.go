package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService 缓存服务接口，目前只用于回调去重
type CacheService interface {
	// SetNX 仅在 key 不存在时写入，返回是否写入成功
	SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// RedisCache Redis 缓存实现
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache 创建 Redis 缓存服务，prefix 原样拼在 key 前 (如 "storefront:")
func NewRedisCache(client *redis.Client, prefix string) CacheService {
	return &RedisCache{
		client: client,
		prefix: prefix,
	}
}

// getKey 获取完整的缓存键
func (c *RedisCache) getKey(key string) string {
	return c.prefix + key
}

func (c *RedisCache) SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.getKey(key), value, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("cache setnx error: %w", err)
	}
	return ok, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.getKey(key)).Err()
}

// 每写入这么多次清扫一遍过期 key
const sweepEvery = 256

// MemoryCache 内存缓存实现（未配置 Redis 时使用，只在单实例内有效）
type MemoryCache struct {
	data   map[string]time.Time // key -> 过期时间
	writes int
	mu     sync.Mutex
	now    func() time.Time
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (c *MemoryCache) SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.data[key]; ok && !now.After(exp) {
		return false, nil
	}
	c.data[key] = now.Add(expiration)

	c.writes++
	if c.writes >= sweepEvery {
		c.writes = 0
		c.sweep(now)
	}
	return true, nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// Len 当前保存的 key 数，含尚未清扫的过期 key
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// sweep 调用方需持有锁
func (c *MemoryCache) sweep(now time.Time) {
	for key, exp := range c.data {
		if now.After(exp) {
			delete(c.data, key)
		}
	}
}
