// Package cache 提供查询结果的内存TTL缓存
package cache

import (
	"sync"
	"time"

	"github.com/LENAX/searchd-sidecar/pkg/core/task"
)

// QueryCache 查询结果缓存接口（对外导出）
type QueryCache interface {
	// Set 缓存一条语句的结果
	// stmt: 归一化后的语句文本
	// result: 结果数据
	// ttl: 缓存有效期
	Set(stmt string, result *task.Result, ttl time.Duration)

	// Get 读取缓存结果
	// 返回: 结果和是否命中
	Get(stmt string) (*task.Result, bool)

	// Delete 删除一条缓存
	Delete(stmt string)

	// Clear 清空所有缓存
	Clear()

	// Stop 停止后台清理协程
	Stop()
}

// cacheEntry 缓存条目（内部使用）
type cacheEntry struct {
	result     *task.Result
	expireTime time.Time
}

// MemoryQueryCache 内存查询缓存实现（对外导出）
type MemoryQueryCache struct {
	mu       sync.RWMutex
	cache    map[string]*cacheEntry
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewMemoryQueryCache 创建内存查询缓存实例（对外导出）
func NewMemoryQueryCache(cleanInterval time.Duration) *MemoryQueryCache {
	if cleanInterval <= 0 {
		cleanInterval = time.Minute
	}
	c := &MemoryQueryCache{
		cache:  make(map[string]*cacheEntry),
		stopCh: make(chan struct{}),
	}
	// 启动清理协程，定期清理过期缓存
	go c.cleanupExpired(cleanInterval)
	return c
}

// Set 缓存一条语句的结果
func (c *MemoryQueryCache) Set(stmt string, result *task.Result, ttl time.Duration) {
	if stmt == "" || result == nil || ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[stmt] = &cacheEntry{
		result:     result,
		expireTime: time.Now().Add(ttl),
	}
}

// Get 读取缓存结果
func (c *MemoryQueryCache) Get(stmt string) (*task.Result, bool) {
	if stmt == "" {
		return nil, false
	}

	c.mu.RLock()
	entry, exists := c.cache[stmt]
	c.mu.RUnlock()
	if !exists {
		return nil, false
	}

	// 过期条目视作未命中，删除交给清理协程
	if time.Now().After(entry.expireTime) {
		return nil, false
	}
	return entry.result, true
}

// Delete 删除一条缓存
func (c *MemoryQueryCache) Delete(stmt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, stmt)
}

// Clear 清空所有缓存
func (c *MemoryQueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*cacheEntry)
}

// Stop 停止后台清理协程
func (c *MemoryQueryCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// cleanupExpired 清理过期缓存（内部方法）
func (c *MemoryQueryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.cache {
				if now.After(entry.expireTime) {
					delete(c.cache, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
