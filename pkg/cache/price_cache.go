// pkg/cache/price_cache.go
package cache

import (
	"sync"
	"time"

	"StickerRadar/pkg/model"
)

// PriceCache 每个被跟踪商品最近一次成功抓取的快照
// 快照不会自动过期，过期判断由调度器根据 Age 决定；
// 过期数据仍然参与评估，只是额外记录日志提示
type PriceCache struct {
	snapshots map[string]model.MarketSnapshot
	mutex     sync.RWMutex
}

// NewPriceCache 创建空的价格缓存
func NewPriceCache() *PriceCache {
	return &PriceCache{
		snapshots: make(map[string]model.MarketSnapshot),
	}
}

// Get 读取指定商品的快照
func (c *PriceCache) Get(goodName string) (model.MarketSnapshot, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snap, ok := c.snapshots[goodName]
	return snap, ok
}

// Update 整体替换指定商品的快照
func (c *PriceCache) Update(goodName string, snapshot model.MarketSnapshot) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.snapshots[goodName] = snapshot
}

// ApplyAll 应用一批抓取结果
// 上游未返回的商品保持原有快照不变，不会被清除
func (c *PriceCache) ApplyAll(snapshots map[string]model.MarketSnapshot) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for name, snap := range snapshots {
		c.snapshots[name] = snap
	}
}

// Age 快照距离上次成功抓取的时间
func (c *PriceCache) Age(goodName string) (time.Duration, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snap, ok := c.snapshots[goodName]
	if !ok {
		return 0, false
	}
	return time.Since(snap.FetchedAt), true
}

// Export 导出全部快照用于持久化
func (c *PriceCache) Export() map[string]model.MarketSnapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make(map[string]model.MarketSnapshot, len(c.snapshots))
	for name, snap := range c.snapshots {
		out[name] = snap
	}
	return out
}

// Restore 从持久化数据恢复缓存
func (c *PriceCache) Restore(snapshots map[string]model.MarketSnapshot) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.snapshots = make(map[string]model.MarketSnapshot, len(snapshots))
	for name, snap := range snapshots {
		c.snapshots[name] = snap
	}
}

// Len 当前缓存的商品数量
func (c *PriceCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.snapshots)
}
