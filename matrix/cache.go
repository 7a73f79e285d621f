package matrix

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/rushteam/filmrec/core"
)

// Model 是一次构建的产物：评分矩阵及其行相似度。
type Model struct {
	Matrix     *RatingMatrix
	Similarity *Similarity
}

// NewModel 构建评分矩阵并计算相似度。
func NewModel(ratings []core.Rating, o Orientation) *Model {
	m := Build(ratings, o)
	return &Model{Matrix: m, Similarity: m.Similarity()}
}

// CacheKey 标识一个可复用的 Model：数据快照版本 + 朝向。
type CacheKey struct {
	Version     uint64
	Orientation Orientation
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%d/%s", k.Version, k.Orientation)
}

// Cache 按快照版本缓存 Model，同一 key 的并发构建只执行一次。
// nil *Cache 可直接使用，每次都重新计算。
type Cache struct {
	lru    *lru.Cache[CacheKey, *Model]
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache 创建容量为 size 的缓存；size <= 0 时返回 nil（不缓存）。
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return nil, nil
	}
	l, err := lru.New[CacheKey, *Model](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Get 返回 key 对应的 Model，不存在时调用 load 构建并写入缓存。
// hit 表示是否命中缓存。
func (c *Cache) Get(key CacheKey, load func() *Model) (model *Model, hit bool) {
	if c == nil {
		return load(), false
	}
	if m, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return m, true
	}
	v, _, _ := c.group.Do(key.String(), func() (interface{}, error) {
		if m, ok := c.lru.Get(key); ok {
			return m, nil
		}
		m := load()
		c.lru.Add(key, m)
		return m, nil
	})
	c.misses.Add(1)
	return v.(*Model), false
}

// Purge 清空缓存。
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Len 返回缓存条目数。
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Stats 返回命中与未命中次数。
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}
