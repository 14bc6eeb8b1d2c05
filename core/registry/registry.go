// Package registry 维护 cacheName -> Cache 的映射和两级命名空间的生命周期
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/yikakia/remora/core/event"
	"github.com/yikakia/remora/core/store"
)

// Registry 全部命名空间的注册表
//
// 注册表锁只保护 name -> Cache 这张 map 的插入/删除/查找本身
// 拿到 Cache 之后的 key 操作走各 store 自己的锁 相互不阻塞
type Registry struct {
	bus        *event.Bus
	defaultTTL time.Duration

	mu     sync.RWMutex
	caches map[string]*Cache
	order  []string
}

type Option func(*Registry)

// WithBus 新建的 store 都会挂上这个总线
func WithBus(b *event.Bus) Option {
	return func(r *Registry) {
		r.bus = b
	}
}

// WithDefaultTTL 新建 cache 的默认 store 使用的默认 TTL
func WithDefaultTTL(d time.Duration) Option {
	return func(r *Registry) {
		r.defaultTTL = d
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		caches: map[string]*Cache{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CacheInfo List 的结果项 Items 是默认 store 当前未过期的项数
type CacheInfo struct {
	Name  string
	Items int
}

// Create 新建一个空 cache 重名时返回 ErrCacheExists
func (r *Registry) Create(name string) (*Cache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.caches[name]; ok {
		return nil, fmt.Errorf("cache:%s. %w", name, ErrCacheExists)
	}
	c := newCache(name, r.bus, r.defaultTTL)
	r.caches[name] = c
	r.order = append(r.order, name)
	return c, nil
}

// Get 查找 cache
func (r *Registry) Get(name string) (*Cache, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.caches[name]
	if !ok {
		return nil, fmt.Errorf("cache:%s. %w", name, ErrCacheNotFound)
	}
	return c, nil
}

// Delete 原子地摘除整个 cache（默认 store 和全部 sub-store 一起）
// 摘除后旧句柄上的操作不再可达 不存在部分删除的中间态
func (r *Registry) Delete(name string) (*Cache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.caches[name]
	if !ok {
		return nil, fmt.Errorf("cache:%s. %w", name, ErrCacheNotFound)
	}
	delete(r.caches, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return c, nil
}

// List 按创建顺序列出所有 cache
func (r *Registry) List() []CacheInfo {
	r.mu.RLock()
	caches := make([]*Cache, 0, len(r.order))
	for _, name := range r.order {
		caches = append(caches, r.caches[name])
	}
	r.mu.RUnlock()

	// Len 会拿各 store 的锁 放在注册表锁外做
	out := make([]CacheInfo, 0, len(caches))
	for _, c := range caches {
		out = append(out, CacheInfo{Name: c.Name(), Items: c.Default().Len()})
	}
	return out
}

// Stores 当前全部 store 的快照（默认 store 和 sub-store）sweeper 逐个清扫用
func (r *Registry) Stores() []*store.Store {
	r.mu.RLock()
	caches := make([]*Cache, 0, len(r.caches))
	for _, c := range r.caches {
		caches = append(caches, c)
	}
	r.mu.RUnlock()

	var out []*store.Store
	for _, c := range caches {
		out = append(out, c.stores()...)
	}
	return out
}
