package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/yikakia/remora/core/event"
	"github.com/yikakia/remora/core/store"
)

// Cache 一个命名空间：一个默认 store 加零或多个具名 sub-store
// sub-store 各自可以有独立的默认 TTL
type Cache struct {
	name string
	def  *store.Store
	bus  *event.Bus

	mu    sync.RWMutex
	subs  map[string]*store.Store
	order []string
}

// StoreInfo ListStores 的结果项
type StoreInfo struct {
	Name       string
	Items      int
	DefaultTTL time.Duration
}

func newCache(name string, bus *event.Bus, defaultTTL time.Duration) *Cache {
	return &Cache{
		name: name,
		bus:  bus,
		def:  store.New(name, store.WithBus(bus), store.WithDefaultTTL(defaultTTL)),
		subs: map[string]*store.Store{},
	}
}

func (c *Cache) Name() string { return c.name }

// Default 返回默认 store
func (c *Cache) Default() *store.Store { return c.def }

// CreateStore 创建具名 sub-store 重名时返回 ErrStoreExists
func (c *Cache) CreateStore(name string, defaultTTL time.Duration) (*store.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.subs[name]; ok {
		return nil, fmt.Errorf("store:%s in cache:%s. %w", name, c.name, ErrStoreExists)
	}
	s := store.New(c.name,
		store.WithStoreName(name),
		store.WithBus(c.bus),
		store.WithDefaultTTL(defaultTTL),
	)
	c.subs[name] = s
	c.order = append(c.order, name)
	return s, nil
}

// Store 查找具名 sub-store
func (c *Cache) Store(name string) (*store.Store, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.subs[name]
	if !ok {
		return nil, fmt.Errorf("store:%s in cache:%s. %w", name, c.name, ErrStoreNotFound)
	}
	return s, nil
}

func (c *Cache) DeleteStore(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.subs[name]; !ok {
		return fmt.Errorf("store:%s in cache:%s. %w", name, c.name, ErrStoreNotFound)
	}
	delete(c.subs, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListStores 按创建顺序列出 sub-store 及其当前未过期项数
func (c *Cache) ListStores() []StoreInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]StoreInfo, 0, len(c.order))
	for _, name := range c.order {
		s := c.subs[name]
		out = append(out, StoreInfo{
			Name:       name,
			Items:      s.Len(),
			DefaultTTL: s.DefaultTTL(),
		})
	}
	return out
}

// stores 默认 store + 全部 sub-store 的快照 sweeper 用
func (c *Cache) stores() []*store.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*store.Store, 0, len(c.order)+1)
	out = append(out, c.def)
	for _, name := range c.order {
		out = append(out, c.subs[name])
	}
	return out
}
