// Package store 实现单个命名空间的过期键值存储
//
// 过期采用双路策略：访问路径上的惰性检查 加上 sweeper 的后台主动清理
// 两边对同一个 key 竞争时 只有真正从 map 里删掉 entry 的一方派发 expire 事件
// 另一方看到的只是 key 不存在 不会重复派发
package store

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yikakia/remora/core/event"
)

// Store 一个命名空间的 key -> entry 映射
//
// 锁规则：对 map 的所有读写都在本 store 的互斥锁内完成
// 任何路径都不会同时持有两个 store 的锁 事件派发一律发生在解锁之后
//
// 枚举顺序是插入顺序 由 order 链表维护（map 提供 O(1) 查找）
type Store struct {
	name       string // 为空表示 cache 的默认 store
	cacheName  string
	defaultTTL time.Duration
	bus        *event.Bus

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List
}

type Option func(*Store)

// WithDefaultTTL 设置该 store 的默认过期时间 0 表示默认永不过期
func WithDefaultTTL(d time.Duration) Option {
	return func(s *Store) {
		s.defaultTTL = d
	}
}

// WithBus 挂接事件总线 不挂时 store 静默工作
func WithBus(b *event.Bus) Option {
	return func(s *Store) {
		s.bus = b
	}
}

// WithStoreName 具名 sub-store 使用 事件上下文里会带上这个名字
func WithStoreName(name string) Option {
	return func(s *Store) {
		s.name = name
	}
}

func New(cacheName string, opts ...Option) *Store {
	s := &Store{
		cacheName: cacheName,
		items:     map[string]*list.Element{},
		order:     list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Name() string              { return s.name }
func (s *Store) CacheName() string         { return s.cacheName }
func (s *Store) DefaultTTL() time.Duration { return s.defaultTTL }

// Get 返回未过期的值 路过的过期项当场淘汰并派发一条 expire
func (s *Store) Get(ctx context.Context, key string) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	el, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("key:%s not found in cache:%s. %w", key, s.cacheName, ErrNotFound)
	}
	e := el.Value.(*entry)
	if e.expired(time.Now()) {
		old := s.removeLocked(key, el)
		s.mu.Unlock()
		s.notifyExpired(ctx, old)
		return nil, fmt.Errorf("key:%s not found in cache:%s. %w", key, s.cacheName, ErrNotFound)
	}
	val := e.snapshotValue()
	s.mu.Unlock()
	return val, nil
}

// Set 写入或覆盖 返回覆盖前的旧值（不存在时为 nil）
//
// ttl == 0 时使用 store 的默认 TTL ttl < 0 返回 ErrInvalidTTL
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if ttl < 0 {
		return nil, fmt.Errorf("ttl require >= 0, but got: %v. %w", ttl, ErrInvalidTTL)
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	now := time.Now()
	s.mu.Lock()

	var old any
	var expired *entry
	if el, ok := s.items[key]; ok {
		e := el.Value.(*entry)
		if e.expired(now) {
			// 旧 entry 已经过期 覆盖写等价于先淘汰再新建
			expired = s.removeLocked(key, el)
		} else {
			old = e.snapshotValue()
			e.value = value
			e.updatedAt = now
			e.hasExpiry = ttl > 0
			if ttl > 0 {
				e.expireAt = now.Add(ttl)
			}
			s.mu.Unlock()
			return old, nil
		}
	}

	s.insertLocked(key, value, ttl, now)
	s.mu.Unlock()
	s.notifyExpired(ctx, expired)
	return nil, nil
}

// Delete 无条件删除 返回旧值和是否存在过
func (s *Store) Delete(ctx context.Context, key string) (any, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	s.mu.Lock()
	el, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		return nil, false, nil
	}
	e := el.Value.(*entry)
	if e.expired(time.Now()) {
		old := s.removeLocked(key, el)
		s.mu.Unlock()
		s.notifyExpired(ctx, old)
		return nil, false, nil
	}
	old := s.removeLocked(key, el)
	s.mu.Unlock()
	return old.snapshotValue(), true, nil
}

// Expire 给已存在的 key 设置/覆盖 TTL
//
// ttl <= 0 是明确的契约错误 不会被解释成"立即过期"
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl require > 0, but got: %v. %w", ttl, ErrInvalidTTL)
	}

	now := time.Now()
	s.mu.Lock()
	el, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("key:%s not found in cache:%s. %w", key, s.cacheName, ErrNotFound)
	}
	e := el.Value.(*entry)
	if e.expired(now) {
		old := s.removeLocked(key, el)
		s.mu.Unlock()
		s.notifyExpired(ctx, old)
		return fmt.Errorf("key:%s not found in cache:%s. %w", key, s.cacheName, ErrNotFound)
	}
	e.hasExpiry = true
	e.expireAt = now.Add(ttl)
	e.updatedAt = now
	s.mu.Unlock()
	return nil
}

// push 前置/追加一个元素 key 不存在时建一个单元素的 list
func (s *Store) push(ctx context.Context, key, value string, front bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	now := time.Now()
	s.mu.Lock()

	var expired *entry
	el, ok := s.items[key]
	if ok {
		e := el.Value.(*entry)
		if e.expired(now) {
			expired = s.removeLocked(key, el)
			ok = false
		} else {
			l, isList := e.value.([]string)
			if !isList {
				s.mu.Unlock()
				return fmt.Errorf("key:%s holds %T, not a list. %w", key, e.value, ErrTypeMissMatch)
			}
			if front {
				e.value = append([]string{value}, l...)
			} else {
				e.value = append(l, value)
			}
			e.updatedAt = now
			s.mu.Unlock()
			return nil
		}
	}
	if !ok {
		s.insertLocked(key, []string{value}, s.defaultTTL, now)
	}
	s.mu.Unlock()
	s.notifyExpired(ctx, expired)
	return nil
}

func (s *Store) LPush(ctx context.Context, key, value string) error {
	return s.push(ctx, key, value, true)
}

func (s *Store) RPush(ctx context.Context, key, value string) error {
	return s.push(ctx, key, value, false)
}

// LPop 弹出表头 list 弹空后整个 key 一并移除 不保留空 list
func (s *Store) LPop(ctx context.Context, key string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	now := time.Now()
	s.mu.Lock()
	el, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		return "", fmt.Errorf("key:%s not found in cache:%s. %w", key, s.cacheName, ErrNotFound)
	}
	e := el.Value.(*entry)
	if e.expired(now) {
		old := s.removeLocked(key, el)
		s.mu.Unlock()
		s.notifyExpired(ctx, old)
		return "", fmt.Errorf("key:%s not found in cache:%s. %w", key, s.cacheName, ErrNotFound)
	}
	l, isList := e.value.([]string)
	if !isList {
		s.mu.Unlock()
		return "", fmt.Errorf("key:%s holds %T, not a list. %w", key, e.value, ErrTypeMissMatch)
	}
	head := l[0]
	if len(l) == 1 {
		s.removeLocked(key, el)
	} else {
		e.value = l[1:]
		e.updatedAt = now
	}
	s.mu.Unlock()
	return head, nil
}

// Keys 按插入顺序枚举未过期的 key 路过的过期项顺手淘汰
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	now := time.Now()
	s.mu.Lock()
	keys := make([]string, 0, len(s.items))
	var evicted []*entry
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if e.expired(now) {
			evicted = append(evicted, s.removeLocked(e.key, el))
		} else {
			keys = append(keys, e.key)
		}
		el = next
	}
	s.mu.Unlock()
	s.notifyExpired(ctx, evicted...)
	return keys, nil
}

// GetAll 按插入顺序返回所有未过期的键值对
func (s *Store) GetAll(ctx context.Context) ([]KV, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	now := time.Now()
	s.mu.Lock()
	out := make([]KV, 0, len(s.items))
	var evicted []*entry
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if e.expired(now) {
			evicted = append(evicted, s.removeLocked(e.key, el))
		} else {
			out = append(out, KV{Key: e.key, Value: e.snapshotValue()})
		}
		el = next
	}
	s.mu.Unlock()
	s.notifyExpired(ctx, evicted...)
	return out, nil
}

// Clear 移除所有项（无论是否过期）返回移除前未过期项的快照
func (s *Store) Clear(ctx context.Context) ([]KV, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	now := time.Now()
	s.mu.Lock()
	removed := make([]KV, 0, len(s.items))
	for el := s.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if !e.expired(now) {
			removed = append(removed, KV{Key: e.key, Value: e.snapshotValue()})
		}
	}
	s.items = map[string]*list.Element{}
	s.order.Init()
	s.mu.Unlock()
	return removed, nil
}

// Len 当前未过期的项数 只读 不触发淘汰
func (s *Store) Len() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for el := s.order.Front(); el != nil; el = el.Next() {
		if !el.Value.(*entry).expired(now) {
			n++
		}
	}
	return n
}

// Sweep 淘汰所有已过期的项 返回淘汰数量 由 sweeper 周期调用
func (s *Store) Sweep(ctx context.Context) int {
	now := time.Now()
	s.mu.Lock()
	var evicted []*entry
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if e.expired(now) {
			evicted = append(evicted, s.removeLocked(e.key, el))
		}
		el = next
	}
	s.mu.Unlock()
	s.notifyExpired(ctx, evicted...)
	return len(evicted)
}

// insertLocked 追加一个新 entry 调用方持锁
func (s *Store) insertLocked(key string, value any, ttl time.Duration, now time.Time) {
	e := &entry{
		key:       key,
		value:     value,
		hasExpiry: ttl > 0,
		createdAt: now,
		updatedAt: now,
	}
	if ttl > 0 {
		e.expireAt = now.Add(ttl)
	}
	s.items[key] = s.order.PushBack(e)
}

// removeLocked 从 map 和链表里摘掉 entry 调用方持锁
func (s *Store) removeLocked(key string, el *list.Element) *entry {
	delete(s.items, key)
	s.order.Remove(el)
	return el.Value.(*entry)
}

// notifyExpired 为每个被淘汰的 entry 派发一条 expire
// 必须在解锁之后调用 handler 里回调引擎不会死锁
func (s *Store) notifyExpired(ctx context.Context, evicted ...*entry) {
	if s.bus == nil {
		return
	}
	for _, e := range evicted {
		if e == nil {
			continue
		}
		s.bus.Dispatch(ctx, event.Context{
			CacheName: s.cacheName,
			StoreName: s.name,
			Key:       e.key,
			OldValue:  e.snapshotValue(),
			Type:      event.TypeExpire,
			Timestamp: time.Now(),
		})
	}
}
