package remora

import (
	"context"
	"time"

	"github.com/yikakia/remora/core/event"
	"github.com/yikakia/remora/core/store"
	"github.com/yikakia/remora/core/telemetry"
	"github.com/yikakia/remora/internal"
)

// lookupDefault 读路径的 store 解析 不会隐式建 cache
func (e *Engine) lookupDefault(cacheName string) (*store.Store, error) {
	c, err := e.reg.Get(cacheName)
	if err != nil {
		return nil, err
	}
	return c.Default(), nil
}

// CacheSet 向指定 cache 写入一个键值
// ttl == 0 时落到 store 的默认 TTL ttl < 0 返回 store.ErrInvalidTTL
func (e *Engine) CacheSet(ctx context.Context, cacheName, key, value string, ttl time.Duration) (finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpSet, CacheName: cacheName, Key: key}, start, finalErr)
	}()

	st, err := e.resolveDefault(ctx, cacheName)
	if err != nil {
		return err
	}
	old, err := st.Set(ctx, key, value, ttl)
	if err != nil {
		return err
	}
	e.bus.Dispatch(ctx, event.Context{
		CacheName: cacheName,
		Key:       key,
		Value:     value,
		OldValue:  old,
		Type:      event.TypeSet,
		Timestamp: time.Now(),
	})
	return nil
}

// CacheGet 读取一个键 命中才派发 get 事件 未命中不派发任何事件
func (e *Engine) CacheGet(ctx context.Context, cacheName, key string) (_ any, finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpGet, CacheName: cacheName, Key: key}, start, finalErr)
	}()

	st, err := e.lookupDefault(cacheName)
	if err != nil {
		return nil, err
	}
	val, err := st.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	e.bus.Dispatch(ctx, event.Context{
		CacheName: cacheName,
		Key:       key,
		Value:     val,
		Type:      event.TypeGet,
		Timestamp: time.Now(),
	})
	return val, nil
}

// CacheDel 删除一个键 键不存在时返回 store.ErrNotFound 且不派发事件
func (e *Engine) CacheDel(ctx context.Context, cacheName, key string) (finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpDelete, CacheName: cacheName, Key: key}, start, finalErr)
	}()

	st, err := e.lookupDefault(cacheName)
	if err != nil {
		return err
	}
	old, found, err := st.Delete(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	e.bus.Dispatch(ctx, event.Context{
		CacheName: cacheName,
		Key:       key,
		OldValue:  old,
		Type:      event.TypeDelete,
		Timestamp: time.Now(),
	})
	return nil
}

// CacheExpire 给已存在的键设置 TTL
// 键不存在返回 store.ErrNotFound ttl <= 0 返回 store.ErrInvalidTTL
func (e *Engine) CacheExpire(ctx context.Context, cacheName, key string, ttl time.Duration) (finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpExpire, CacheName: cacheName, Key: key}, start, finalErr)
	}()

	st, err := e.lookupDefault(cacheName)
	if err != nil {
		return err
	}
	return st.Expire(ctx, key, ttl)
}

// CacheKeys 按插入顺序返回 cache 默认 store 里所有未过期的键
// 枚举过程中路过的过期项会被顺手淘汰并派发 expire
func (e *Engine) CacheKeys(ctx context.Context, cacheName string) (_ []string, finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpKeys, CacheName: cacheName}, start, finalErr)
	}()

	st, err := e.lookupDefault(cacheName)
	if err != nil {
		return nil, err
	}
	return st.Keys(ctx)
}

// CacheGetAll 按插入顺序返回所有未过期的键值对
func (e *Engine) CacheGetAll(ctx context.Context, cacheName string) (_ []store.KV, finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpGetAll, CacheName: cacheName}, start, finalErr)
	}()

	st, err := e.lookupDefault(cacheName)
	if err != nil {
		return nil, err
	}
	return st.GetAll(ctx)
}

// CacheClear 清空 cache 的默认 store
// 对每个被移除的键派发一条 delete 最后补一条 clear
func (e *Engine) CacheClear(ctx context.Context, cacheName string) (finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpClear, CacheName: cacheName}, start, finalErr)
	}()

	st, err := e.lookupDefault(cacheName)
	if err != nil {
		return err
	}
	removed, err := st.Clear(ctx)
	if err != nil {
		return err
	}
	for _, kv := range removed {
		e.bus.Dispatch(ctx, event.Context{
			CacheName: cacheName,
			Key:       kv.Key,
			OldValue:  kv.Value,
			Type:      event.TypeDelete,
			Timestamp: time.Now(),
		})
	}
	e.bus.Dispatch(ctx, event.Context{
		CacheName: cacheName,
		Type:      event.TypeClear,
		Timestamp: time.Now(),
	})
	return nil
}

// CacheSearch 按 glob（默认）或正则匹配键 返回命中的键值对
// 和 CacheKeys 一样会惰性淘汰路过的过期项
func (e *Engine) CacheSearch(ctx context.Context, cacheName, pattern string, regex bool) (_ []store.KV, finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpSearch, CacheName: cacheName}, start, finalErr)
	}()

	match, err := internal.KeyMatcher(pattern, regex)
	if err != nil {
		return nil, err
	}
	st, err := e.lookupDefault(cacheName)
	if err != nil {
		return nil, err
	}
	all, err := st.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]store.KV, 0, len(all))
	for _, kv := range all {
		if match(kv.Key) {
			out = append(out, kv)
		}
	}
	return out, nil
}
