package remora

import (
	"context"
	"time"

	"github.com/yikakia/remora/core/event"
	"github.com/yikakia/remora/core/registry"
	"github.com/yikakia/remora/core/store"
	"github.com/yikakia/remora/core/telemetry"
)

// CreateCache 显式创建一个 cache 重名时返回 registry.ErrCacheExists
func (e *Engine) CreateCache(ctx context.Context, cacheName string) (finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpCreateCache, CacheName: cacheName}, start, finalErr)
	}()

	if _, err := e.reg.Create(cacheName); err != nil {
		return err
	}
	e.bus.Dispatch(ctx, event.Context{
		CacheName: cacheName,
		Type:      event.TypeCreateCache,
		Timestamp: time.Now(),
	})
	return nil
}

// DeleteCache 原子地删除整个 cache（默认 store 和全部 sub-store）
// 删除后对其旧键的访问报 cache 不存在 而不是 key 不存在
func (e *Engine) DeleteCache(ctx context.Context, cacheName string) (finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpDeleteCache, CacheName: cacheName}, start, finalErr)
	}()

	if _, err := e.reg.Delete(cacheName); err != nil {
		return err
	}
	// delete_cache 的上下文只带 cache 名 没有 key
	e.bus.Dispatch(ctx, event.Context{
		CacheName: cacheName,
		Type:      event.TypeDeleteCache,
		Timestamp: time.Now(),
	})
	return nil
}

// ListCaches 按创建顺序列出所有 cache 及其默认 store 的未过期项数
func (e *Engine) ListCaches(ctx context.Context) (_ []registry.CacheInfo, finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpListCaches}, start, finalErr)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return e.reg.List(), nil
}

// CreateStore 在 cache 里创建具名 sub-store defaultTTL 为 0 表示不过期
// cache 不存在时遵循 autoCreate 策略
func (e *Engine) CreateStore(ctx context.Context, cacheName, storeName string, defaultTTL time.Duration) (finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpCreateStore, CacheName: cacheName, StoreName: storeName}, start, finalErr)
	}()

	if defaultTTL < 0 {
		return store.ErrInvalidTTL
	}
	c, err := e.resolveCache(ctx, cacheName)
	if err != nil {
		return err
	}
	_, err = c.CreateStore(storeName, defaultTTL)
	return err
}

// DeleteStore 删除具名 sub-store
func (e *Engine) DeleteStore(ctx context.Context, cacheName, storeName string) (finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpDeleteStore, CacheName: cacheName, StoreName: storeName}, start, finalErr)
	}()

	c, err := e.reg.Get(cacheName)
	if err != nil {
		return err
	}
	return c.DeleteStore(storeName)
}

// ListStores 按创建顺序列出 cache 里的 sub-store
func (e *Engine) ListStores(ctx context.Context, cacheName string) (_ []registry.StoreInfo, finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpListStores, CacheName: cacheName}, start, finalErr)
	}()

	c, err := e.reg.Get(cacheName)
	if err != nil {
		return nil, err
	}
	return c.ListStores(), nil
}

// Substore 拿到具名 sub-store 的句柄直接操作
// 句柄上的惰性/主动过期照常派发 expire 其它事件由调用方自理
func (e *Engine) Substore(cacheName, storeName string) (*store.Store, error) {
	c, err := e.reg.Get(cacheName)
	if err != nil {
		return nil, err
	}
	return c.Store(storeName)
}
