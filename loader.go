package remora

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yikakia/remora/core/registry"
	"github.com/yikakia/remora/core/store"
	"github.com/yikakia/remora/core/telemetry"
)

// LoaderFn 缓存未命中时的回源函数
type LoaderFn func(ctx context.Context, key string) (string, error)

// GetOrLoad 读缓存 未命中时回源并写回
//
// 同一个 (cache, key) 上并发的回源会被 singleflight 合并成一次
// 写回失败只记日志 不影响本次返回回源拿到的值
func (e *Engine) GetOrLoad(ctx context.Context, cacheName, key string, load LoaderFn) (_ string, finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpLoad, CacheName: cacheName, Key: key}, start, finalErr)
	}()

	val, err := e.CacheGet(ctx, cacheName, key)
	if err == nil {
		s, ok := val.(string)
		if !ok {
			return "", fmt.Errorf("key:%s holds %T, not a string. %w", key, val, store.ErrTypeMissMatch)
		}
		return s, nil
	}
	if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, registry.ErrCacheNotFound) {
		return "", err
	}

	loaded, err, _ := e.sf.Do(cacheName+"\x00"+key, func() (any, error) {
		v, err := load(ctx, key)
		if err != nil {
			return "", err
		}
		if err := e.CacheSet(ctx, cacheName, key, v, e.loadTTL); err != nil {
			e.logger.ErrorContext(ctx, "[GetOrLoad] write back failed.", "cache", cacheName, "key", key, "err", err.Error())
		}
		return v, nil
	})
	if err != nil {
		return "", err
	}
	return loaded.(string), nil
}
