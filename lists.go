package remora

import (
	"context"
	"time"

	"github.com/yikakia/remora/core/event"
	"github.com/yikakia/remora/core/telemetry"
)

// LPush 在 list 头部插入一个元素 key 不存在时建一个单元素 list
// key 上已有非 list 值时返回 store.ErrTypeMissMatch
func (e *Engine) LPush(ctx context.Context, cacheName, key, value string) (finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpLPush, CacheName: cacheName, Key: key}, start, finalErr)
	}()

	st, err := e.resolveDefault(ctx, cacheName)
	if err != nil {
		return err
	}
	if err := st.LPush(ctx, key, value); err != nil {
		return err
	}
	e.bus.Dispatch(ctx, event.Context{
		CacheName: cacheName,
		Key:       key,
		Value:     value,
		Type:      event.TypeListPush,
		Timestamp: time.Now(),
	})
	return nil
}

// RPush 在 list 尾部追加一个元素 其余语义同 LPush
func (e *Engine) RPush(ctx context.Context, cacheName, key, value string) (finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpRPush, CacheName: cacheName, Key: key}, start, finalErr)
	}()

	st, err := e.resolveDefault(ctx, cacheName)
	if err != nil {
		return err
	}
	if err := st.RPush(ctx, key, value); err != nil {
		return err
	}
	e.bus.Dispatch(ctx, event.Context{
		CacheName: cacheName,
		Key:       key,
		Value:     value,
		Type:      event.TypeListPush,
		Timestamp: time.Now(),
	})
	return nil
}

// LPop 弹出 list 头部元素 list 弹空后键一并移除
func (e *Engine) LPop(ctx context.Context, cacheName, key string) (_ string, finalErr error) {
	start := time.Now()
	defer func() {
		e.record(ctx, &telemetry.Event{Op: telemetry.OpLPop, CacheName: cacheName, Key: key}, start, finalErr)
	}()

	st, err := e.lookupDefault(cacheName)
	if err != nil {
		return "", err
	}
	val, err := st.LPop(ctx, key)
	if err != nil {
		return "", err
	}
	e.bus.Dispatch(ctx, event.Context{
		CacheName: cacheName,
		Key:       key,
		Value:     val,
		Type:      event.TypeListPop,
		Timestamp: time.Now(),
	})
	return val, nil
}
