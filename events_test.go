package remora

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yikakia/remora/core/event"
	"github.com/yikakia/remora/core/store"
)

func TestEvents_SetGetDelete(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	var got []event.Context
	var mu sync.Mutex
	capture := func(ctx context.Context, evt event.Context) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt)
		return nil
	}
	e.Subscribe(event.TypeSet, capture)
	e.Subscribe(event.TypeGet, capture)
	e.Subscribe(event.TypeDelete, capture)

	require.NoError(t, e.CreateCache(ctx, "c"))
	require.NoError(t, e.CacheSet(ctx, "c", "k", "v1", 0))
	require.NoError(t, e.CacheSet(ctx, "c", "k", "v2", 0))
	_, err := e.CacheGet(ctx, "c", "k")
	require.NoError(t, err)
	require.NoError(t, e.CacheDel(ctx, "c", "k"))

	require.Len(t, got, 4)

	assert.Equal(t, event.TypeSet, got[0].Type)
	assert.Equal(t, "v1", got[0].Value)
	assert.Nil(t, got[0].OldValue)

	// 覆盖写带上旧值
	assert.Equal(t, event.TypeSet, got[1].Type)
	assert.Equal(t, "v2", got[1].Value)
	assert.Equal(t, "v1", got[1].OldValue)

	assert.Equal(t, event.TypeGet, got[2].Type)
	assert.Equal(t, "v2", got[2].Value)

	assert.Equal(t, event.TypeDelete, got[3].Type)
	assert.Equal(t, "v2", got[3].OldValue)

	for _, evt := range got {
		assert.Equal(t, "c", evt.CacheName)
		assert.Equal(t, "k", evt.Key)
		assert.False(t, evt.Timestamp.IsZero())
	}
}

func TestEvents_NoEventOnMiss(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.CreateCache(ctx, "c"))

	var fired atomic.Int64
	for _, typ := range []event.Type{event.TypeGet, event.TypeDelete, event.TypeExpire} {
		e.Subscribe(typ, func(ctx context.Context, evt event.Context) error {
			fired.Add(1)
			return nil
		})
	}

	_, err := e.CacheGet(ctx, "c", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, e.CacheDel(ctx, "c", "missing"), store.ErrNotFound)

	// 未命中不产生任何事件 普通 not-found 也不算 expire
	assert.Equal(t, int64(0), fired.Load())
}

func TestEvents_HandlerErrorDoesNotAffectOperation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	secondFired := false
	e.Subscribe(event.TypeSet, func(ctx context.Context, evt event.Context) error {
		return errors.New("handler boom")
	})
	// 后注册的 handler 仍然会被执行
	e.Subscribe(event.TypeSet, func(ctx context.Context, evt event.Context) error {
		secondFired = true
		return nil
	})

	// SET 本身照常成功
	require.NoError(t, e.CacheSet(ctx, "c", "k", "v", 0))
	assert.True(t, secondFired)

	val, err := e.CacheGet(ctx, "c", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestEvents_CacheSpecificBeforeGlobal(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	var order []string
	var mu sync.Mutex
	record := func(name string) event.Handler {
		return func(ctx context.Context, evt event.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	e.Subscribe(event.TypeSet, record("global-1"))
	e.Subscribe(event.TypeSet, record("users-1"), event.WithCacheName("users"))
	e.Subscribe(event.TypeSet, record("users-2"), event.WithCacheName("users"))
	e.Subscribe(event.TypeSet, record("global-2"))

	require.NoError(t, e.CacheSet(ctx, "users", "k", "v", 0))

	assert.Equal(t, []string{"users-1", "users-2", "global-1", "global-2"}, order)
}

func TestEvents_ExpireExactlyOnce(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	var expired atomic.Int64
	e.Subscribe(event.TypeExpire, func(ctx context.Context, evt event.Context) error {
		expired.Add(1)
		return nil
	})

	require.NoError(t, e.CacheSet(ctx, "c", "k", "v", 20*time.Millisecond))
	time.Sleep(60 * time.Millisecond)

	// 惰性读和主动清扫并发抢同一个过期 key
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.CacheGet(ctx, "c", "k")
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.SweepOnce(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), expired.Load())

	_, err := e.CacheGet(ctx, "c", "k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEvents_ClearSequence(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.CacheSet(ctx, "c", "a", "1", 0))
	require.NoError(t, e.CacheSet(ctx, "c", "b", "2", 0))

	var got []event.Context
	capture := func(ctx context.Context, evt event.Context) error {
		got = append(got, evt)
		return nil
	}
	e.Subscribe(event.TypeDelete, capture)
	e.Subscribe(event.TypeClear, capture)

	require.NoError(t, e.CacheClear(ctx, "c"))

	// 每个被移除的键一条 delete 最后一条 clear
	require.Len(t, got, 3)
	assert.Equal(t, event.TypeDelete, got[0].Type)
	assert.Equal(t, "a", got[0].Key)
	assert.Equal(t, "1", got[0].OldValue)
	assert.Equal(t, event.TypeDelete, got[1].Type)
	assert.Equal(t, "b", got[1].Key)
	assert.Equal(t, event.TypeClear, got[2].Type)
	assert.Empty(t, got[2].Key)

	keys, err := e.CacheKeys(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestEvents_CacheLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	var got []event.Context
	capture := func(ctx context.Context, evt event.Context) error {
		got = append(got, evt)
		return nil
	}
	e.Subscribe(event.TypeCreateCache, capture)
	e.Subscribe(event.TypeDeleteCache, capture)

	require.NoError(t, e.CreateCache(ctx, "explicit"))
	require.NoError(t, e.CacheSet(ctx, "implicit", "k", "v", 0))
	require.NoError(t, e.DeleteCache(ctx, "implicit"))

	require.Len(t, got, 3)
	assert.Equal(t, event.TypeCreateCache, got[0].Type)
	assert.Equal(t, "explicit", got[0].CacheName)
	// 隐式创建同样派发 create_cache
	assert.Equal(t, event.TypeCreateCache, got[1].Type)
	assert.Equal(t, "implicit", got[1].CacheName)
	// delete_cache 只带 cache 名
	assert.Equal(t, event.TypeDeleteCache, got[2].Type)
	assert.Equal(t, "implicit", got[2].CacheName)
	assert.Empty(t, got[2].Key)
}

func TestEvents_ListOps(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	var got []event.Context
	capture := func(ctx context.Context, evt event.Context) error {
		got = append(got, evt)
		return nil
	}
	e.Subscribe(event.TypeListPush, capture)
	e.Subscribe(event.TypeListPop, capture)

	require.NoError(t, e.RPush(ctx, "c", "l", "a"))
	require.NoError(t, e.LPush(ctx, "c", "l", "b"))
	_, err := e.LPop(ctx, "c", "l")
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, event.TypeListPush, got[0].Type)
	assert.Equal(t, "a", got[0].Value)
	assert.Equal(t, event.TypeListPush, got[1].Type)
	assert.Equal(t, "b", got[1].Value)
	assert.Equal(t, event.TypeListPop, got[2].Type)
	assert.Equal(t, "b", got[2].Value)
}

func TestEvents_HandlerMayReenterEngine(t *testing.T) {
	t.Parallel()

	// 派发发生在 store 锁释放之后 handler 回调引擎不会死锁
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.CreateCache(ctx, "audit"))
	e.Subscribe(event.TypeSet, func(ctx context.Context, evt event.Context) error {
		if evt.CacheName == "audit" {
			return nil // 防止递归
		}
		return e.CacheSet(ctx, "audit", "last-"+evt.CacheName, evt.Key, 0)
	})

	done := make(chan struct{})
	go func() {
		_ = e.CacheSet(ctx, "data", "k", "v", 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler re-entry deadlocked")
	}

	val, err := e.CacheGet(ctx, "audit", "last-data")
	require.NoError(t, err)
	assert.Equal(t, "k", val)
}

func TestEvents_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	var fired atomic.Int64
	token := e.Subscribe(event.TypeSet, func(ctx context.Context, evt event.Context) error {
		fired.Add(1)
		return nil
	})

	require.NoError(t, e.CacheSet(ctx, "c", "k", "v", 0))
	assert.True(t, e.Unsubscribe(token))
	require.NoError(t, e.CacheSet(ctx, "c", "k", "v2", 0))

	assert.Equal(t, int64(1), fired.Load())
}
