package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DispatchOrdering(t *testing.T) {
	t.Parallel()

	// 契约：cache 级订阅先按注册顺序执行 再按注册顺序执行全局订阅
	b := NewBus()
	var order []string
	record := func(name string) Handler {
		return func(ctx context.Context, evt Context) error {
			order = append(order, name)
			return nil
		}
	}

	b.Subscribe(TypeSet, record("global-1"))
	b.Subscribe(TypeSet, record("users-1"), WithCacheName("users"))
	b.Subscribe(TypeSet, record("global-2"))
	b.Subscribe(TypeSet, record("users-2"), WithCacheName("users"))
	b.Subscribe(TypeSet, record("other"), WithCacheName("other"))

	b.Dispatch(context.Background(), Context{CacheName: "users", Key: "k", Type: TypeSet})

	assert.Equal(t, []string{"users-1", "users-2", "global-1", "global-2"}, order)
}

func TestBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBus()
	called := 0
	token := b.Subscribe(TypeGet, func(ctx context.Context, evt Context) error {
		called++
		return nil
	})

	b.Dispatch(context.Background(), Context{CacheName: "c", Type: TypeGet})
	assert.Equal(t, 1, called)

	assert.True(t, b.Unsubscribe(token))
	b.Dispatch(context.Background(), Context{CacheName: "c", Type: TypeGet})
	assert.Equal(t, 1, called)

	// 重复注销返回 false
	assert.False(t, b.Unsubscribe(token))
	assert.False(t, b.Unsubscribe(Token("no-such-token")))
}

func TestBus_HandlerFailureIsolation(t *testing.T) {
	t.Parallel()

	t.Run("Error", func(t *testing.T) {
		b := NewBus()
		secondCalled := false

		b.Subscribe(TypeSet, func(ctx context.Context, evt Context) error {
			return errors.New("boom")
		})
		// 后注册的 handler 不受前面失败的影响
		b.Subscribe(TypeSet, func(ctx context.Context, evt Context) error {
			secondCalled = true
			return nil
		})

		b.Dispatch(context.Background(), Context{CacheName: "c", Type: TypeSet})
		assert.True(t, secondCalled)
	})

	t.Run("Panic", func(t *testing.T) {
		b := NewBus()
		secondCalled := false

		b.Subscribe(TypeSet, func(ctx context.Context, evt Context) error {
			panic("boom")
		})
		b.Subscribe(TypeSet, func(ctx context.Context, evt Context) error {
			secondCalled = true
			return nil
		})

		require.NotPanics(t, func() {
			b.Dispatch(context.Background(), Context{CacheName: "c", Type: TypeSet})
		})
		assert.True(t, secondCalled)
	})
}

func TestBus_CacheFilter(t *testing.T) {
	t.Parallel()

	b := NewBus()
	var got []string
	b.Subscribe(TypeDelete, func(ctx context.Context, evt Context) error {
		got = append(got, evt.CacheName)
		return nil
	}, WithCacheName("users"))

	b.Dispatch(context.Background(), Context{CacheName: "users", Type: TypeDelete})
	b.Dispatch(context.Background(), Context{CacheName: "products", Type: TypeDelete})

	assert.Equal(t, []string{"users"}, got)
}

func TestBus_ReentrantSubscribe(t *testing.T) {
	t.Parallel()

	// handler 里可以再订阅/注销 派发期间不持有总线锁
	b := NewBus()
	var nested bool
	b.Subscribe(TypeSet, func(ctx context.Context, evt Context) error {
		b.Subscribe(TypeGet, func(ctx context.Context, evt Context) error {
			nested = true
			return nil
		})
		return nil
	})

	b.Dispatch(context.Background(), Context{CacheName: "c", Type: TypeSet})
	b.Dispatch(context.Background(), Context{CacheName: "c", Type: TypeGet})
	assert.True(t, nested)
}

func TestBus_ConcurrentSubscribeDispatch(t *testing.T) {
	t.Parallel()

	b := NewBus()
	var wg sync.WaitGroup
	count := 100

	wg.Add(count * 2)
	for i := 0; i < count; i++ {
		go func(idx int) {
			defer wg.Done()
			b.Subscribe(TypeSet, func(ctx context.Context, evt Context) error {
				return nil
			}, WithCacheName(fmt.Sprintf("cache-%d", idx)))
		}(i)
		go func() {
			defer wg.Done()
			b.Dispatch(context.Background(), Context{CacheName: "cache-0", Type: TypeSet})
		}()
	}
	wg.Wait()
}
