package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yikakia/remora/core/telemetry"
)

// Handler 事件回调 返回的 error 只会被记日志 不会影响触发它的那次操作
type Handler func(ctx context.Context, evt Context) error

// Token 订阅凭据 注销时使用 不依赖 handler 函数值可比较
type Token string

type subscription struct {
	token     Token
	typ       Type
	cacheName string // 为空表示全局订阅
	handler   Handler
}

// Bus 同步事件总线
//
// 派发顺序是明确的契约：先按注册顺序执行 CacheName 匹配的订阅
// 再按注册顺序执行全局订阅 测试可以据此断言精确序列
//
// Dispatch 必须在调用方释放了 store/registry 锁之后调用
// 因此 handler 内部可以安全地回调引擎 不会死锁
type Bus struct {
	logger telemetry.Logger

	mu   sync.RWMutex
	subs map[Type][]*subscription
}

type Option func(*Bus)

func WithLogger(l telemetry.Logger) Option {
	return func(b *Bus) {
		b.logger = l
	}
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{
		logger: telemetry.SlogLogger(),
		subs:   map[Type][]*subscription{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type SubscribeOption func(*subscription)

// WithCacheName 只订阅指定 cache 的事件
func WithCacheName(name string) SubscribeOption {
	return func(s *subscription) {
		s.cacheName = name
	}
}

// Subscribe 注册一个事件回调 返回的 Token 用于 Unsubscribe
func (b *Bus) Subscribe(typ Type, h Handler, opts ...SubscribeOption) Token {
	sub := &subscription{
		token:   Token(uuid.NewString()),
		typ:     typ,
		handler: h,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[typ] = append(b.subs[typ], sub)
	return sub.token
}

// Unsubscribe 注销订阅 未找到时返回 false
func (b *Bus) Unsubscribe(token Token) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for typ, subs := range b.subs {
		for i, sub := range subs {
			if sub.token == token {
				b.subs[typ] = append(subs[:i:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Dispatch 同步派发一条事件
// handler 的 error 和 panic 都会被吞掉并记日志 后续 handler 照常执行
func (b *Bus) Dispatch(ctx context.Context, evt Context) {
	if b == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	// 持锁只做快照 回调在锁外执行 handler 里可以再 Subscribe/Unsubscribe
	b.mu.RLock()
	subs := b.subs[evt.Type]
	matched := make([]*subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.cacheName != "" && sub.cacheName == evt.CacheName {
			matched = append(matched, sub)
		}
	}
	for _, sub := range subs {
		if sub.cacheName == "" {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		b.call(ctx, sub, evt)
	}
}

func (b *Bus) call(ctx context.Context, sub *subscription, evt Context) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "[Bus] handler panicked.",
				"event", string(evt.Type), "cache", evt.CacheName, "panic", r)
		}
	}()

	if err := sub.handler(ctx, evt); err != nil {
		b.logger.WarnContext(ctx, "[Bus] handler returned error.",
			"event", string(evt.Type), "cache", evt.CacheName, "err", err.Error())
	}
}
