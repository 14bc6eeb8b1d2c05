// Package remora 是一个进程内的 Redis 风格数据引擎：
// 带 per-key TTL 的键值存储、按名字隔离的多级命名空间（cache / sub-store）
// 以及一条能观察到每次变更的同步事件总线
//
// 状态只活在当前进程里 不做持久化 不做多节点协调
// 文本协议/HTTP 之类的外层由调用方自己包
package remora

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yikakia/remora/core/event"
	"github.com/yikakia/remora/core/registry"
	"github.com/yikakia/remora/core/store"
	"github.com/yikakia/remora/core/sweeper"
	"github.com/yikakia/remora/core/telemetry"
	"github.com/yikakia/remora/internal"
	"golang.org/x/sync/singleflight"
)

// Engine 把 store/registry/bus/sweeper 编排成一组对外操作
// 所有方法并发安全 一个 Engine 可以被任意多个 worker 共享
type Engine struct {
	reg     *registry.Registry
	bus     *event.Bus
	sweeper *sweeper.Sweeper
	logger  telemetry.Logger
	metrics telemetry.Metrics

	autoCreate bool
	loadTTL    time.Duration
	sf         singleflight.Group

	mu      sync.Mutex
	started bool
}

// NewBuilder 创建引擎的构建器 所有选项都有可用的默认值
//
// 默认配置为
//
// autoCreate = true 对未知 cache 的写操作会隐式建 cache
// sweepInterval = sweeper.DefaultInterval 后台清扫间隔
// defaultTTL = 0 永不过期
// loadTTL = 1h GetOrLoad 回源后写回时的 TTL
func NewBuilder() *Builder {
	return &Builder{
		autoCreate:    true,
		sweepInterval: sweeper.DefaultInterval,
		loadTTL:       time.Hour,
		logger:        telemetry.SlogLogger(),
		metrics:       telemetry.NoopMetrics(),
	}
}

type Builder struct {
	err error

	defaultTTL    time.Duration
	sweepInterval time.Duration
	autoCreate    bool
	loadTTL       time.Duration
	logger        telemetry.Logger
	metrics       telemetry.Metrics
}

func (b *Builder) appendErr(err error) {
	b.err = errors.Join(b.err, err)
}

func (b *Builder) Build() (*Engine, error) {
	if b.err != nil {
		return nil, fmt.Errorf("builder configs wrong: %w", b.err)
	}

	bus := event.NewBus(event.WithLogger(b.logger))
	reg := registry.New(registry.WithBus(bus), registry.WithDefaultTTL(b.defaultTTL))

	e := &Engine{
		reg: reg,
		bus: bus,
		sweeper: sweeper.New(reg,
			sweeper.WithInterval(b.sweepInterval),
			sweeper.WithLogger(b.logger),
		),
		logger:     b.logger,
		metrics:    b.metrics,
		autoCreate: b.autoCreate,
		loadTTL:    b.loadTTL,
	}

	// 过期淘汰不对应任何一次调用 单独喂给 metrics 统计才看得到它
	bus.Subscribe(event.TypeExpire, func(ctx context.Context, evt event.Context) error {
		return e.metrics.Record(ctx, &telemetry.Event{
			Op:        telemetry.OpEvict,
			Result:    telemetry.ResultHit,
			CacheName: evt.CacheName,
			StoreName: evt.StoreName,
			Key:       evt.Key,
		})
	})

	return e, nil
}

// Start 启动后台清扫 ctx 取消等价于 Close
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("engine already started")
	}
	if err := e.sweeper.Start(ctx); err != nil {
		return err
	}
	e.started = true
	return nil
}

// Close 停掉后台清扫并等它退出 可以重复调用 不动已有数据
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.sweeper.Stop()
	e.started = false
}

// SweepOnce 手动做一轮确定性清扫 返回淘汰项数 主要给测试用
func (e *Engine) SweepOnce(ctx context.Context) int {
	return e.sweeper.RunOnce(ctx)
}

// Subscribe 注册事件回调 见 event.Bus
func (e *Engine) Subscribe(typ event.Type, h event.Handler, opts ...event.SubscribeOption) event.Token {
	return e.bus.Subscribe(typ, h, opts...)
}

// Unsubscribe 注销回调 未找到时返回 false
func (e *Engine) Unsubscribe(token event.Token) bool {
	return e.bus.Unsubscribe(token)
}

// resolveCache 写路径的 cache 解析
// cache 不存在且开了 autoCreate 时隐式创建并派发 create_cache
func (e *Engine) resolveCache(ctx context.Context, cacheName string) (*registry.Cache, error) {
	c, err := e.reg.Get(cacheName)
	if err == nil {
		return c, nil
	}
	if !e.autoCreate || !errors.Is(err, registry.ErrCacheNotFound) {
		return nil, err
	}

	c, createErr := e.reg.Create(cacheName)
	if createErr != nil {
		if errors.Is(createErr, registry.ErrCacheExists) {
			// 和并发的另一次隐式创建撞了 拿现成的
			return e.reg.Get(cacheName)
		}
		return nil, createErr
	}
	e.bus.Dispatch(ctx, event.Context{
		CacheName: cacheName,
		Type:      event.TypeCreateCache,
		Timestamp: time.Now(),
	})
	return c, nil
}

// resolveDefault 写路径的默认 store 解析
func (e *Engine) resolveDefault(ctx context.Context, cacheName string) (*store.Store, error) {
	c, err := e.resolveCache(ctx, cacheName)
	if err != nil {
		return nil, err
	}
	return c.Default(), nil
}

// record 每个操作收尾时记一条观测事件 Metrics 出错只记日志
func (e *Engine) record(ctx context.Context, evt *telemetry.Event, start time.Time, finalErr error) {
	evt.Error = finalErr
	evt.Latency = time.Since(start)
	evt.Result = internal.ResultFromErr(finalErr)

	if err := e.metrics.Record(ctx, evt); err != nil {
		e.logger.ErrorContext(ctx, "[Engine] record metrics failed.", "op", string(evt.Op), "err", err.Error())
	}
}
