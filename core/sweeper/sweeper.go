// Package sweeper 实现主动过期：一个独立的后台循环
// 周期性地把 registry 里每个 store 的过期项清掉
package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yikakia/remora/core/registry"
	"github.com/yikakia/remora/core/store"
	"github.com/yikakia/remora/core/telemetry"
)

const DefaultInterval = time.Second

// Sweeper 后台清扫循环
//
// 一次 sweep 逐个 store 进行 每个 store 只在清它自己时拿锁
// 不会出现任何锁被整轮 sweep 持有的情况 对客户端的阻塞上限
// 是单个 store 清一批过期项的时间
//
// 生命周期显式可控：Start 启动 Stop 停止并等退出
// 测试可以不 Start 直接调 RunOnce 做确定性的单轮清扫
type Sweeper struct {
	reg      *registry.Registry
	interval time.Duration
	logger   telemetry.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

type Option func(*Sweeper)

func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(l telemetry.Logger) Option {
	return func(s *Sweeper) {
		s.logger = l
	}
}

func New(reg *registry.Registry, opts ...Option) *Sweeper {
	s := &Sweeper{
		reg:      reg,
		interval: DefaultInterval,
		logger:   telemetry.SlogLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 启动后台循环 重复启动返回错误
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("sweeper already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop 停止循环并等它退出 可以重复调用
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	// 在锁外 cancel + wait 避免和 loop 内部的清扫互相等
	cancel()
	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce 对当前全部 store 做一轮清扫 返回淘汰的总项数
//
// 单个 store 清扫时的 panic 被就地吞掉并记日志
// 不会中断本轮剩余 store 更不会放倒循环
func (s *Sweeper) RunOnce(ctx context.Context) int {
	total := 0
	for _, st := range s.reg.Stores() {
		total += s.sweepStore(ctx, st)
	}
	if total > 0 {
		s.logger.DebugContext(ctx, "[Sweeper] sweep finished.", "evicted", total)
	}
	return total
}

func (s *Sweeper) sweepStore(ctx context.Context, st *store.Store) (n int) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "[Sweeper] sweep store panicked, skipped.",
				"cache", st.CacheName(), "store", st.Name(), "panic", r)
		}
	}()
	return st.Sweep(ctx)
}
