package telemetry

import (
	"context"
	"sync"
	"time"
)

// CacheStats 单个 cache 的累计统计
type CacheStats struct {
	Hits       uint64
	Misses     uint64
	Sets       uint64
	Deletes    uint64
	Evictions  uint64
	LastAccess time.Time
	LastWrite  time.Time
	CreatedAt  time.Time
}

// Stats 按 cache 聚合操作记录的 Metrics 实现
// 引擎每个操作都会 Record 一条 Event 这里按 Op/Result 归类计数
// 没有 cache 名的记录（例如 list_caches）直接忽略
type Stats struct {
	mu     sync.RWMutex
	caches map[string]*CacheStats
}

func NewStats() *Stats {
	return &Stats{caches: map[string]*CacheStats{}}
}

var _ Metrics = (*Stats)(nil)

func (s *Stats) Record(ctx context.Context, evt *Event) error {
	if evt == nil || evt.CacheName == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.caches[evt.CacheName]
	if !ok {
		cs = &CacheStats{CreatedAt: time.Now()}
		s.caches[evt.CacheName] = cs
	}

	now := time.Now()
	switch evt.Op {
	case OpGet, OpGetAll, OpKeys, OpSearch, OpLoad:
		cs.LastAccess = now
		switch evt.Result {
		case ResultHit:
			cs.Hits++
		case ResultMiss:
			cs.Misses++
		}
	case OpSet, OpLPush, OpRPush, OpExpire:
		if evt.Result == ResultHit {
			cs.LastWrite = now
			cs.Sets++
		}
	case OpDelete, OpLPop, OpClear:
		if evt.Result == ResultHit {
			cs.LastWrite = now
			cs.Deletes++
		}
	case OpEvict:
		cs.Evictions++
	case OpDeleteCache:
		if evt.Result == ResultHit {
			delete(s.caches, evt.CacheName)
		}
	}
	return nil
}

// Cache 返回指定 cache 的统计快照
func (s *Stats) Cache(name string) (CacheStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.caches[name]
	if !ok {
		return CacheStats{}, false
	}
	return *cs, true
}

// All 返回所有 cache 的统计快照
func (s *Stats) All() map[string]CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]CacheStats, len(s.caches))
	for name, cs := range s.caches {
		out[name] = *cs
	}
	return out
}

// Reset 清空指定 cache 的统计 不存在时返回 false
func (s *Stats) Reset(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.caches[name]; !ok {
		return false
	}
	s.caches[name] = &CacheStats{CreatedAt: time.Now()}
	return true
}
