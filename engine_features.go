package remora

import (
	"fmt"
	"time"

	"github.com/yikakia/remora/core/telemetry"
)

// WithDefaultTTL 新建 cache 的默认 store 使用的默认 TTL
// 需要大于等于0 0 表示永不过期
func (b *Builder) WithDefaultTTL(d time.Duration) *Builder {
	if d < 0 {
		b.appendErr(fmt.Errorf("defaultTTL must >= 0, but got: %v", d))
		return b
	}
	b.defaultTTL = d
	return b
}

// WithSweepInterval 后台清扫的唤醒间隔
// 需要大于0
func (b *Builder) WithSweepInterval(d time.Duration) *Builder {
	if d <= 0 {
		b.appendErr(fmt.Errorf("sweepInterval must > 0, but got: %v", d))
		return b
	}
	b.sweepInterval = d
	return b
}

// WithAutoCreate 是否允许写操作隐式创建未知的 cache 默认开启
func (b *Builder) WithAutoCreate(enable bool) *Builder {
	b.autoCreate = enable
	return b
}

// WithLoadTTL GetOrLoad 回源成功后写回缓存时使用的 TTL
// 需要大于等于0
func (b *Builder) WithLoadTTL(d time.Duration) *Builder {
	if d < 0 {
		b.appendErr(fmt.Errorf("loadTTL must >= 0, but got: %v", d))
		return b
	}
	b.loadTTL = d
	return b
}

func (b *Builder) WithLogger(logger telemetry.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetrics(metrics telemetry.Metrics) *Builder {
	b.metrics = metrics
	return b
}
