package internal

import (
	"errors"

	"github.com/yikakia/remora/core/registry"
	"github.com/yikakia/remora/core/store"
	"github.com/yikakia/remora/core/telemetry"
)

// ResultFromErr 把操作结果的 err 转化为 telemetry 的 result
// 为什么要放到一个单独的包？为了避免 store/registry -> telemetry -> store 的循环依赖
func ResultFromErr(err error) telemetry.Result {
	switch {
	case err == nil:
		return telemetry.ResultHit
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, registry.ErrCacheNotFound),
		errors.Is(err, registry.ErrStoreNotFound):
		return telemetry.ResultMiss
	default:
		return telemetry.ResultFail
	}
}
