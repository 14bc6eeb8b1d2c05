package telemetry

import (
	"time"
)

// Event 一次引擎操作的观测记录
// 与 event 包里的业务事件不同 这里只用于 metrics/统计 不会回调用户代码
type Event struct {
	Op Op
	// 操作结果 hit miss fail
	// 可以使用 internal.ResultFromErr 进行简单转换
	Result    Result
	CacheName string
	StoreName string
	Key       string
	Latency   time.Duration
	Error     error // 最后拿到的err
}

type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpExpire Op = "expire"
	OpKeys   Op = "keys"
	OpGetAll Op = "get_all"
	OpClear  Op = "clear"
	OpSearch Op = "search"
	OpLPush  Op = "lpush"
	OpRPush  Op = "rpush"
	OpLPop   Op = "lpop"
	OpLoad   Op = "load"
	// OpEvict 是后台/惰性过期淘汰 不对应任何一次调用方操作
	OpEvict Op = "evict"

	OpCreateCache Op = "create_cache"
	OpDeleteCache Op = "delete_cache"
	OpListCaches  Op = "list_caches"
	OpCreateStore Op = "create_store"
	OpDeleteStore Op = "delete_store"
	OpListStores  Op = "list_stores"
)

type Result string

const (
	ResultHit  Result = "hit"
	ResultMiss Result = "miss"
	ResultFail Result = "fail"
)
