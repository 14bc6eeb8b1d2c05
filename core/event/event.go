package event

import (
	"time"
)

// Type 业务事件类型 每次成功的引擎操作派发一条
type Type string

const (
	TypeGet         Type = "get"
	TypeSet         Type = "set"
	TypeDelete      Type = "delete"
	TypeExpire      Type = "expire"
	TypeClear       Type = "clear"
	TypeCreateCache Type = "create_cache"
	TypeDeleteCache Type = "delete_cache"
	TypeListPush    Type = "list_push"
	TypeListPop     Type = "list_pop"
)

// Context 一次已完成操作的不可变快照
// 构造时从 entry 拷贝 不持有 store 内部数据的引用 handler 可以随意读
//
// Key 在 cache 级事件（create_cache delete_cache clear）中为空
// StoreName 仅当操作落在具名 sub-store 上时非空
type Context struct {
	CacheName string
	StoreName string
	Key       string
	Value     any
	OldValue  any
	Type      Type
	Timestamp time.Time
}
