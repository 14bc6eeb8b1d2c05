package store

import (
	"time"
)

// entry 是挂在 order 链表节点上的值
// key 冗余一份 因为淘汰时是从链表节点出发找回 map 里的项
//
// value 只会是 string 或 []string 两种类型
// hasExpiry=false 表示永不过期 避免和零值时间做比较
type entry struct {
	key       string
	value     any
	expireAt  time.Time
	hasExpiry bool
	createdAt time.Time
	updatedAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return e.hasExpiry && !e.expireAt.After(now)
}

// snapshotValue 拷贝一份值给事件上下文用 防止 handler 改到 store 内部的 list
func (e *entry) snapshotValue() any {
	if l, ok := e.value.([]string); ok {
		out := make([]string, len(l))
		copy(out, l)
		return out
	}
	return e.value
}

// KV 有序枚举的结果项
type KV struct {
	Key   string
	Value any
}
