package dataset

import (
	"context"
	"sync/atomic"
)

// Provider 提供当前数据集快照。
// 每次请求只调用一次 Current，并在整个请求内使用同一个快照引用。
type Provider interface {
	Current() *Snapshot
}

// Loader 从外部数据源加载一个完整快照。
type Loader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Holder 持有当前快照，支持原子替换。
type Holder struct {
	cur atomic.Pointer[Snapshot]
}

// NewHolder 创建 Holder；s 为 nil 时持有空快照。
func NewHolder(s *Snapshot) *Holder {
	h := &Holder{}
	h.Swap(s)
	return h
}

// Current 返回当前快照，永不为 nil。
func (h *Holder) Current() *Snapshot {
	return h.cur.Load()
}

// Swap 替换当前快照并返回旧快照。
func (h *Holder) Swap(s *Snapshot) *Snapshot {
	if s == nil {
		s = Empty()
	}
	return h.cur.Swap(s)
}

// Reload 通过 loader 加载新快照并替换；加载失败时保留旧快照。
func (h *Holder) Reload(ctx context.Context, loader Loader) (*Snapshot, error) {
	s, err := loader.Load(ctx)
	if err != nil {
		return h.Current(), err
	}
	h.Swap(s)
	return s, nil
}
