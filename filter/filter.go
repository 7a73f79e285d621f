package filter

import (
	"context"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/pkg/conv"
)

// Filter 是过滤器的抽象接口，用于判断一个 Item 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Preparer 由需要按请求预先计算状态的过滤器实现。
// FilterNode 在每次 Process 开始时调用一次 Prepare，本次的所有 item 都交给返回的过滤器判断。
type Preparer interface {
	Prepare(ctx context.Context, rctx *core.RecommendContext) (Filter, error)
}

// itemKeys 返回用于匹配的 item 标识：规范化后的 key（片名）与目录 ID（若已知）。
func itemKeys(item *core.Item) []string {
	keys := []string{conv.NormalizeID(item.ID)}
	if id := conv.NormalizeID(item.MetaString("item_id")); id != "" && id != keys[0] {
		keys = append(keys, id)
	}
	return keys
}

// toSet 把标识列表规范化为集合。
func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if k := conv.NormalizeID(id); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func matchAny(set map[string]struct{}, keys []string) bool {
	for _, k := range keys {
		if _, ok := set[k]; ok {
			return true
		}
	}
	return false
}
