package recall

import (
	"context"

	"github.com/rushteam/filmrec/core"
)

// Source 表示一个可复用的信号源（UBCF / IBCF / 内容）。
// 你可以把它理解为"可并发 fan-out 的策略单元"：各源之间不共享可变状态。
//
// 约定：未知用户、未知片名、空数据集返回 (nil, nil)，不是错误。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
