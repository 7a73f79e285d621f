package filter

import (
	"context"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/pkg/dsl"
)

// ExprFilter 使用 CEL 表达式过滤：表达式为 true 的 item 被过滤。
// 例如 `item.score < 0.2` 或 `"1990" > item.meta.year`。
type ExprFilter struct {
	Program *dsl.Program
	// Invert 为 true 时语义反转：表达式为 true 的 item 被保留
	Invert bool
}

// NewExprFilter 编译表达式并创建过滤器。
func NewExprFilter(expr string, invert bool) (*ExprFilter, error) {
	p, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{Program: p, Invert: invert}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	ok, err := f.Program.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return ok != f.Invert, nil
}
