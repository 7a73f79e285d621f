package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/pipeline"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉。
// 过滤器出错时记录日志并视为不过滤，不中断流程。
// 实现了 Preparer 的过滤器每次 Process 只准备一次。
type FilterNode struct {
	Filters []Filter
	Logger  zerolog.Logger
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	active := make([]Filter, 0, len(n.Filters))
	for _, f := range n.Filters {
		p, ok := f.(Preparer)
		if !ok {
			active = append(active, f)
			continue
		}
		prepared, err := p.Prepare(ctx, rctx)
		if err != nil {
			n.Logger.Warn().Err(err).Str("filter", f.Name()).Msg("filter prepare error, filter skipped")
			continue
		}
		active = append(active, prepared)
	}

	out := make([]*core.Item, 0, len(items))
	filtered := make(map[string]int)

	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range active {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				n.Logger.Warn().Err(err).Str("filter", f.Name()).Str("item", item.ID).Msg("filter error, item kept")
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			filtered[reason]++
			continue
		}
		out = append(out, item)
	}

	if len(filtered) > 0 {
		ev := n.Logger.Debug().Int("in", len(items)).Int("out", len(out))
		for name, c := range filtered {
			ev = ev.Int(name, c)
		}
		ev.Msg("filtered")
	}
	return out, nil
}
