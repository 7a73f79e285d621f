package rerank

import (
	"context"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/pipeline"
)

// Diversity 按主类型打散结果：同一主类型最多 MaxPerGenre 个保留原位，
// 超出的 item 按原顺序顺延到末尾（不丢弃），再交给 TopNNode 截断。
// 主类型来源优先级：
// - label[LabelKey].Value
// - meta[MetaKey] 的第一个元素（[]string）或字符串本身
// 没有类型的 item 不参与计数。
type Diversity struct {
	LabelKey    string // 默认 "genre"
	MetaKey     string // 默认 "genres"，由 feature.EnrichNode 写入
	MaxPerGenre int    // <= 0 时为 1
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	limit := n.MaxPerGenre
	if limit <= 0 {
		limit = 1
	}

	seen := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))
	var overflow []*core.Item

	for _, it := range items {
		if it == nil {
			continue
		}
		genre := n.genre(it)
		if genre == "" {
			out = append(out, it)
			continue
		}
		if seen[genre] >= limit {
			overflow = append(overflow, it)
			continue
		}
		seen[genre]++
		out = append(out, it)
	}
	return append(out, overflow...), nil
}

func (n *Diversity) genre(it *core.Item) string {
	labelKey := n.LabelKey
	if labelKey == "" {
		labelKey = "genre"
	}
	if lbl, ok := it.Labels[labelKey]; ok && lbl.Value != "" {
		return lbl.Value
	}

	metaKey := n.MetaKey
	if metaKey == "" {
		metaKey = "genres"
	}
	switch v := it.Meta[metaKey].(type) {
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case string:
		return v
	}
	return ""
}
