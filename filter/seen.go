package filter

import (
	"context"
	"strings"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/pkg/conv"
)

// CatalogResolver 把片名解析为目录 ID（dataset.Snapshot 实现此接口）。
type CatalogResolver interface {
	ItemIDs(titles []string) []string
}

// HistoryProvider 返回用户在数据集中的评分历史（dataset.Snapshot 实现此接口）。
type HistoryProvider interface {
	UserRatings(userID string) []core.ItemRating
}

// SeenFilter 过滤用户已评分的物品。
//
// 片名与目录 ID 分两个集合匹配：候选片名只和已评分片名比较，
// 候选的目录 ID 只和已评分片名在目录中的 ID 比较。
// 因此片名 "1917" 不会误伤 ID 为 1917 的另一部片。
// 已评分片名 = 请求携带的评分 ∪ 数据集中的评分历史（History 非 nil 时）。
type SeenFilter struct {
	// Catalog 可选，用于把片名解析为目录 ID
	Catalog CatalogResolver
	// History 可选
	History HistoryProvider
}

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

// SeenSet 返回已评分片名集合与这些片名的目录 ID 集合（ID 已规范化）。
func (f *SeenFilter) SeenSet(rctx *core.RecommendContext) (titles, ids map[string]struct{}) {
	rated := rctx.RatedTitles()
	if f.History != nil && rctx != nil && rctx.UserID != "" {
		for _, r := range f.History.UserRatings(rctx.UserID) {
			rated = append(rated, r.ItemKey)
		}
	}
	if len(rated) == 0 {
		return nil, nil
	}
	titles = make(map[string]struct{}, len(rated))
	keys := make([]string, 0, len(rated))
	for _, t := range rated {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := titles[t]; dup {
			continue
		}
		titles[t] = struct{}{}
		keys = append(keys, t)
	}
	if f.Catalog != nil && len(keys) > 0 {
		ids = toSet(f.Catalog.ItemIDs(keys))
	}
	return titles, ids
}

// Prepare 为本次请求计算一次已评分集合，返回的过滤器只在本次 Process 内使用。
func (f *SeenFilter) Prepare(_ context.Context, rctx *core.RecommendContext) (Filter, error) {
	titles, ids := f.SeenSet(rctx)
	return &seenMatcher{catalog: f.Catalog, titles: titles, ids: ids}, nil
}

func (f *SeenFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	m, err := f.Prepare(ctx, rctx)
	if err != nil {
		return false, err
	}
	return m.ShouldFilter(ctx, rctx, item)
}

type seenMatcher struct {
	catalog CatalogResolver
	titles  map[string]struct{}
	ids     map[string]struct{}
}

func (m *seenMatcher) Name() string {
	return "filter.seen"
}

func (m *seenMatcher) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if len(m.titles) == 0 {
		return false, nil
	}
	title := strings.TrimSpace(item.ID)
	if _, ok := m.titles[title]; ok {
		return true, nil
	}
	if len(m.ids) == 0 {
		return false, nil
	}

	candidate := []string{conv.NormalizeID(item.MetaString("item_id"))}
	if m.catalog != nil {
		candidate = append(candidate, m.catalog.ItemIDs([]string{title})...)
	}
	for _, id := range candidate {
		if id == "" {
			continue
		}
		if _, ok := m.ids[conv.NormalizeID(id)]; ok {
			return true, nil
		}
	}
	return false, nil
}
