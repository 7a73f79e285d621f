package feature

import (
	"context"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/pipeline"
)

// 补全节点写入 Item.Meta 的 key。
const (
	MetaItemID      = "item_id"
	MetaTitle       = "title"
	MetaYear        = "year"
	MetaGenres      = "genres"
	MetaDescription = "description"
	MetaBackdrop    = "backdrop"
)

// CatalogLookup 按 key（先片名、后规范化 ID）查找目录行；dataset.Snapshot 实现此接口。
type CatalogLookup interface {
	Lookup(key string) (core.CatalogItem, bool)
}

// EnrichNode 是目录补全节点：为每个 item 写入片名、年份、类型、简介、海报等目录属性。
// 目录中有重复片名时首行生效（由 CatalogLookup 保证）。
// 目录中找不到的 item 保留，片名取 item.ID，其余属性为空。
type EnrichNode struct {
	Catalog CatalogLookup
}

func (n *EnrichNode) Name() string {
	return "feature.enrich"
}

func (n *EnrichNode) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *EnrichNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Meta == nil {
			it.Meta = make(map[string]any)
		}
		row, ok := core.CatalogItem{}, false
		if n.Catalog != nil {
			row, ok = n.Catalog.Lookup(it.ID)
		}
		if !ok {
			it.Meta[MetaTitle] = it.ID
			continue
		}
		it.Meta[MetaItemID] = row.ItemID
		it.Meta[MetaTitle] = row.Title
		it.Meta[MetaYear] = row.Year
		it.Meta[MetaGenres] = row.Genres
		it.Meta[MetaDescription] = row.Description
		it.Meta[MetaBackdrop] = row.Backdrop
	}
	return items, nil
}

// ToRecommendation 把补全后的 item 转换为对外输出结构。
func ToRecommendation(it *core.Item) core.Recommendation {
	genres, _ := it.Meta[MetaGenres].([]string)
	title := it.MetaString(MetaTitle)
	if title == "" {
		title = it.ID
	}
	return core.Recommendation{
		ItemID:      it.MetaString(MetaItemID),
		Title:       title,
		Year:        it.MetaString(MetaYear),
		Genres:      genres,
		Description: it.MetaString(MetaDescription),
		Backdrop:    it.MetaString(MetaBackdrop),
		Score:       it.Score,
	}
}
