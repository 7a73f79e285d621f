package builders

import (
	"fmt"

	"github.com/rushteam/filmrec/config"
	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/filter"
	"github.com/rushteam/filmrec/pipeline"
	"github.com/rushteam/filmrec/pkg/conv"
	"github.com/rushteam/filmrec/rank"
	"github.com/rushteam/filmrec/rerank"
)

func init() {
	config.Register("rank.hybrid", BuildHybridNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("filter", BuildFilterNode)
}

// UseStore 让 filter 节点中的 blacklist / user_block 从 s 读取名单。
// 需在构建 pipeline 之前调用。
func UseStore(s core.Store) {
	config.Register("filter", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildFilterNode(cfg, s)
	})
}

func BuildHybridNode(cfg map[string]interface{}) (pipeline.Node, error) {
	n := &rank.HybridNode{
		Alpha:       conv.ConfigGetFloat64(cfg, "alpha", core.DefaultAlpha),
		Beta:        conv.ConfigGetFloat64(cfg, "beta", core.DefaultBeta),
		RatingScale: conv.ConfigGetFloat64(cfg, "rating_scale", core.DefaultRatingScale),
	}
	if n.Alpha < 0 || n.Alpha > 1 || n.Beta < 0 || n.Beta > 1 {
		return nil, fmt.Errorf("alpha and beta must be in [0,1]")
	}
	return n, nil
}

func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

func BuildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.Diversity{
		LabelKey:    conv.ConfigGet(cfg, "label_key", ""),
		MetaKey:     conv.ConfigGet(cfg, "meta_key", ""),
		MaxPerGenre: int(conv.ConfigGetInt64(cfg, "max_per_genre", 1)),
	}, nil
}

func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return buildFilterNode(cfg, nil)
}

func buildFilterNode(cfg map[string]interface{}, s core.Store) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	var adapter *filter.StoreAdapter
	if s != nil {
		adapter = filter.NewStoreAdapter(s)
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "blacklist":
			ids := conv.SliceAnyToString(filterMap["item_ids"])
			if ids == nil {
				ids = []string{}
			}
			key := conv.ConfigGet(filterMap, "key", "")
			filters = append(filters, filter.NewBlacklistFilter(ids, adapter, key))
		case "user_block":
			if adapter == nil {
				return nil, fmt.Errorf("user_block filter requires a store")
			}
			keyPrefix := conv.ConfigGet(filterMap, "key_prefix", "")
			filters = append(filters, filter.NewUserBlockFilter(adapter, keyPrefix))
		case "seen":
			filters = append(filters, &filter.SeenFilter{})
		case "expr":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("expr filter: expr is required")
			}
			f, err := filter.NewExprFilter(expr, conv.ConfigGet(filterMap, "invert", false))
			if err != nil {
				return nil, fmt.Errorf("expr filter: %w", err)
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}
