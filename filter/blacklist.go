package filter

import (
	"context"

	"github.com/rushteam/filmrec/core"
)

// BlacklistFilter 是黑名单过滤器，按片名或目录 ID 过滤掉黑名单中的物品。
type BlacklistFilter struct {
	// ItemIDs 是内存中的黑名单（片名或物品 ID）
	ItemIDs []string

	// Store 用于从存储中读取黑名单（可选）
	Store BlacklistStore

	// Key 是 Store 中的黑名单 key（可选）
	Key string

	static map[string]struct{}
}

// BlacklistStore 是黑名单存储接口。
type BlacklistStore interface {
	// GetBlacklist 获取黑名单（片名或物品 ID 列表）
	GetBlacklist(ctx context.Context, key string) ([]string, error)
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(itemIDs []string, storeAdapter *StoreAdapter, key string) *BlacklistFilter {
	var store BlacklistStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &BlacklistFilter{
		ItemIDs: itemIDs,
		Store:   store,
		Key:     key,
		static:  toSet(itemIDs),
	}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	keys := itemKeys(item)

	static := f.static
	if static == nil {
		static = toSet(f.ItemIDs)
	}
	if matchAny(static, keys) {
		return true, nil
	}

	if f.Store != nil && f.Key != "" {
		blacklist, err := f.Store.GetBlacklist(ctx, f.Key)
		if core.IsStoreNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return matchAny(toSet(blacklist), keys), nil
	}

	return false, nil
}
