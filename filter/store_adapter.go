package filter

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/rushteam/filmrec/core"
)

// StoreAdapter 将 core.Store 适配为过滤器所需的存储接口。
// 列表以 JSON 字符串数组存放。
type StoreAdapter struct {
	store core.Store
}

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetBlacklist 从 Store 读取黑名单。
func (a *StoreAdapter) GetBlacklist(ctx context.Context, key string) ([]string, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetUserBlocks 从 Store 读取用户屏蔽列表。
func (a *StoreAdapter) GetUserBlocks(ctx context.Context, userID string, keyPrefix string) ([]string, error) {
	return a.GetBlacklist(ctx, keyPrefix+":"+userID)
}

// PutList 把列表写入 Store（运营后台 / 测试使用）。
func (a *StoreAdapter) PutList(ctx context.Context, key string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data)
}
