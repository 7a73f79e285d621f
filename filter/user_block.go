package filter

import (
	"context"

	"github.com/rushteam/filmrec/core"
)

// UserBlockFilter 过滤用户手动屏蔽（"不再推荐"）的片。
type UserBlockFilter struct {
	// Store 用于从存储中读取用户屏蔽列表
	Store UserBlockStore

	// KeyPrefix 是 Store 中的 key 前缀，实际 key 为 {KeyPrefix}:{UserID}
	KeyPrefix string
}

// UserBlockStore 是用户屏蔽列表存储接口。
type UserBlockStore interface {
	// GetUserBlocks 获取用户屏蔽的片名或物品 ID 列表
	GetUserBlocks(ctx context.Context, userID string, keyPrefix string) ([]string, error)
}

// NewUserBlockFilter 创建一个用户屏蔽过滤器。
func NewUserBlockFilter(storeAdapter *StoreAdapter, keyPrefix string) *UserBlockFilter {
	var store UserBlockStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &UserBlockFilter{
		Store:     store,
		KeyPrefix: keyPrefix,
	}
}

func (f *UserBlockFilter) Name() string {
	return "filter.user_block"
}

func (f *UserBlockFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == "" || f.Store == nil {
		return false, nil
	}

	keyPrefix := f.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "filmrec:block"
	}

	blocked, err := f.Store.GetUserBlocks(ctx, rctx.UserID, keyPrefix)
	if core.IsStoreNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return matchAny(toSet(blocked), itemKeys(item)), nil
}
