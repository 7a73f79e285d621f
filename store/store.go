// Package store 提供 core.Store / core.KeyValueStore 的实现：内存与 Redis。
//
// 数据集快照（dataset.StoreLoader）与黑名单过滤（filter.StoreAdapter）都只依赖 core 中的接口，
// 因此可以在测试中使用 MemoryStore，在生产中切换到 RedisStore。
//
//	var s core.KeyValueStore = store.NewMemoryStore()
package store
