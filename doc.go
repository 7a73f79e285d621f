// Package filmrec 是一个混合电影推荐打分引擎。
//
// 三路信号并发计算后按权重融合：
// - UBCF：基于用户的协同过滤（recall.UserBasedCF）
// - IBCF：基于物品的协同过滤（recall.ItemBasedCF）
// - 内容：TF-IDF 文本画像上的余弦相似度（recall.ContentEngine）
//
// 融合链路同样是 Node 串联：Fanout → rank.HybridNode → filter.SeenFilter → feature.EnrichNode → 后处理节点 → rerank.TopNNode，
// 入口见 hybrid.Engine。
package filmrec

import "github.com/rushteam/filmrec/pipeline"

// 轻量 facade：便于直接 import "filmrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
