package rank

import (
	"context"
	"sort"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/pipeline"
	"github.com/rushteam/filmrec/pkg/utils"
	"github.com/rushteam/filmrec/recall"
)

// 融合阶段写入 Item.Features 的中间分数。
const (
	FeatureCF     = "cf"
	FeatureHybrid = "hybrid"
)

// HybridNode 把三个信号源的原始分数融合为一个 [0,1] 区间的分数并降序排序。
//
//	ubcf_norm   = ubcf / RatingScale（截断到 [0,1]）
//	ibcf_norm   = ibcf / RatingScale（截断到 [0,1]）
//	content     = 1（内容召回命中即为 1，不使用相似度原值）
//	cf          = Beta × ubcf_norm + (1 - Beta) × ibcf_norm
//	hybrid      = Alpha × content + (1 - Alpha) × cf
//
// 缺失的信号按 0 计。同分按 ID 升序，保证结果确定。
type HybridNode struct {
	// Alpha 内容信号权重，[0,1]
	Alpha float64
	// Beta 协同信号内 UBCF 的权重，[0,1]
	Beta float64
	// RatingScale 评分上限，<= 0 时为 core.DefaultRatingScale
	RatingScale float64
}

func (n *HybridNode) Name() string        { return "rank.hybrid" }
func (n *HybridNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *HybridNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		cf, score := n.Score(it.Features)
		it.PutFeature(FeatureCF, cf)
		it.PutFeature(FeatureHybrid, score)
		it.Score = score
		it.PutLabel("rank_model", utils.Label{Value: "hybrid", Source: "rank"})
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Score 由各源原始分数计算协同分与融合分。
func (n *HybridNode) Score(features map[string]float64) (cf, hybrid float64) {
	scale := n.RatingScale
	if scale <= 0 {
		scale = core.DefaultRatingScale
	}
	ub := clamp01(features[recall.SourceUserBased] / scale)
	ib := clamp01(features[recall.SourceItemBased] / scale)
	var content float64
	if _, ok := features[recall.SourceContent]; ok {
		content = 1
	}

	alpha, beta := clamp01(n.Alpha), clamp01(n.Beta)
	cf = beta*ub + (1-beta)*ib
	return cf, alpha*content + (1-alpha)*cf
}

func clamp01(v float64) float64 {
	switch {
	case v != v || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
