package core

import "github.com/rushteam/filmrec/pkg/utils"

// RecommendContext 承载一次推荐请求的用户信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string // 规范化后的用户 ID（见 conv.NormalizeID）

	// Ratings 是用户显式给出的评分（IBCF 的画像向量、融合阶段的排除集合）
	Ratings []ItemRating

	// Favorites 是用户喜欢的片名，驱动内容召回
	Favorites []string

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数，例如 top_n、neighbors 覆盖值
	Params map[string]any
}

// RatedTitles 返回用户已评分的片名（保持输入顺序，去重）。
func (rctx *RecommendContext) RatedTitles() []string {
	if rctx == nil || len(rctx.Ratings) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(rctx.Ratings))
	out := make([]string, 0, len(rctx.Ratings))
	for _, r := range rctx.Ratings {
		if r.ItemKey == "" {
			continue
		}
		if _, ok := seen[r.ItemKey]; ok {
			continue
		}
		seen[r.ItemKey] = struct{}{}
		out = append(out, r.ItemKey)
	}
	return out
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
