package recall

import (
	"context"
	"sort"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/dataset"
	"github.com/rushteam/filmrec/matrix"
	"github.com/rushteam/filmrec/pkg/conv"
)

// 信号源名称，同时作为 Item.Features 中原始分数的 key。
const (
	SourceUserBased = "ubcf"
	SourceItemBased = "ibcf"
	SourceContent   = "content"
)

// CacheHook 在每次取评分矩阵模型时回调，hit 表示是否命中缓存。
type CacheHook func(o matrix.Orientation, hit bool)

// loadModel 取快照对应朝向的评分矩阵与相似度矩阵。cache 为 nil 时每次重新计算。
func loadModel(cache *matrix.Cache, snap *dataset.Snapshot, o matrix.Orientation, hook CacheHook) *matrix.Model {
	model, hit := cache.Get(matrix.CacheKey{Version: snap.Version(), Orientation: o}, func() *matrix.Model {
		return matrix.NewModel(snap.Ratings(), o)
	})
	if hook != nil && cache != nil {
		hook(o, hit)
	}
	return model
}

// Prediction 是 UBCF 的预测结果。
type Prediction struct {
	Scores []core.ScoredKey `json:"recommendations"`
	// RatedCount 是目标用户在评分矩阵中的非零评分数
	RatedCount int `json:"rated_count"`
}

// UserBasedCF 是基于用户的协同过滤（User-based Collaborative Filtering, UBCF）。
//
// 核心思想："兴趣相似的用户，喜欢相似的物品"
//
// 算法流程：
//  1. 由快照评分构建用户 × 片名评分矩阵
//  2. 计算用户两两余弦相似度
//  3. 取与目标用户最相似的 k 个用户（排除自身）
//  4. 对目标用户未评分的每部片：
//     score = Σ sim × r / Σ |sim|，只统计对该片评过分的近邻；
//     没有近邻贡献时该片被省略
//
// 目标用户不在矩阵中（无历史）时返回空结果，不是错误。
type UserBasedCF struct {
	Dataset dataset.Provider

	// Neighbors 近邻数 k，<= 0 时使用全部用户
	Neighbors int

	// TopN 返回条数，<= 0 时返回全部
	TopN int

	// Cache 相似度矩阵缓存，nil 表示每次调用重新计算
	Cache *matrix.Cache

	CacheHook CacheHook
}

func (r *UserBasedCF) Name() string { return SourceUserBased }

// Predict 为用户预测未评分片名的分数。
func (r *UserBasedCF) Predict(ctx context.Context, userID string) Prediction {
	if r.Dataset == nil {
		return Prediction{}
	}
	snap := r.Dataset.Current()
	if snap.IsEmpty() {
		return Prediction{}
	}
	model := loadModel(r.Cache, snap, matrix.UserMajor, r.CacheHook)
	return PredictUserBased(model, userID, r.Neighbors, r.TopN)
}

func (r *UserBasedCF) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil || rctx.UserID == "" {
		return nil, nil
	}
	p := r.Predict(ctx, rctx.UserID)
	return scoredItems(SourceUserBased, p.Scores), nil
}

// PredictUserBased 在给定模型（用户 × 物品）上执行 UBCF 预测。
func PredictUserBased(model *matrix.Model, userID string, k, topN int) Prediction {
	if model == nil || model.Matrix.Empty() {
		return Prediction{}
	}
	m := model.Matrix
	u, ok := m.RowIndex(conv.NormalizeID(userID))
	if !ok {
		return Prediction{}
	}
	target := m.Row(u)

	acc := newAccumulator()
	for _, nb := range model.Similarity.Neighbors(u, k) {
		if nb.Similarity <= 0 {
			continue
		}
		row := m.Row(nb.Index)
		for p, j := range row.Index {
			if target.At(j) != 0 {
				continue
			}
			acc.add(j, nb.Similarity, row.Value[p])
		}
	}
	return Prediction{
		Scores:     acc.result(m.ColKeys(), topN),
		RatedCount: target.Len(),
	}
}

// ItemBasedCF 是基于物品的协同过滤（Item-based Collaborative Filtering, IBCF）。
//
// 核心思想："被同一批用户喜欢的物品，相互相似"
//
// 画像向量来自请求携带的显式评分（RecommendContext.Ratings），而不是矩阵中的某一行，
// 因此对数据集中没有任何评分记录的用户同样有效，只要其评分的片名出现在矩阵中。
type ItemBasedCF struct {
	Dataset dataset.Provider

	// Neighbors 每个候选片取的相似片数 k，<= 0 时使用全部
	Neighbors int

	// TopN 返回条数，<= 0 时返回全部
	TopN int

	Cache     *matrix.Cache
	CacheHook CacheHook
}

func (r *ItemBasedCF) Name() string { return SourceItemBased }

// Predict 根据显式评分预测未评分片名的分数。
func (r *ItemBasedCF) Predict(ctx context.Context, ratings []core.ItemRating) []core.ScoredKey {
	if r.Dataset == nil || len(ratings) == 0 {
		return nil
	}
	snap := r.Dataset.Current()
	if snap.IsEmpty() {
		return nil
	}
	model := loadModel(r.Cache, snap, matrix.ItemMajor, r.CacheHook)
	return PredictItemBased(model, ratings, r.Neighbors, r.TopN)
}

func (r *ItemBasedCF) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil {
		return nil, nil
	}
	return scoredItems(SourceItemBased, r.Predict(ctx, rctx.Ratings)), nil
}

// PredictItemBased 在给定模型（物品 × 用户）上执行 IBCF 预测。
// 矩阵中不存在的片名与无效评分被忽略；同一片名重复出现时后者生效。
func PredictItemBased(model *matrix.Model, ratings []core.ItemRating, k, topN int) []core.ScoredKey {
	if model == nil || model.Matrix.Empty() {
		return nil
	}
	m := model.Matrix

	profile := make(map[int]float64, len(ratings))
	for _, r := range ratings {
		if !r.Valid() {
			continue
		}
		if i, ok := m.RowIndex(r.ItemKey); ok {
			profile[i] = r.Value
		}
	}
	if len(profile) == 0 {
		return nil
	}

	acc := newAccumulator()
	for i := 0; i < m.Rows(); i++ {
		if _, rated := profile[i]; rated {
			continue
		}
		for _, nb := range model.Similarity.Neighbors(i, k) {
			v, ok := profile[nb.Index]
			if !ok || nb.Similarity <= 0 {
				continue
			}
			acc.add(i, nb.Similarity, v)
		}
	}
	return acc.result(m.RowKeys(), topN)
}

// accumulator 累积加权平均的分子 / 分母。
type accumulator struct {
	num map[int]float64
	den map[int]float64
}

func newAccumulator() *accumulator {
	return &accumulator{num: make(map[int]float64), den: make(map[int]float64)}
}

func (a *accumulator) add(j int, sim, rating float64) {
	a.num[j] += sim * rating
	a.den[j] += sim
}

// result 返回按分数降序（同分按下标升序）排列的结果，分母为 0 的项被省略。
func (a *accumulator) result(keys []string, topN int) []core.ScoredKey {
	idx := make([]int, 0, len(a.den))
	for j, d := range a.den {
		if d > 0 {
			idx = append(idx, j)
		}
	}
	sort.Ints(idx)

	out := make([]core.ScoredKey, 0, len(idx))
	for _, j := range idx {
		out = append(out, core.ScoredKey{Key: keys[j], Score: a.num[j] / a.den[j]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// scoredItems 把打分结果转换为候选 Item，原始分数写入 Features[source]。
func scoredItems(source string, scores []core.ScoredKey) []*core.Item {
	if len(scores) == 0 {
		return nil
	}
	out := make([]*core.Item, 0, len(scores))
	for _, s := range scores {
		it := core.NewItem(s.Key)
		it.Score = s.Score
		it.PutFeature(source, s.Score)
		out = append(out, it)
	}
	return out
}
