package recall

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/feature"
	"github.com/rushteam/filmrec/matrix"
	"github.com/rushteam/filmrec/pkg/conv"
)

// Aggregation 是多个喜爱片的候选分数合并方式。
type Aggregation string

const (
	// AggregateSum 同一候选的分数累加（被多个喜爱片同时命中的候选更靠前）
	AggregateSum Aggregation = "sum"
	// AggregateMax 同一候选取最大分数
	AggregateMax Aggregation = "max"
)

// ContentOptions 是内容引擎的构建参数。
type ContentOptions struct {
	Analyzer feature.AnalyzerConfig
	// MaxFeatures 词表上限，<= 0 时为 feature.DefaultMaxFeatures
	MaxFeatures int
}

// DefaultContentOptions 返回默认构建参数。
func DefaultContentOptions() ContentOptions {
	return ContentOptions{
		Analyzer:    feature.DefaultAnalyzerConfig(),
		MaxFeatures: feature.DefaultMaxFeatures,
	}
}

// ContentEngine 是基于内容的推荐引擎（Content-Based）。
//
// 构建时一次性完成：按片名去重（首次出现生效）、在文本画像上拟合 TF-IDF、
// 计算物品两两余弦相似度、建立 片名 -> 行 与 规范化 ID -> 行 两个索引。
// 构建后只读，可被并发请求共享；数据集快照更新时需要重新构建。
type ContentEngine struct {
	items   []core.CatalogItem
	tfidf   *feature.TFIDF
	sim     *matrix.Similarity
	byTitle map[string]int
	byID    map[string]int
}

// NewContentEngine 在目录上构建内容引擎。空目录得到一个总是返回空结果的引擎。
func NewContentEngine(catalog []core.CatalogItem, opts ContentOptions) (*ContentEngine, error) {
	analyzer, err := feature.NewAnalyzer(opts.Analyzer)
	if err != nil {
		return nil, fmt.Errorf("content analyzer: %w", err)
	}
	maxFeatures := opts.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = feature.DefaultMaxFeatures
	}

	e := &ContentEngine{
		byTitle: make(map[string]int),
		byID:    make(map[string]int),
	}
	for _, it := range catalog {
		it.Title = strings.TrimSpace(it.Title)
		if it.Title == "" {
			continue
		}
		if _, dup := e.byTitle[it.Title]; dup {
			continue
		}
		it.ItemID = conv.NormalizeID(it.ItemID)
		e.byTitle[it.Title] = len(e.items)
		if it.ItemID != "" {
			if _, dup := e.byID[it.ItemID]; !dup {
				e.byID[it.ItemID] = len(e.items)
			}
		}
		e.items = append(e.items, it)
	}

	docs := make([]string, len(e.items))
	titles := make([]string, len(e.items))
	for i, it := range e.items {
		docs[i] = it.TextProfile
		titles[i] = it.Title
	}
	e.tfidf = feature.FitTransform(analyzer, docs, maxFeatures)
	e.sim = matrix.Cosine(titles, e.tfidf.Vectors(), len(e.tfidf.Vocabulary()))
	return e, nil
}

// Len 返回去重后的物品数。
func (e *ContentEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.items)
}

// Vocabulary 返回 TF-IDF 词表（只读）。
func (e *ContentEngine) Vocabulary() []string { return e.tfidf.Vocabulary() }

// IndexOf 按片名或规范化 ID 查找行号。
func (e *ContentEngine) IndexOf(key string) (int, bool) {
	if i, ok := e.byTitle[strings.TrimSpace(key)]; ok {
		return i, true
	}
	i, ok := e.byID[conv.NormalizeID(key)]
	return i, ok
}

// Similarity 返回两部片（片名或 ID）的内容相似度，任一未知时为 0。
func (e *ContentEngine) Similarity(a, b string) float64 {
	i, ok := e.IndexOf(a)
	if !ok {
		return 0
	}
	j, ok := e.IndexOf(b)
	if !ok {
		return 0
	}
	return e.sim.At(i, j)
}

// ContentQuery 是一次内容推荐请求。
type ContentQuery struct {
	// Favorites 喜爱的片名；未知片名被跳过
	Favorites []string
	// TopN 返回条数，<= 0 时返回全部
	TopN int
	// PerFavoriteCap 每个喜爱片最多贡献的候选数，<= 0 时为 core.DefaultPerFavoriteCap
	PerFavoriteCap int
	// Exclude 按片名排除
	Exclude []string
	// ExcludeIDs 按规范化目录 ID 排除；与 Exclude 分开匹配，数字片名不会命中同号 ID
	ExcludeIDs []string
	// Aggregation 默认 sum
	Aggregation Aggregation
}

// ContentCandidate 是内容推荐的明细结果。
type ContentCandidate struct {
	ItemID  string   `json:"movieId"`
	Title   string   `json:"title"`
	Score   float64  `json:"score"`
	Sources []string `json:"sources"`
}

// RecommendWithDetails 按喜爱片推荐，并附带每个候选的来源喜爱片。
//
// 对每个已知喜爱片，按相似度降序遍历其相似度行，跳过自身与排除集合中的片，
// 最多收集 PerFavoriteCap 个候选（没有共享词的片以 0 分计入）；
// 各喜爱片的候选按 Aggregation 合并后按分数降序排列（同分保持首次出现顺序）。
func (e *ContentEngine) RecommendWithDetails(q ContentQuery) []ContentCandidate {
	if e.Len() == 0 || len(q.Favorites) == 0 {
		return nil
	}
	capPerFav := q.PerFavoriteCap
	if capPerFav <= 0 {
		capPerFav = core.DefaultPerFavoriteCap
	}
	agg := q.Aggregation
	if agg == "" {
		agg = AggregateSum
	}

	excludeTitles := make(map[string]struct{}, len(q.Exclude))
	for _, x := range q.Exclude {
		if t := strings.TrimSpace(x); t != "" {
			excludeTitles[t] = struct{}{}
		}
	}
	excludeIDs := make(map[string]struct{}, len(q.ExcludeIDs))
	for _, x := range q.ExcludeIDs {
		if k := conv.NormalizeID(x); k != "" {
			excludeIDs[k] = struct{}{}
		}
	}
	excluded := func(it core.CatalogItem) bool {
		if _, ok := excludeTitles[it.Title]; ok {
			return true
		}
		if it.ItemID == "" {
			return false
		}
		_, ok := excludeIDs[it.ItemID]
		return ok
	}

	var (
		order  []int
		scores = make(map[int]float64)
		srcs   = make(map[int][]string)
		seen   = make(map[int]struct{})
	)
	for _, fav := range q.Favorites {
		fav = strings.TrimSpace(fav)
		idx, ok := e.byTitle[fav]
		if !ok {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}

		count := 0
		for _, nb := range e.sim.Neighbors(idx, 0) {
			if count >= capPerFav {
				break
			}
			if excluded(e.items[nb.Index]) {
				continue
			}
			old, exists := scores[nb.Index]
			if !exists {
				order = append(order, nb.Index)
			}
			switch agg {
			case AggregateMax:
				if !exists || nb.Similarity > old {
					scores[nb.Index] = nb.Similarity
				}
			default:
				scores[nb.Index] = old + nb.Similarity
			}
			srcs[nb.Index] = append(srcs[nb.Index], fav)
			count++
		}
	}

	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	if q.TopN > 0 && len(order) > q.TopN {
		order = order[:q.TopN]
	}

	out := make([]ContentCandidate, 0, len(order))
	for _, i := range order {
		it := e.items[i]
		out = append(out, ContentCandidate{
			ItemID:  it.ItemID,
			Title:   it.Title,
			Score:   scores[i],
			Sources: srcs[i],
		})
	}
	return out
}

// RecommendFromFavorites 与 RecommendWithDetails 相同，但只返回物品 ID（无 ID 的行返回片名）。
func (e *ContentEngine) RecommendFromFavorites(q ContentQuery) []string {
	cands := e.RecommendWithDetails(q)
	if len(cands) == 0 {
		return nil
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ItemID
		if out[i] == "" {
			out[i] = c.Title
		}
	}
	return out
}

// ContentRecall 把 ContentEngine 适配为召回源：
// 以 RecommendContext.Favorites 为喜爱片、已评分片名为排除集合，候选以片名为 key。
type ContentRecall struct {
	Engine *ContentEngine

	TopN           int
	PerFavoriteCap int
	Aggregation    Aggregation
}

func (r *ContentRecall) Name() string { return SourceContent }

func (r *ContentRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Engine == nil || rctx == nil || len(rctx.Favorites) == 0 {
		return nil, nil
	}
	cands := r.Engine.RecommendWithDetails(ContentQuery{
		Favorites:      rctx.Favorites,
		TopN:           r.TopN,
		PerFavoriteCap: r.PerFavoriteCap,
		Exclude:        rctx.RatedTitles(),
		Aggregation:    r.Aggregation,
	})
	if len(cands) == 0 {
		return nil, nil
	}
	out := make([]*core.Item, 0, len(cands))
	for _, c := range cands {
		it := core.NewItem(c.Title)
		it.Score = c.Score
		it.PutFeature(SourceContent, c.Score)
		it.Meta["item_id"] = c.ItemID
		it.Meta["content_sources"] = c.Sources
		out = append(out, it)
	}
	return out, nil
}
