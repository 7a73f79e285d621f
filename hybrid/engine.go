package hybrid

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/dataset"
	"github.com/rushteam/filmrec/feature"
	"github.com/rushteam/filmrec/filter"
	"github.com/rushteam/filmrec/matrix"
	"github.com/rushteam/filmrec/pipeline"
	"github.com/rushteam/filmrec/pkg/conv"
	"github.com/rushteam/filmrec/rank"
	"github.com/rushteam/filmrec/recall"
	"github.com/rushteam/filmrec/rerank"
)

// Request 是一次融合推荐请求。
type Request struct {
	UserID string `json:"userId"`
	// Ratings 显式评分；为空时使用数据集中该用户的评分历史
	Ratings []core.ItemRating `json:"ratings,omitempty"`
	// Favorites 喜爱片名；为空时使用已评分片名
	Favorites []string `json:"favorites,omitempty"`

	// TopN 为 0 时取配置值，< 0 表示不截断
	TopN int `json:"top_n,omitempty"`
	// Neighbors 为 0 时取配置值，< 0 表示全部
	Neighbors int `json:"neighbors,omitempty"`
	// Alpha / Beta 为 nil 时取配置值
	Alpha *float64 `json:"alpha,omitempty"`
	Beta  *float64 `json:"beta,omitempty"`
}

// Response 是融合推荐结果。
type Response struct {
	RequestID string                `json:"request_id"`
	Items     []core.Recommendation `json:"recommendations"`
	// Sources 各信号源返回的候选数（出错或超时的源为 0）
	Sources         map[string]int `json:"sources"`
	SnapshotVersion uint64         `json:"snapshot_version"`
	// RatedCount 用户在数据集中评过分的片数
	RatedCount int `json:"rated_count"`
}

// Option 是 Engine 的可选参数。
type Option func(*Engine)

// WithMetrics 设置指标。
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPostNodes 追加在目录补全之后、截断之前执行的节点（例如黑名单、表达式过滤、类型打散）。
func WithPostNodes(nodes ...pipeline.Node) Option {
	return func(e *Engine) { e.post = append(e.post, nodes...) }
}

type contentState struct {
	version uint64
	engine  *recall.ContentEngine
}

// Engine 是融合推荐引擎：并发执行 UBCF / IBCF / 内容三个信号源，按权重融合后排除已评分、补全目录信息、截断。
//
// 每个请求开始时取一次数据集快照，之后所有信号源与补全都只读这一个快照，
// 快照替换不会造成同一请求内新旧数据混用。
// 内容引擎按快照版本惰性构建，构建后只读并在请求间共享。
type Engine struct {
	cfg     Config
	data    dataset.Provider
	logger  zerolog.Logger
	metrics *Metrics
	cache   *matrix.Cache
	post    []pipeline.Node

	content atomic.Pointer[contentState]
	group   singleflight.Group
}

// NewEngine 创建融合引擎。
func NewEngine(cfg Config, data dataset.Provider, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if data == nil {
		data = dataset.NewHolder(nil)
	}
	if _, err := feature.NewAnalyzer(cfg.ContentOptions().Analyzer); err != nil {
		return nil, core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "invalid content analyzer", err)
	}
	cache, err := matrix.NewCache(cfg.SimilarityCache)
	if err != nil {
		return nil, fmt.Errorf("similarity cache: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		data:   data,
		logger: logger.With().Str("component", "hybrid").Logger(),
		cache:  cache,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config 返回引擎配置（副本）。
func (e *Engine) Config() Config { return e.cfg }

// Recommend 执行融合推荐。
//
// 空数据集、未知用户、没有任何信号时返回空结果而不是错误；
// 只有请求参数非法（权重不在 [0,1]）或后处理节点出错时返回错误。
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	defer e.metrics.observeRequest(OpRecommend, start)

	alpha, beta := e.cfg.Alpha, e.cfg.Beta
	if req.Alpha != nil {
		alpha = *req.Alpha
	}
	if req.Beta != nil {
		beta = *req.Beta
	}
	if !unit(alpha) || !unit(beta) {
		return nil, core.NewDomainError(core.ModuleHybrid, core.ErrorCodeInvalidInput,
			fmt.Sprintf("weights must be in [0,1], got alpha=%v beta=%v", alpha, beta))
	}

	snap := e.data.Current()
	userID := conv.NormalizeID(req.UserID)
	resp := &Response{
		RequestID:       uuid.NewString(),
		Sources:         make(map[string]int),
		SnapshotVersion: snap.Version(),
	}
	log := e.logger.With().Str("request_id", resp.RequestID).Str("user_id", userID).Logger()

	history := snap.UserRatings(userID)
	resp.RatedCount = distinctTitles(history)

	ratings := validRatings(req.Ratings)
	if len(ratings) == 0 {
		ratings = history
	}
	favorites := req.Favorites
	if len(favorites) == 0 {
		favorites = (&core.RecommendContext{Ratings: ratings}).RatedTitles()
	}
	if snap.IsEmpty() || (userID == "" && len(ratings) == 0 && len(favorites) == 0) {
		log.Debug().Bool("empty_snapshot", snap.IsEmpty()).Msg("no signal, empty result")
		resp.Items = []core.Recommendation{}
		return resp, nil
	}

	ce, err := e.contentEngine(snap)
	if err != nil {
		return nil, err
	}

	k := pick(req.Neighbors, e.cfg.Neighbors)
	topN := pick(req.TopN, e.cfg.TopN)
	pool := e.cfg.CandidatePool

	var mu sync.Mutex
	fanout := &recall.Fanout{
		Sources: []recall.Source{
			e.userBased(snap, k, pool),
			e.itemBased(snap, k, pool),
			&recall.ContentRecall{
				Engine:         ce,
				TopN:           pool,
				PerFavoriteCap: e.cfg.PerFavoriteCap,
				Aggregation:    recall.Aggregation(e.cfg.Aggregation),
			},
		},
		Timeout:       e.cfg.SourceTimeout,
		MaxConcurrent: e.cfg.MaxConcurrent,
		OnSourceDone: func(r recall.SourceResult) {
			e.metrics.observeSource(r.Source, r.Count, r.Err)
			if r.Err != nil {
				log.Warn().Err(r.Err).Str("source", r.Source).Msg("signal source failed, treated as absent")
			}
			mu.Lock()
			resp.Sources[r.Source] = r.Count
			mu.Unlock()
		},
	}

	nodes := []pipeline.Node{
		fanout,
		&rank.HybridNode{Alpha: alpha, Beta: beta, RatingScale: e.cfg.RatingScale},
		&filter.FilterNode{
			Filters: []filter.Filter{&filter.SeenFilter{Catalog: snap, History: snap}},
			Logger:  log,
		},
	}
	nodes = append(nodes, &feature.EnrichNode{Catalog: snap})
	nodes = append(nodes, e.post...)
	nodes = append(nodes, &rerank.TopNNode{N: topN})

	rctx := &core.RecommendContext{
		UserID:    userID,
		Ratings:   ratings,
		Favorites: favorites,
		Params: map[string]any{
			"top_n":     topN,
			"neighbors": k,
			"alpha":     alpha,
			"beta":      beta,
		},
	}
	items, err := (&pipeline.Pipeline{Nodes: nodes}).Run(ctx, rctx, nil)
	if err != nil {
		return nil, fmt.Errorf("hybrid pipeline: %w", err)
	}

	resp.Items = make([]core.Recommendation, 0, len(items))
	for _, it := range items {
		resp.Items = append(resp.Items, feature.ToRecommendation(it))
	}
	log.Debug().
		Int("rated_count", resp.RatedCount).
		Int("favorites", len(favorites)).
		Interface("sources", resp.Sources).
		Int("results", len(resp.Items)).
		Dur("elapsed", time.Since(start)).
		Msg("recommend done")
	return resp, nil
}

// UserBased 执行单独的 UBCF 预测。k / topN 为 0 时取配置值。
func (e *Engine) UserBased(ctx context.Context, userID string, k, topN int) recall.Prediction {
	defer e.metrics.observeRequest(OpUserBased, time.Now())
	snap := e.data.Current()
	return e.userBased(snap, pick(k, e.cfg.Neighbors), pick(topN, e.cfg.TopN)).Predict(ctx, userID)
}

// ItemBased 执行单独的 IBCF 预测。k / topN 为 0 时取配置值。
func (e *Engine) ItemBased(ctx context.Context, ratings []core.ItemRating, k, topN int) []core.ScoredKey {
	defer e.metrics.observeRequest(OpItemBased, time.Now())
	snap := e.data.Current()
	return e.itemBased(snap, pick(k, e.cfg.Neighbors), pick(topN, e.cfg.TopN)).Predict(ctx, ratings)
}

// Content 执行单独的内容推荐。TopN 为 0 时取配置值，PerFavoriteCap / Aggregation 为空时取配置值。
func (e *Engine) Content(ctx context.Context, q recall.ContentQuery) ([]recall.ContentCandidate, error) {
	defer e.metrics.observeRequest(OpContent, time.Now())
	ce, err := e.contentEngine(e.data.Current())
	if err != nil {
		return nil, err
	}
	q.TopN = pick(q.TopN, e.cfg.TopN)
	if q.PerFavoriteCap == 0 {
		q.PerFavoriteCap = e.cfg.PerFavoriteCap
	}
	if q.Aggregation == "" {
		q.Aggregation = recall.Aggregation(e.cfg.Aggregation)
	}
	return ce.RecommendWithDetails(q), nil
}

func (e *Engine) userBased(snap *dataset.Snapshot, k, topN int) *recall.UserBasedCF {
	return &recall.UserBasedCF{
		Dataset:   snap,
		Neighbors: k,
		TopN:      topN,
		Cache:     e.cache,
		CacheHook: e.cacheHook,
	}
}

func (e *Engine) itemBased(snap *dataset.Snapshot, k, topN int) *recall.ItemBasedCF {
	return &recall.ItemBasedCF{
		Dataset:   snap,
		Neighbors: k,
		TopN:      topN,
		Cache:     e.cache,
		CacheHook: e.cacheHook,
	}
}

func (e *Engine) cacheHook(_ matrix.Orientation, hit bool) {
	e.metrics.observeCache(hit)
}

// contentEngine 返回快照对应的内容引擎，同一版本只构建一次。
func (e *Engine) contentEngine(snap *dataset.Snapshot) (*recall.ContentEngine, error) {
	version := snap.Version()
	if st := e.content.Load(); st != nil && st.version == version {
		return st.engine, nil
	}

	v, err, _ := e.group.Do(strconv.FormatUint(version, 10), func() (any, error) {
		if st := e.content.Load(); st != nil && st.version == version {
			return st.engine, nil
		}
		start := time.Now()
		ce, err := recall.NewContentEngine(snap.Catalog(), e.cfg.ContentOptions())
		if err != nil {
			return nil, err
		}
		if cur := e.content.Load(); cur == nil || cur.version < version {
			e.content.Store(&contentState{version: version, engine: ce})
		}
		e.logger.Info().
			Uint64("snapshot_version", version).
			Int("items", ce.Len()).
			Int("vocabulary", len(ce.Vocabulary())).
			Dur("elapsed", time.Since(start)).
			Msg("content engine built")
		return ce, nil
	})
	if err != nil {
		return nil, fmt.Errorf("build content engine: %w", err)
	}
	return v.(*recall.ContentEngine), nil
}

func pick(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

func validRatings(in []core.ItemRating) []core.ItemRating {
	out := make([]core.ItemRating, 0, len(in))
	for _, r := range in {
		r.ItemKey = strings.TrimSpace(r.ItemKey)
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

func distinctTitles(ratings []core.ItemRating) int {
	seen := make(map[string]struct{}, len(ratings))
	for _, r := range ratings {
		seen[r.ItemKey] = struct{}{}
	}
	return len(seen)
}
