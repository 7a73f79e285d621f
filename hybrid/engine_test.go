package hybrid

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/dataset"
	"github.com/rushteam/filmrec/filter"
	"github.com/rushteam/filmrec/recall"
)

const wasp = "Ant-Man and the Wasp"

func testSnapshot() *dataset.Snapshot {
	ratings := []core.Rating{
		{UserID: "A", ItemKey: "Ant-Man", Value: 5},
		{UserID: "A", ItemKey: "Thor", Value: 1},
		{UserID: "B", ItemKey: "Ant-Man", Value: 4},
		{UserID: "B", ItemKey: "Thor", Value: 1},
		{UserID: "B", ItemKey: wasp, Value: 5},
		{UserID: "C", ItemKey: "Thor", Value: 5},
		{UserID: "C", ItemKey: wasp, Value: 4},
		{UserID: "D", ItemKey: "Amelie", Value: 4},
		{UserID: "D", ItemKey: "The Notebook", Value: 5},
	}
	catalog := []core.CatalogItem{
		{ItemID: "1", Title: "Ant-Man", Year: "2015", TextProfile: "action superhero marvel insect"},
		{ItemID: "2", Title: wasp, Year: "2018", Genres: []string{"Action", "Comedy"}, Description: "Scott and Hope", Backdrop: "/wasp.jpg", TextProfile: "action superhero marvel insect wasp"},
		{ItemID: "3", Title: "Thor", Year: "2011", TextProfile: "action superhero marvel god hammer"},
		{ItemID: "4", Title: "Amelie", TextProfile: "romance paris comedy"},
		{ItemID: "5", Title: "The Notebook", TextProfile: "romance drama letters"},
	}
	return dataset.NewSnapshot(ratings, catalog)
}

func newTestEngine(t *testing.T, data dataset.Provider, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig(), data, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return e
}

func TestEngine_RecommendFromHistory(t *testing.T) {
	ctx := context.Background()
	snap := testSnapshot()
	e := newTestEngine(t, snap)

	resp, err := e.Recommend(ctx, Request{UserID: "A"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, snap.Version(), resp.SnapshotVersion)
	assert.Equal(t, 2, resp.RatedCount)
	assert.Equal(t, map[string]int{recall.SourceUserBased: 1, recall.SourceItemBased: 1, recall.SourceContent: 3}, resp.Sources)

	// 没有共享词的内容候选同样按出现计 1.0，同分按片名升序
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "Amelie", resp.Items[1].Title)
	assert.Equal(t, "The Notebook", resp.Items[2].Title)
	assert.InDelta(t, 0.75, resp.Items[1].Score, 1e-12)
	assert.InDelta(t, 0.75, resp.Items[2].Score, 1e-12)

	got := resp.Items[0]
	assert.Equal(t, "2", got.ItemID)
	assert.Equal(t, wasp, got.Title)
	assert.Equal(t, "2018", got.Year)
	assert.Equal(t, []string{"Action", "Comedy"}, got.Genres)
	assert.Equal(t, "/wasp.jpg", got.Backdrop)

	ub := e.UserBased(ctx, "A", 0, 0)
	ib := e.ItemBased(ctx, snap.UserRatings("A"), 0, 0)
	require.Len(t, ub.Scores, 1)
	require.Len(t, ib, 1)
	want := 0.75*1 + 0.25*(0.5*ub.Scores[0].Score/5+0.5*ib[0].Score/5)
	assert.InDelta(t, want, got.Score, 1e-12)
	assert.LessOrEqual(t, got.Score, 1.0)
}

func TestEngine_ExplicitRatingsForNewUser(t *testing.T) {
	e := newTestEngine(t, testSnapshot())
	resp, err := e.Recommend(context.Background(), Request{
		UserID:  "newcomer",
		Ratings: []core.ItemRating{{ItemKey: " Ant-Man ", Value: 5}, {ItemKey: "Thor", Value: 0}},
	})
	require.NoError(t, err)
	assert.Zero(t, resp.RatedCount)
	require.NotEmpty(t, resp.Items)
	for _, it := range resp.Items {
		assert.NotEqual(t, "Ant-Man", it.Title)
		assert.GreaterOrEqual(t, it.Score, 0.0)
		assert.LessOrEqual(t, it.Score, 1.0)
	}
	assert.Equal(t, wasp, resp.Items[0].Title)
}

func TestEngine_Idempotent(t *testing.T) {
	e := newTestEngine(t, testSnapshot())
	req := Request{UserID: "B", Favorites: []string{"Thor"}, TopN: -1}

	first, err := e.Recommend(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Recommend(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Items, second.Items)
}

func TestEngine_EmptySnapshot(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, dataset.Empty())

	resp, err := e.Recommend(ctx, Request{UserID: "A", Favorites: []string{"Thor"}})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.NotNil(t, resp.Items)

	assert.Empty(t, e.UserBased(ctx, "A", 0, 0).Scores)
	assert.Empty(t, e.ItemBased(ctx, []core.ItemRating{{ItemKey: "Thor", Value: 4}}, 0, 0))
	cands, err := e.Content(ctx, recall.ContentQuery{Favorites: []string{"Thor"}})
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestEngine_InvalidWeights(t *testing.T) {
	e := newTestEngine(t, testSnapshot())
	bad := 1.5
	_, err := e.Recommend(context.Background(), Request{UserID: "A", Alpha: &bad})
	require.Error(t, err)
	assert.True(t, core.IsInvalidInput(err))
}

func TestEngine_WeightOverride(t *testing.T) {
	ctx := context.Background()
	snap := testSnapshot()
	e := newTestEngine(t, snap)
	zero, one := 0.0, 1.0

	// alpha = 0 只剩协同信号，beta = 1 只剩 UBCF
	resp, err := e.Recommend(ctx, Request{UserID: "A", Alpha: &zero, Beta: &one})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, wasp, resp.Items[0].Title)
	assert.Zero(t, resp.Items[1].Score)
	ub := e.UserBased(ctx, "A", 0, 0)
	require.Len(t, ub.Scores, 1)
	assert.InDelta(t, ub.Scores[0].Score/5, resp.Items[0].Score, 1e-12)
}

func TestEngine_PostNodes(t *testing.T) {
	block := &filter.FilterNode{Filters: []filter.Filter{filter.NewBlacklistFilter([]string{wasp}, nil, "")}}
	e := newTestEngine(t, testSnapshot(), WithPostNodes(block))

	resp, err := e.Recommend(context.Background(), Request{UserID: "A"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	for _, it := range resp.Items {
		assert.NotEqual(t, wasp, it.Title)
	}
}

func TestEngine_SnapshotSwap(t *testing.T) {
	ctx := context.Background()
	holder := dataset.NewHolder(testSnapshot())
	e := newTestEngine(t, holder)

	before, err := e.Content(ctx, recall.ContentQuery{Favorites: []string{"Amelie"}})
	require.NoError(t, err)
	require.Len(t, before, 4)
	assert.Equal(t, "The Notebook", before[0].Title)

	holder.Swap(dataset.NewSnapshot(nil, []core.CatalogItem{
		{ItemID: "4", Title: "Amelie", TextProfile: "romance paris comedy"},
		{ItemID: "9", Title: "Before Sunrise", TextProfile: "romance vienna"},
	}))
	after, err := e.Content(ctx, recall.ContentQuery{Favorites: []string{"Amelie"}})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "Before Sunrise", after[0].Title)
}

func TestEngine_Metrics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SimilarityCache = 8
	m := NewMetrics(prometheus.NewRegistry())
	e, err := NewEngine(cfg, testSnapshot(), zerolog.Nop(), WithMetrics(m))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := e.Recommend(context.Background(), Request{UserID: "A"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues(OpRecommend)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SimilarityCache.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SimilarityCache.WithLabelValues("hit")))
	assert.Zero(t, testutil.ToFloat64(m.SourceErrors.WithLabelValues(recall.SourceUserBased)))
}
