package recall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/filmrec/core"
)

func sampleCatalog() []core.CatalogItem {
	return []core.CatalogItem{
		{ItemID: "1", Title: "Ant-Man", TextProfile: "action superhero marvel insect"},
		{ItemID: "2", Title: "Ant-Man and the Wasp", TextProfile: "action superhero marvel insect wasp"},
		{ItemID: "3", Title: "Thor", TextProfile: "action superhero marvel god hammer"},
		{ItemID: "4", Title: "Amelie", TextProfile: "romance paris comedy"},
		{ItemID: "5", Title: "The Notebook", TextProfile: "romance drama letters"},
		{ItemID: "6", Title: "Inception", TextProfile: "dream heist thriller"},
		{ItemID: "7", Title: "Thor", TextProfile: "duplicate row ignored"},
	}
}

func newSampleEngine(t *testing.T) *ContentEngine {
	t.Helper()
	e, err := NewContentEngine(sampleCatalog(), DefaultContentOptions())
	require.NoError(t, err)
	return e
}

func titles(cands []ContentCandidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Title
	}
	return out
}

func TestContentEngine_Build(t *testing.T) {
	e := newSampleEngine(t)
	assert.Equal(t, 6, e.Len())
	assert.NotEmpty(t, e.Vocabulary())

	i, ok := e.IndexOf("Thor")
	require.True(t, ok)
	j, ok := e.IndexOf("3.0")
	require.True(t, ok)
	assert.Equal(t, i, j)

	assert.InDelta(t, 1.0, e.Similarity("Thor", "Thor"), 1e-12)
	assert.Greater(t, e.Similarity("Ant-Man", "Ant-Man and the Wasp"), e.Similarity("Ant-Man", "Thor"))
	assert.Zero(t, e.Similarity("Ant-Man", "Inception"))
	assert.Zero(t, e.Similarity("Ant-Man", "unknown"))
}

func TestContentEngine_ExcludesFavoriteItself(t *testing.T) {
	e := newSampleEngine(t)
	got := e.RecommendWithDetails(ContentQuery{
		Favorites: []string{"Ant-Man"},
		Exclude:   []string{"Ant-Man"},
	})
	assert.Equal(t, []string{"Ant-Man and the Wasp", "Thor", "Amelie", "The Notebook", "Inception"}, titles(got))
}

func TestContentEngine_ZeroSimilarityCountsTowardCap(t *testing.T) {
	e, err := NewContentEngine([]core.CatalogItem{
		{ItemID: "1", Title: "Ant-Man", TextProfile: "action superhero marvel"},
		{ItemID: "4", Title: "Amelie", TextProfile: "romance paris comedy"},
	}, DefaultContentOptions())
	require.NoError(t, err)

	got := e.RecommendWithDetails(ContentQuery{Favorites: []string{"Ant-Man"}, PerFavoriteCap: 50})
	require.Len(t, got, 1)
	assert.Equal(t, "Amelie", got[0].Title)
	assert.Zero(t, got[0].Score)

	// 相似度为 0 的候选同样占用名额
	big := newSampleEngine(t)
	got = big.RecommendWithDetails(ContentQuery{Favorites: []string{"Ant-Man"}, PerFavoriteCap: 3})
	assert.Equal(t, []string{"Ant-Man and the Wasp", "Thor", "Amelie"}, titles(got))
}

func TestContentEngine_UnknownFavorites(t *testing.T) {
	e := newSampleEngine(t)
	assert.Empty(t, e.RecommendWithDetails(ContentQuery{Favorites: []string{"Nope"}}))
	assert.Empty(t, e.RecommendWithDetails(ContentQuery{}))

	empty, err := NewContentEngine(nil, DefaultContentOptions())
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
	assert.Empty(t, empty.RecommendFromFavorites(ContentQuery{Favorites: []string{"Thor"}}))
}

func TestContentEngine_Aggregation(t *testing.T) {
	e := newSampleEngine(t)
	favs := []string{"Ant-Man", "Thor"}

	sum := e.RecommendWithDetails(ContentQuery{Favorites: favs, Aggregation: AggregateSum})
	max := e.RecommendWithDetails(ContentQuery{Favorites: favs, Aggregation: AggregateMax})

	find := func(cands []ContentCandidate, title string) ContentCandidate {
		for _, c := range cands {
			if c.Title == title {
				return c
			}
		}
		t.Fatalf("%s not found", title)
		return ContentCandidate{}
	}

	wasp := "Ant-Man and the Wasp"
	simA, simT := e.Similarity("Ant-Man", wasp), e.Similarity("Thor", wasp)
	assert.InDelta(t, simA+simT, find(sum, wasp).Score, 1e-12)
	assert.InDelta(t, simA, find(max, wasp).Score, 1e-12)
	assert.Equal(t, []string{"Ant-Man", "Thor"}, find(sum, wasp).Sources)

	// 另一个喜爱片不在排除集合中，可以被推荐
	assert.Contains(t, titles(sum), "Thor")
	assert.Contains(t, titles(sum), "Ant-Man")
	assert.Zero(t, find(sum, "Inception").Score)
	assert.Equal(t, "Inception", sum[len(sum)-1].Title)
}

func TestContentEngine_CapAndTopN(t *testing.T) {
	e := newSampleEngine(t)
	got := e.RecommendWithDetails(ContentQuery{Favorites: []string{"Ant-Man"}, PerFavoriteCap: 1})
	assert.Equal(t, []string{"Ant-Man and the Wasp"}, titles(got))

	got = e.RecommendWithDetails(ContentQuery{Favorites: []string{"Ant-Man", "Amelie"}, TopN: 2})
	assert.Len(t, got, 2)
}

func TestContentEngine_DuplicateFavorites(t *testing.T) {
	e := newSampleEngine(t)
	once := e.RecommendWithDetails(ContentQuery{Favorites: []string{"Ant-Man"}})
	twice := e.RecommendWithDetails(ContentQuery{Favorites: []string{"Ant-Man", " Ant-Man "}})
	assert.Equal(t, once, twice)
}

func TestContentEngine_RecommendFromFavorites(t *testing.T) {
	e := newSampleEngine(t)
	ids := e.RecommendFromFavorites(ContentQuery{Favorites: []string{"Ant-Man"}, ExcludeIDs: []string{"3.0"}})
	assert.Equal(t, []string{"2", "4", "5", "6"}, ids)
}

func TestContentEngine_ExcludeTitlesAndIDsSeparately(t *testing.T) {
	e, err := NewContentEngine([]core.CatalogItem{
		{ItemID: "1", Title: "Heat", TextProfile: "crime heist thriller"},
		{ItemID: "9000", Title: "1917", TextProfile: "war thriller trenches"},
		{ItemID: "1917", Title: "GoldenEye", TextProfile: "spy thriller heist"},
	}, DefaultContentOptions())
	require.NoError(t, err)

	tests := []struct {
		name string
		q    ContentQuery
		want []string
	}{
		{"numeric title excludes only that title", ContentQuery{Exclude: []string{"1917"}}, []string{"GoldenEye"}},
		{"id excludes only that id", ContentQuery{ExcludeIDs: []string{"1917"}}, []string{"1917"}},
		{"both", ContentQuery{Exclude: []string{"1917"}, ExcludeIDs: []string{"1917.0"}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.q.Favorites = []string{"Heat"}
			assert.ElementsMatch(t, tt.want, titles(e.RecommendWithDetails(tt.q)))
		})
	}
}

func TestContentRecall(t *testing.T) {
	r := &ContentRecall{Engine: newSampleEngine(t)}
	items, err := r.Recall(context.Background(), &core.RecommendContext{
		Favorites: []string{"Ant-Man"},
		Ratings:   []core.ItemRating{{ItemKey: "Ant-Man and the Wasp", Value: 4}},
	})
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "Thor", items[0].ID)
	assert.Zero(t, items[3].Score)
	assert.Equal(t, "3", items[0].MetaString("item_id"))
	assert.Contains(t, items[0].Features, SourceContent)

	items, err = r.Recall(context.Background(), &core.RecommendContext{})
	require.NoError(t, err)
	assert.Empty(t, items)
}
