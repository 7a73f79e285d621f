package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/store"
)

type fakeCatalog map[string]string

func (c fakeCatalog) ItemIDs(titles []string) []string {
	var out []string
	for _, t := range titles {
		if id, ok := c[t]; ok {
			out = append(out, id)
		}
	}
	return out
}

func items(ids ...string) []*core.Item {
	out := make([]*core.Item, len(ids))
	for i, id := range ids {
		out[i] = core.NewItem(id)
	}
	return out
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestSeenFilter(t *testing.T) {
	catalog := fakeCatalog{"Ant-Man": "10", "Thor": "11", "Up": "12"}
	rctx := &core.RecommendContext{
		Ratings: []core.ItemRating{{ItemKey: "Ant-Man", Value: 5}, {ItemKey: " Up ", Value: 2}},
	}

	byMeta := core.NewItem("Ant-Man (reboot)")
	byMeta.Meta["item_id"] = "10.0"
	other := core.NewItem("Solo")
	other.Meta["item_id"] = "13"

	in := append(items("Ant-Man", "Thor", "Up"), byMeta, other)
	node := &FilterNode{Filters: []Filter{&SeenFilter{Catalog: catalog}}, Logger: zerolog.Nop()}
	out, err := node.Process(context.Background(), rctx, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Thor", "Solo"}, ids(out))
}

func TestSeenFilter_NumericTitleIsNotAnID(t *testing.T) {
	catalog := fakeCatalog{"1917": "9000", "GoldenEye": "1917", "300": "42"}
	rctx := &core.RecommendContext{Ratings: []core.ItemRating{{ItemKey: "1917", Value: 4}}}

	goldenEye := core.NewItem("GoldenEye")
	goldenEye.Meta["item_id"] = "1917"
	byID := core.NewItem("1917 (restored)")
	byID.Meta["item_id"] = "9000"

	f := &SeenFilter{Catalog: catalog}
	tests := []struct {
		item *core.Item
		want bool
	}{
		{core.NewItem("1917"), true},
		{byID, true},
		{goldenEye, false},
		{core.NewItem("GoldenEye"), false},
		{core.NewItem("300"), false},
	}
	for _, tt := range tests {
		got, err := f.ShouldFilter(context.Background(), rctx, tt.item)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.item.ID)
	}
}

type countingCatalog struct {
	fakeCatalog
	calls int
}

func (c *countingCatalog) ItemIDs(titles []string) []string {
	c.calls++
	return c.fakeCatalog.ItemIDs(titles)
}

type countingHistory struct {
	fakeHistory
	calls int
}

func (h *countingHistory) UserRatings(userID string) []core.ItemRating {
	h.calls++
	return h.fakeHistory.UserRatings(userID)
}

func TestSeenFilter_PreparedOncePerProcess(t *testing.T) {
	history := &countingHistory{fakeHistory: fakeHistory{"7": {{ItemKey: "Up", Value: 4}}}}
	catalog := &countingCatalog{fakeCatalog: fakeCatalog{"Up": "12"}}
	rctx := &core.RecommendContext{UserID: "7"}

	node := &FilterNode{Filters: []Filter{&SeenFilter{Catalog: catalog, History: history}}}
	out, err := node.Process(context.Background(), rctx, items("Up", "a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(out))
	assert.Equal(t, 1, history.calls)
	// 一次解析已评分片名的 ID，之后每个未命中片名的候选各解析一次自身 ID
	assert.Equal(t, 1+3, catalog.calls)
}

type fakeHistory map[string][]core.ItemRating

func (h fakeHistory) UserRatings(userID string) []core.ItemRating { return h[userID] }

func TestSeenFilter_History(t *testing.T) {
	history := fakeHistory{"7": {{ItemKey: "Up", Value: 4}}}
	rctx := &core.RecommendContext{UserID: "7", Ratings: []core.ItemRating{{ItemKey: "Thor", Value: 3}}}

	node := &FilterNode{Filters: []Filter{&SeenFilter{History: history}}}
	out, err := node.Process(context.Background(), rctx, items("Thor", "Up", "Solo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Solo"}, ids(out))
}

func TestSeenFilter_NoRatings(t *testing.T) {
	node := &FilterNode{Filters: []Filter{&SeenFilter{}}}
	out, err := node.Process(context.Background(), &core.RecommendContext{}, items("a", "b"))
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestBlacklistFilter(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	defer mem.Close()
	adapter := NewStoreAdapter(mem)
	require.NoError(t, adapter.PutList(ctx, "filmrec:blacklist", []string{"Up"}))

	f := NewBlacklistFilter([]string{"Thor"}, adapter, "filmrec:blacklist")
	node := &FilterNode{Filters: []Filter{f}}
	out, err := node.Process(ctx, nil, items("Thor", "Up", "Solo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Solo"}, ids(out))

	missing := NewBlacklistFilter(nil, adapter, "filmrec:none")
	ok, err := missing.ShouldFilter(ctx, nil, core.NewItem("Solo"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserBlockFilter(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	defer mem.Close()
	adapter := NewStoreAdapter(mem)
	require.NoError(t, adapter.PutList(ctx, "filmrec:block:7", []string{"Thor"}))

	f := NewUserBlockFilter(adapter, "")
	node := &FilterNode{Filters: []Filter{f}}

	out, err := node.Process(ctx, &core.RecommendContext{UserID: "7"}, items("Thor", "Up"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Up"}, ids(out))

	out, err = node.Process(ctx, &core.RecommendContext{UserID: "8"}, items("Thor", "Up"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Thor", "Up"}, ids(out))
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter(`item.score < 0.3`, false)
	require.NoError(t, err)

	in := items("low", "high")
	in[0].Score = 0.1
	in[1].Score = 0.9

	out, err := (&FilterNode{Filters: []Filter{f}}).Process(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"high"}, ids(out))

	keep, err := NewExprFilter(`item.score < 0.3`, true)
	require.NoError(t, err)
	out, err = (&FilterNode{Filters: []Filter{keep}}).Process(context.Background(), nil, items("low", "high"))
	require.NoError(t, err)
	assert.Equal(t, []string{"low", "high"}, ids(out), "score 0 is below the threshold")

	_, err = NewExprFilter(`item.score <`, false)
	assert.Error(t, err)
}

type errFilter struct{}

func (errFilter) Name() string { return "filter.err" }
func (errFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return true, errors.New("boom")
}

func TestFilterNode_ErrorKeepsItem(t *testing.T) {
	out, err := (&FilterNode{Filters: []Filter{errFilter{}}}).Process(context.Background(), nil, items("a"))
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
