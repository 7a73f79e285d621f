package builders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/filmrec/config"
	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/filter"
	"github.com/rushteam/filmrec/pipeline"
	"github.com/rushteam/filmrec/rank"
	"github.com/rushteam/filmrec/store"
)

const postPipeline = `
pipeline:
  name: post-fusion
  nodes:
    - type: filter
      config:
        filters:
          - type: blacklist
            item_ids: ["Thor"]
            key: filmrec:blacklist
          - type: expr
            expr: item.score < 0.2
    - type: rerank.topn
      config:
        n: 2
`

func loadPipeline(t *testing.T, yaml string) *pipeline.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	cfg, err := pipeline.LoadFromYAML(path)
	require.NoError(t, err)
	require.NoError(t, config.ValidatePipelineConfig(cfg))
	return cfg
}

func scored(pairs ...any) []*core.Item {
	var out []*core.Item
	for i := 0; i < len(pairs); i += 2 {
		it := core.NewItem(pairs[i].(string))
		it.Score = pairs[i+1].(float64)
		out = append(out, it)
	}
	return out
}

func TestRegisteredTypes(t *testing.T) {
	assert.Subset(t, config.SupportedTypes(), []string{"filter", "rank.hybrid", "rerank.topn", "rerank.diversity"})
}

func TestBuildPostPipeline(t *testing.T) {
	cfg := loadPipeline(t, postPipeline)
	p, err := cfg.BuildPipeline(config.DefaultFactory())
	require.NoError(t, err)
	require.Len(t, p.Nodes, 2)

	out, err := p.Run(context.Background(), &core.RecommendContext{},
		scored("Thor", 0.9, "Up", 0.8, "Solo", 0.1, "Heat", 0.5, "Ran", 0.4))
	require.NoError(t, err)

	ids := make([]string, len(out))
	for i, it := range out {
		ids[i] = it.ID
	}
	assert.Equal(t, []string{"Up", "Heat"}, ids)
}

func TestUseStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	defer mem.Close()
	require.NoError(t, filter.NewStoreAdapter(mem).PutList(ctx, "filmrec:blacklist", []string{"Up"}))

	UseStore(mem)
	t.Cleanup(func() { config.Register("filter", BuildFilterNode) })

	p, err := loadPipeline(t, postPipeline).BuildPipeline(config.DefaultFactory())
	require.NoError(t, err)
	out, err := p.Run(ctx, nil, scored("Thor", 0.9, "Up", 0.8, "Heat", 0.5))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Heat", out[0].ID)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() error
	}{
		{"filters missing", func() error { _, err := BuildFilterNode(map[string]interface{}{}); return err }},
		{"unknown filter", func() error {
			_, err := BuildFilterNode(map[string]interface{}{"filters": []interface{}{map[string]interface{}{"type": "exposed"}}})
			return err
		}},
		{"user_block without store", func() error {
			_, err := BuildFilterNode(map[string]interface{}{"filters": []interface{}{map[string]interface{}{"type": "user_block"}}})
			return err
		}},
		{"bad expr", func() error {
			_, err := BuildFilterNode(map[string]interface{}{"filters": []interface{}{map[string]interface{}{"type": "expr", "expr": "item.score +"}}})
			return err
		}},
		{"alpha out of range", func() error { _, err := BuildHybridNode(map[string]interface{}{"alpha": 2}); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.build())
		})
	}
}

func TestBuildHybridNode(t *testing.T) {
	n, err := BuildHybridNode(map[string]interface{}{"alpha": 1, "beta": 0.25})
	require.NoError(t, err)
	h := n.(*rank.HybridNode)
	assert.Equal(t, 1.0, h.Alpha)
	assert.Equal(t, 0.25, h.Beta)
	assert.Equal(t, core.DefaultRatingScale, h.RatingScale)
}

func TestValidatePipelineConfig_Unknown(t *testing.T) {
	cfg := &pipeline.Config{}
	cfg.Pipeline.Name = "post"
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{{Type: "rerank.topn"}, {Type: "rank.lr"}, {}}

	err := config.ValidatePipelineConfig(cfg)
	require.Error(t, err)
	assert.True(t, core.IsInvalidInput(err))
	assert.Contains(t, err.Error(), `#1: unsupported type "rank.lr"`)
	assert.Contains(t, err.Error(), "#2: missing type")
	assert.NotContains(t, err.Error(), "#0")
	assert.Contains(t, err.Error(), "rerank.diversity")

	assert.NoError(t, config.ValidatePipelineConfig(nil))
}
