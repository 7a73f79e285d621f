package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/filmrec/core"
)

type appendNode struct {
	id  string
	err error
}

func (n *appendNode) Name() string { return "test.append" }
func (n *appendNode) Kind() Kind   { return KindPostProcess }

func (n *appendNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if n.err != nil {
		return nil, n.err
	}
	return append(items, core.NewItem(n.id)), nil
}

func testFactory() *NodeFactory {
	f := NewNodeFactory()
	f.Register("test.append", func(cfg map[string]interface{}) (Node, error) {
		id, _ := cfg["id"].(string)
		if id == "" {
			return nil, errors.New("id is required")
		}
		return &appendNode{id: id}, nil
	})
	return f
}

func TestPipeline_Run(t *testing.T) {
	p := &Pipeline{Nodes: []Node{&appendNode{id: "a"}, &appendNode{id: "b"}}}
	out, err := p.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[1].ID)

	boom := errors.New("boom")
	p.Nodes = append(p.Nodes, &appendNode{err: boom})
	_, err = p.Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestConfig_BuildPipeline(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "p.yaml")
	jsonPath := filepath.Join(dir, "p.json")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
pipeline:
  name: demo
  nodes:
    - type: test.append
      config:
        id: x
`), 0o600))
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"pipeline":{"name":"demo","nodes":[{"type":"test.append","config":{"id":"x"}}]}}`), 0o600))

	fromYAML, err := LoadFromYAML(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "demo", fromYAML.Pipeline.Name)

	_, err = LoadFromYAML(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	cfg, err := LoadFromJSON(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, fromYAML, cfg)

	p, err := cfg.BuildPipeline(testFactory())
	require.NoError(t, err)
	out, err := p.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "x", out[0].ID)

	cfg.Pipeline.Nodes[0].Config = nil
	_, err = cfg.BuildPipeline(testFactory())
	assert.Error(t, err)

	cfg.Pipeline.Nodes[0].Type = "unknown"
	_, err = cfg.BuildPipeline(testFactory())
	assert.Error(t, err)
	assert.Equal(t, []string{"test.append"}, testFactory().Types())
}
