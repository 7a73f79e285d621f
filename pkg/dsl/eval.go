package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/filmrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的布尔表达式，使用 CEL (Common Expression Language) 语法。
// 编译一次、并发执行。
//
// 可用变量：
//   - item.id / item.score / item.features.ubcf / item.meta.year / item.labels
//   - label.recall_source（label 的 value，按名称直接访问）
//   - rctx.user_id / rctx.favorites / rctx.rated / rctx.params
//
// 示例：
//   - `item.score > 0.5`
//   - `"content" in item.features`
//   - `label.recall_source.contains("ubcf") && item.features.ubcf >= 0.8`
//   - `item.meta.year >= "2000"`
//
// 访问不存在的 key 会报错，用 `"key" in item.meta` 先判断存在性。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，表达式必须返回 bool。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression %q must return bool, got %v", expr, t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对单个 item 求值。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q must return bool, got %T", p.expr, out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]interface{} {
	labels := make(map[string]interface{}, len(item.Labels))
	labelValues := make(map[string]interface{}, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = map[string]interface{}{
			"value":  v.Value,
			"source": v.Source,
		}
		labelValues[k] = v.Value
	}

	features := item.Features
	if features == nil {
		features = map[string]float64{}
	}
	meta := item.Meta
	if meta == nil {
		meta = map[string]any{}
	}

	ctx := map[string]interface{}{
		"user_id":   "",
		"favorites": []string{},
		"rated":     []string{},
		"params":    map[string]any{},
	}
	if rctx != nil {
		ctx["user_id"] = rctx.UserID
		if rctx.Favorites != nil {
			ctx["favorites"] = rctx.Favorites
		}
		if rated := rctx.RatedTitles(); rated != nil {
			ctx["rated"] = rated
		}
		if rctx.Params != nil {
			ctx["params"] = rctx.Params
		}
	}

	return map[string]interface{}{
		"item": map[string]interface{}{
			"id":       item.ID,
			"score":    item.Score,
			"features": features,
			"meta":     meta,
			"labels":   labels,
		},
		"label": labelValues,
		"rctx":  ctx,
	}
}
