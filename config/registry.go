// Package config 维护融合后处理节点的注册表。
//
// filmrec 的打分主链（召回扇出、融合、已评分排除、目录补全、截断）由 hybrid.Engine 固定组装，
// 配置文件只描述插在“目录补全”与“截断”之间的策略节点：黑名单、屏蔽、CEL 表达式过滤、类型打散。
// 这些节点类型由 config/builders 在 init 中注册，CLI 加载 pipeline YAML 时先 ValidatePipelineConfig，
// 再用 DefaultFactory 构建。
package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/pipeline"
)

// NodeBuilder 根据 YAML 中节点的 config 段构建 Node。
type NodeBuilder = pipeline.NodeBuilder

var (
	builders   = make(map[string]NodeBuilder)
	buildersMu sync.RWMutex
)

// Register 登记一种节点类型；同名重复登记时后者覆盖前者（builders.UseStore 依赖这一点换入存储）。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[typeName] = builder
}

// SupportedTypes 返回已登记的节点类型（按名称排序）。
func SupportedTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回当前注册表的快照；之后的 Register 不影响已返回的 factory。
func DefaultFactory() *pipeline.NodeFactory {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range builders {
		f.Register(typeName, builder)
	}
	return f
}

// ValidatePipelineConfig 在构建前检查 pipeline 中每个节点都声明了已登记的类型。
// 所有问题节点一次性列出（含下标），返回 config 模块的 INVALID_INPUT 错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	buildersMu.RLock()
	var bad []string
	for i, nc := range cfg.Pipeline.Nodes {
		switch _, ok := builders[nc.Type]; {
		case nc.Type == "":
			bad = append(bad, fmt.Sprintf("#%d: missing type", i))
		case !ok:
			bad = append(bad, fmt.Sprintf("#%d: unsupported type %q", i, nc.Type))
		}
	}
	buildersMu.RUnlock()
	if len(bad) == 0 {
		return nil
	}
	return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
		fmt.Sprintf("pipeline %q: %s (supported: %s)",
			cfg.Pipeline.Name, strings.Join(bad, "; "), strings.Join(SupportedTypes(), ", ")))
}
