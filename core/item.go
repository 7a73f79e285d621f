package core

import "github.com/rushteam/filmrec/pkg/utils"

// Item 是推荐链路中的统一承载结构：分数、各信号源分数、元信息、标签。
// ID 是规范化后的物品 key（协同过滤与融合阶段使用片名）。
// Features 记录各信号源（ubcf / ibcf / content）给出的原始分数；
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID       string
	Score    float64
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// PutFeature 写入特征值，已存在时覆盖。
func (it *Item) PutFeature(key string, v float64) {
	if it.Features == nil {
		it.Features = make(map[string]float64)
	}
	it.Features[key] = v
}

// Merge 把 other 的特征、元信息与标签合并进 it（同名特征以 other 为准）。
func (it *Item) Merge(other *Item) {
	if other == nil || other == it {
		return
	}
	for k, v := range other.Features {
		it.PutFeature(k, v)
	}
	for k, v := range other.Meta {
		if it.Meta == nil {
			it.Meta = make(map[string]any)
		}
		if _, ok := it.Meta[k]; !ok {
			it.Meta[k] = v
		}
	}
	for k, v := range other.Labels {
		it.PutLabel(k, v)
	}
}

// MetaString 读取字符串类型的元信息。
func (it *Item) MetaString(key string) string {
	if it.Meta == nil {
		return ""
	}
	s, _ := it.Meta[key].(string)
	return s
}
