package matrix

import (
	"math"
	"sort"
)

// Vector 是稀疏向量：Index 严格升序，Value 与 Index 一一对应且非零。
type Vector struct {
	Index []int
	Value []float64
}

// NewVector 由 (下标 -> 值) 构建稀疏向量，丢弃 0 值。
func NewVector(entries map[int]float64) Vector {
	idx := make([]int, 0, len(entries))
	for i, v := range entries {
		if v != 0 {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	vals := make([]float64, len(idx))
	for k, i := range idx {
		vals[k] = entries[i]
	}
	return Vector{Index: idx, Value: vals}
}

// Len 返回非零元素个数。
func (v Vector) Len() int { return len(v.Index) }

// At 返回下标 j 处的值，缺失为 0。
func (v Vector) At(j int) float64 {
	k := sort.SearchInts(v.Index, j)
	if k < len(v.Index) && v.Index[k] == j {
		return v.Value[k]
	}
	return 0
}

// Norm 返回 L2 范数。
func (v Vector) Norm() float64 {
	var s float64
	for _, x := range v.Value {
		s += x * x
	}
	return math.Sqrt(s)
}

// Dot 返回与 o 的内积（按下标归并）。
func (v Vector) Dot(o Vector) float64 {
	var s float64
	i, j := 0, 0
	for i < len(v.Index) && j < len(o.Index) {
		switch {
		case v.Index[i] == o.Index[j]:
			s += v.Value[i] * o.Value[j]
			i++
			j++
		case v.Index[i] < o.Index[j]:
			i++
		default:
			j++
		}
	}
	return s
}

// Dense 展开为长度 dim 的稠密切片。
func (v Vector) Dense(dim int) []float64 {
	out := make([]float64, dim)
	for k, i := range v.Index {
		if i < dim {
			out[i] = v.Value[k]
		}
	}
	return out
}
