package matrix

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// denseThreshold 以下（行数 × 列数）走稠密计算，更简单；以上走稀疏倒排计算。
const denseThreshold = 1 << 14

// Similarity 是方阵、对称的余弦相似度矩阵，key 集合与源矩阵的行相同。
// 对角线为 1（零向量为 0），选近邻时按惯例排除自身。
type Similarity struct {
	keys  []string
	index map[string]int
	sym   *mat.SymDense
}

// Neighbor 是一个近邻及其相似度。
type Neighbor struct {
	Index      int
	Key        string
	Similarity float64
}

// Cosine 计算 rows 两两之间的余弦相似度：dot(a,b) / (|a|·|b|)，任一向量模为 0 时取 0。
// dim 是列空间维度，用于选择稠密或稀疏实现。
func Cosine(keys []string, rows []Vector, dim int) *Similarity {
	n := len(rows)
	s := &Similarity{
		keys:  keys,
		index: indexOf(keys),
	}
	if n == 0 {
		return s
	}
	s.sym = mat.NewSymDense(n, nil)

	norms := make([]float64, n)
	for i, r := range rows {
		norms[i] = r.Norm()
	}

	if n*dim <= denseThreshold {
		cosineDense(s.sym, rows, norms, dim)
	} else {
		cosineSparse(s.sym, rows, norms)
	}
	return s
}

// cosineDense 是小矩阵的稠密实现。
func cosineDense(sym *mat.SymDense, rows []Vector, norms []float64, dim int) {
	dense := make([][]float64, len(rows))
	for i, r := range rows {
		dense[i] = r.Dense(dim)
	}
	for a := range dense {
		for b := a; b < len(dense); b++ {
			sym.SetSym(a, b, cosineValue(a, b, floats.Dot(dense[a], dense[b]), norms))
		}
	}
}

// cosineSparse 通过列倒排表只累加共享非零列的乘积，避免 O(rows × cols) 的稠密分配。
func cosineSparse(sym *mat.SymDense, rows []Vector, norms []float64) {
	type posting struct {
		row int
		val float64
	}
	postings := make(map[int][]posting)
	for i, r := range rows {
		for k, j := range r.Index {
			postings[j] = append(postings[j], posting{row: i, val: r.Value[k]})
		}
	}

	acc := make([]float64, len(rows))
	seen := make([]bool, len(rows))
	touched := make([]int, 0, len(rows))
	for a, r := range rows {
		for k, j := range r.Index {
			va := r.Value[k]
			for _, p := range postings[j] {
				if p.row < a {
					continue
				}
				if !seen[p.row] {
					seen[p.row] = true
					touched = append(touched, p.row)
				}
				acc[p.row] += va * p.val
			}
		}
		sym.SetSym(a, a, cosineValue(a, a, 0, norms))
		for _, b := range touched {
			if b != a {
				sym.SetSym(a, b, cosineValue(a, b, acc[b], norms))
			}
			acc[b] = 0
			seen[b] = false
		}
		touched = touched[:0]
	}
}

func cosineValue(a, b int, dot float64, norms []float64) float64 {
	if norms[a] == 0 || norms[b] == 0 {
		return 0
	}
	if a == b {
		return 1
	}
	v := dot / (norms[a] * norms[b])
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// Len 返回维度。
func (s *Similarity) Len() int { return len(s.keys) }

// Keys 返回 key（只读）。
func (s *Similarity) Keys() []string { return s.keys }

// Index 查找 key 的下标。
func (s *Similarity) Index(key string) (int, bool) {
	i, ok := s.index[key]
	return i, ok
}

// At 返回 (a, b) 的相似度。
func (s *Similarity) At(a, b int) float64 {
	if s.sym == nil {
		return 0
	}
	return s.sym.At(a, b)
}

// Between 按 key 返回相似度，任一 key 不存在时为 0。
func (s *Similarity) Between(a, b string) float64 {
	i, ok := s.index[a]
	if !ok {
		return 0
	}
	j, ok := s.index[b]
	if !ok {
		return 0
	}
	return s.At(i, j)
}

// Row 返回第 i 行的副本。
func (s *Similarity) Row(i int) []float64 {
	out := make([]float64, s.Len())
	for j := range out {
		out[j] = s.At(i, j)
	}
	return out
}

// Neighbors 返回与第 i 行最相似的 k 个其他行（排除自身），按相似度降序，
// 相同相似度按下标升序。k <= 0 或 k 超过可用行数时返回全部。
func (s *Similarity) Neighbors(i, k int) []Neighbor {
	n := s.Len()
	if n <= 1 || i < 0 || i >= n {
		return nil
	}
	out := make([]Neighbor, 0, n-1)
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		out = append(out, Neighbor{Index: j, Key: s.keys[j], Similarity: s.At(i, j)})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Similarity > out[b].Similarity
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
