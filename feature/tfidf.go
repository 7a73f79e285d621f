package feature

import (
	"math"
	"sort"

	"github.com/rushteam/filmrec/matrix"
)

// DefaultMaxFeatures 是词表上限的默认值。
const DefaultMaxFeatures = 5000

// TFIDF 是在一批文档上拟合出的 TF-IDF 向量空间。
//
// 权重：tf 为原始词频，idf = ln((1+n)/(1+df)) + 1（平滑），每行再做 L2 归一化。
// 词表与 idf 在拟合后固定，不支持增量更新；需要新词表时重新拟合。
type TFIDF struct {
	analyzer *Analyzer
	terms    []string
	vocab    map[string]int
	idf      []float64
	vectors  []matrix.Vector
}

// FitTransform 在 docs 上拟合词表与 idf，并返回每篇文档的向量。
// maxFeatures <= 0 表示不限制；否则只保留语料中总词频最高的 maxFeatures 个词（同频按字典序）。
func FitTransform(a *Analyzer, docs []string, maxFeatures int) *TFIDF {
	counts := make([]map[string]int, len(docs))
	total := make(map[string]int)
	df := make(map[string]int)
	for i, doc := range docs {
		c := make(map[string]int)
		for _, tok := range a.Tokens(doc) {
			c[tok]++
		}
		for tok, n := range c {
			total[tok] += n
			df[tok]++
		}
		counts[i] = c
	}

	terms := make([]string, 0, len(total))
	for tok := range total {
		terms = append(terms, tok)
	}
	if maxFeatures > 0 && len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	t := &TFIDF{
		analyzer: a,
		terms:    terms,
		vocab:    make(map[string]int, len(terms)),
		idf:      make([]float64, len(terms)),
		vectors:  make([]matrix.Vector, len(docs)),
	}
	n := float64(len(docs))
	for j, term := range terms {
		t.vocab[term] = j
		t.idf[j] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	for i, c := range counts {
		t.vectors[i] = t.weigh(c)
	}
	return t
}

// weigh 把词频转换成 L2 归一化的 TF-IDF 稀疏向量，词表外的词被忽略。
func (t *TFIDF) weigh(counts map[string]int) matrix.Vector {
	entries := make(map[int]float64, len(counts))
	var sq float64
	for tok, c := range counts {
		j, ok := t.vocab[tok]
		if !ok {
			continue
		}
		w := float64(c) * t.idf[j]
		entries[j] = w
		sq += w * w
	}
	if sq > 0 {
		norm := math.Sqrt(sq)
		for j := range entries {
			entries[j] /= norm
		}
	}
	return matrix.NewVector(entries)
}

// Transform 用已拟合的词表与 idf 把新文本映射到同一空间。
func (t *TFIDF) Transform(text string) matrix.Vector {
	c := make(map[string]int)
	for _, tok := range t.analyzer.Tokens(text) {
		c[tok]++
	}
	return t.weigh(c)
}

// Vectors 返回拟合文档的向量（只读）。
func (t *TFIDF) Vectors() []matrix.Vector { return t.vectors }

// Vocabulary 返回按字典序排列的词表（只读）。
func (t *TFIDF) Vocabulary() []string { return t.terms }

// IDF 返回词的 idf 权重。
func (t *TFIDF) IDF(term string) (float64, bool) {
	j, ok := t.vocab[term]
	if !ok {
		return 0, false
	}
	return t.idf[j], true
}
