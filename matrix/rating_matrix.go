package matrix

import (
	"sort"

	"github.com/rushteam/filmrec/core"
)

// Orientation 是评分矩阵的朝向。
type Orientation int

const (
	// UserMajor 行 = 用户，列 = 物品（UBCF 使用）
	UserMajor Orientation = iota
	// ItemMajor 行 = 物品，列 = 用户（IBCF 使用）
	ItemMajor
)

func (o Orientation) String() string {
	switch o {
	case UserMajor:
		return "user_major"
	case ItemMajor:
		return "item_major"
	default:
		return "unknown"
	}
}

// RatingMatrix 是稀疏评分矩阵。缺失单元格即 0。
// 行 / 列 key 取自输入评分中出现过的去重值，按字典序排列，
// 因此同一实例中"相似度行"与"原始评分行"下标一致。
type RatingMatrix struct {
	orientation Orientation
	rowKeys     []string
	colKeys     []string
	rowIndex    map[string]int
	colIndex    map[string]int
	rows        []Vector
}

// Build 由评分记录构建指定朝向的评分矩阵。
//
// 同一 (行, 列) 重复出现时后写覆盖前写（不求和、不平均）。
// 无效记录（空 key、非正数、NaN、Inf）被跳过。
// 输入为空或全部无效时返回空矩阵而不是错误。
func Build(ratings []core.Rating, o Orientation) *RatingMatrix {
	cells := make(map[string]map[string]float64)
	cols := make(map[string]struct{})
	for _, r := range ratings {
		if !r.Valid() {
			continue
		}
		row, col := r.UserID, r.ItemKey
		if o == ItemMajor {
			row, col = r.ItemKey, r.UserID
		}
		if cells[row] == nil {
			cells[row] = make(map[string]float64)
		}
		cells[row][col] = r.Value
		cols[col] = struct{}{}
	}

	m := &RatingMatrix{
		orientation: o,
		rowKeys:     sortedKeys(cells),
		colKeys:     make([]string, 0, len(cols)),
	}
	for c := range cols {
		m.colKeys = append(m.colKeys, c)
	}
	sort.Strings(m.colKeys)

	m.rowIndex = indexOf(m.rowKeys)
	m.colIndex = indexOf(m.colKeys)
	m.rows = make([]Vector, len(m.rowKeys))
	for i, rk := range m.rowKeys {
		entries := make(map[int]float64, len(cells[rk]))
		for ck, v := range cells[rk] {
			entries[m.colIndex[ck]] = v
		}
		m.rows[i] = NewVector(entries)
	}
	return m
}

// Orientation 返回矩阵朝向。
func (m *RatingMatrix) Orientation() Orientation { return m.orientation }

// Rows 返回行数。
func (m *RatingMatrix) Rows() int { return len(m.rowKeys) }

// Cols 返回列数。
func (m *RatingMatrix) Cols() int { return len(m.colKeys) }

// Empty 判断矩阵是否为空。
func (m *RatingMatrix) Empty() bool { return m == nil || len(m.rowKeys) == 0 }

// RowKeys 返回行 key（只读）。
func (m *RatingMatrix) RowKeys() []string { return m.rowKeys }

// ColKeys 返回列 key（只读）。
func (m *RatingMatrix) ColKeys() []string { return m.colKeys }

// RowIndex 查找行 key 的下标。
func (m *RatingMatrix) RowIndex(key string) (int, bool) {
	i, ok := m.rowIndex[key]
	return i, ok
}

// ColIndex 查找列 key 的下标。
func (m *RatingMatrix) ColIndex(key string) (int, bool) {
	j, ok := m.colIndex[key]
	return j, ok
}

// Row 返回第 i 行的稀疏向量（只读）。
func (m *RatingMatrix) Row(i int) Vector { return m.rows[i] }

// At 返回 (i, j) 处的评分，缺失为 0。
func (m *RatingMatrix) At(i, j int) float64 { return m.rows[i].At(j) }

// Similarity 计算行向量两两余弦相似度。
func (m *RatingMatrix) Similarity() *Similarity {
	if m == nil {
		return Cosine(nil, nil, 0)
	}
	return Cosine(m.rowKeys, m.rows, len(m.colKeys))
}

func sortedKeys(m map[string]map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(keys []string) map[string]int {
	idx := make(map[string]int, len(keys))
	for i, k := range keys {
		idx[k] = i
	}
	return idx
}
