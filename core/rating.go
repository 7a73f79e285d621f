package core

import "math"

// Rating 是一条用户评分记录。
//
// 约定：0 或缺失表示"未评分"，永远不是一个有效的观测值。
// 构建评分矩阵时，任何 0 值单元格都被解释为缺失。
// 因此 Value <= 0 的记录在入口处被丢弃（见 Valid）。
type Rating struct {
	UserID  string  `json:"userId"`
	ItemKey string  `json:"title"`
	Value   float64 `json:"rating"`
}

// Valid 判断评分记录是否可用：用户与物品 key 非空，评分为有限正数。
func (r Rating) Valid() bool {
	return r.UserID != "" && r.ItemKey != "" && validValue(r.Value)
}

// ItemRating 是单个用户对单个物品的评分，用于请求中携带的显式评分。
type ItemRating struct {
	ItemKey string  `json:"title"`
	Value   float64 `json:"rating"`
}

// Valid 判断显式评分是否可用。
func (r ItemRating) Valid() bool {
	return r.ItemKey != "" && validValue(r.Value)
}

func validValue(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
