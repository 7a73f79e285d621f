package core

// CatalogItem 是数据集快照中的一行目录信息，仅用于内容向量构建与结果补全，不参与 CF 打分。
type CatalogItem struct {
	ItemID      string   `json:"movieId"`
	Title       string   `json:"title"`
	Year        string   `json:"year"`
	Genres      []string `json:"genres"`
	Description string   `json:"description"`
	// TextProfile 是外部规范化流程产出的文本画像（类型、演员、关键词、年份）；缺失时视为空串
	TextProfile string `json:"description_clean"`
	Backdrop    string `json:"backdrop"`
}

// Recommendation 是融合引擎对外输出的推荐结果。
type Recommendation struct {
	ItemID      string   `json:"movieId"`
	Title       string   `json:"title"`
	Year        string   `json:"year"`
	Genres      []string `json:"genres"`
	Description string   `json:"description"`
	Backdrop    string   `json:"backdrop"`
	Score       float64  `json:"score"`
}

// ScoredKey 是 (物品 key, 分数) 对，UBCF / IBCF 的输出单元。
type ScoredKey struct {
	Key   string  `json:"title"`
	Score float64 `json:"score"`
}
