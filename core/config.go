package core

// 打分引擎默认参数。
const (
	DefaultNeighbors      = 20
	DefaultTopN           = 20
	DefaultCandidatePool  = 100
	DefaultPerFavoriteCap = 50
	DefaultRatingScale    = 5.0
	DefaultAlpha          = 0.75 // 内容 vs 协同
	DefaultBeta           = 0.5  // UBCF vs IBCF
)
