package dataset

import (
	"strings"
	"sync/atomic"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/pkg/conv"
)

var versionSeq atomic.Uint64

// Snapshot 是某一时刻的完整数据集：评分记录 + 目录信息。
type Snapshot struct {
	version uint64
	ratings []core.Rating
	catalog []core.CatalogItem

	byTitle     map[string]int
	byID        map[string]int
	userRatings map[string][]core.ItemRating
}

// NewSnapshot 构建快照。
//
// 入口规范化：用户 ID 与物品 ID 经 conv.NormalizeID 处理，片名去除首尾空白；
// 无效评分（空 key、<= 0、NaN、Inf）被丢弃。
// 目录按片名去重，首次出现的行生效；缺失 TextProfile 的行按空串处理。
func NewSnapshot(ratings []core.Rating, catalog []core.CatalogItem) *Snapshot {
	s := &Snapshot{
		version:     versionSeq.Add(1),
		ratings:     make([]core.Rating, 0, len(ratings)),
		byTitle:     make(map[string]int),
		byID:        make(map[string]int),
		userRatings: make(map[string][]core.ItemRating),
	}

	for _, r := range ratings {
		r.UserID = conv.NormalizeID(r.UserID)
		r.ItemKey = strings.TrimSpace(r.ItemKey)
		if !r.Valid() {
			continue
		}
		s.ratings = append(s.ratings, r)
		s.userRatings[r.UserID] = append(s.userRatings[r.UserID], core.ItemRating{ItemKey: r.ItemKey, Value: r.Value})
	}

	for _, it := range catalog {
		it.Title = strings.TrimSpace(it.Title)
		it.ItemID = conv.NormalizeID(it.ItemID)
		if it.Title == "" {
			continue
		}
		if _, ok := s.byTitle[it.Title]; ok {
			continue
		}
		s.byTitle[it.Title] = len(s.catalog)
		if it.ItemID != "" {
			if _, ok := s.byID[it.ItemID]; !ok {
				s.byID[it.ItemID] = len(s.catalog)
			}
		}
		s.catalog = append(s.catalog, it)
	}
	return s
}

// Empty 返回一个空快照。
func Empty() *Snapshot {
	return NewSnapshot(nil, nil)
}

// Current 使 *Snapshot 自身满足 Provider（固定快照）。
func (s *Snapshot) Current() *Snapshot { return s }

// Version 返回快照版本号，进程内单调递增，用于缓存失效。
func (s *Snapshot) Version() uint64 { return s.version }

// IsEmpty 判断快照是否既无评分也无目录。
func (s *Snapshot) IsEmpty() bool {
	return s == nil || (len(s.ratings) == 0 && len(s.catalog) == 0)
}

// Ratings 返回全部有效评分（只读）。
func (s *Snapshot) Ratings() []core.Rating {
	if s == nil {
		return nil
	}
	return s.ratings
}

// Catalog 返回按片名去重后的目录（只读，保持首次出现顺序）。
func (s *Snapshot) Catalog() []core.CatalogItem {
	if s == nil {
		return nil
	}
	return s.catalog
}

// ByTitle 按片名查找目录行。
func (s *Snapshot) ByTitle(title string) (core.CatalogItem, bool) {
	if s == nil {
		return core.CatalogItem{}, false
	}
	i, ok := s.byTitle[strings.TrimSpace(title)]
	if !ok {
		return core.CatalogItem{}, false
	}
	return s.catalog[i], true
}

// ByID 按规范化后的物品 ID 查找目录行。
func (s *Snapshot) ByID(id any) (core.CatalogItem, bool) {
	if s == nil {
		return core.CatalogItem{}, false
	}
	i, ok := s.byID[conv.NormalizeID(id)]
	if !ok {
		return core.CatalogItem{}, false
	}
	return s.catalog[i], true
}

// Lookup 先按片名、再按规范化 ID 查找目录行。
func (s *Snapshot) Lookup(key string) (core.CatalogItem, bool) {
	if it, ok := s.ByTitle(key); ok {
		return it, true
	}
	return s.ByID(key)
}

// ItemIDs 返回片名对应的目录 ID（跳过未知片名与无 ID 的行）。
func (s *Snapshot) ItemIDs(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if it, ok := s.ByTitle(t); ok && it.ItemID != "" {
			out = append(out, it.ItemID)
		}
	}
	return out
}

// UserRatings 返回用户在快照中的评分（按数据出现顺序）。
func (s *Snapshot) UserRatings(userID string) []core.ItemRating {
	if s == nil {
		return nil
	}
	return s.userRatings[conv.NormalizeID(userID)]
}

// HasUser 判断用户在快照中是否有评分。
func (s *Snapshot) HasUser(userID string) bool {
	return len(s.UserRatings(userID)) > 0
}

// Users 返回快照中的用户数。
func (s *Snapshot) Users() int {
	if s == nil {
		return 0
	}
	return len(s.userRatings)
}
