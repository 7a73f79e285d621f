package dataset

import (
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/filmrec/core"
)

const (
	DefaultRatingsKey = "filmrec:ratings"
	DefaultCatalogKey = "filmrec:catalog"
)

// StoreLoader 从 core.Store 读取 JSON 编码的快照。
//
// 评分以 JSON 数组存放在 RatingsKey；目录在 KeyValueStore 上按行存放在 Hash CatalogKey
// （field 为定长行号，保证读取顺序与写入一致），否则以 JSON 数组存放在 CatalogKey。
// key 不存在视为空集合。
type StoreLoader struct {
	Store      core.Store
	RatingsKey string
	CatalogKey string
	Logger     zerolog.Logger
}

func (l *StoreLoader) ratingsKey() string {
	if l.RatingsKey == "" {
		return DefaultRatingsKey
	}
	return l.RatingsKey
}

func (l *StoreLoader) catalogKey() string {
	if l.CatalogKey == "" {
		return DefaultCatalogKey
	}
	return l.CatalogKey
}

// Load 实现 Loader。
func (l *StoreLoader) Load(ctx context.Context) (*Snapshot, error) {
	var ratings []core.Rating
	if err := l.getJSON(ctx, l.ratingsKey(), &ratings); err != nil {
		return nil, err
	}

	catalog, err := l.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	s := NewSnapshot(ratings, catalog)
	l.Logger.Info().
		Str("store", l.Store.Name()).
		Int("ratings", len(s.Ratings())).
		Int("catalog", len(s.Catalog())).
		Uint64("version", s.Version()).
		Msg("dataset loaded")
	return s, nil
}

func (l *StoreLoader) loadCatalog(ctx context.Context) ([]core.CatalogItem, error) {
	kv, ok := l.Store.(core.KeyValueStore)
	if !ok {
		var catalog []core.CatalogItem
		if err := l.getJSON(ctx, l.catalogKey(), &catalog); err != nil {
			return nil, err
		}
		return catalog, nil
	}

	rows, err := kv.HGetAll(ctx, l.catalogKey())
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleDataset, core.ErrorCodeUnavailable, "dataset: read catalog", err)
	}
	fields := make([]string, 0, len(rows))
	for f := range rows {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	catalog := make([]core.CatalogItem, 0, len(fields))
	for _, f := range fields {
		var it core.CatalogItem
		if err := json.Unmarshal(rows[f], &it); err != nil {
			l.Logger.Debug().Err(err).Str("field", f).Msg("skip undecodable catalog row")
			continue
		}
		catalog = append(catalog, it)
	}
	return catalog, nil
}

func (l *StoreLoader) getJSON(ctx context.Context, key string, v any) error {
	data, err := l.Store.Get(ctx, key)
	if core.IsStoreNotFound(err) {
		return nil
	}
	if err != nil {
		return core.WrapDomainError(core.ModuleDataset, core.ErrorCodeUnavailable, "dataset: read "+key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.WrapDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: decode "+key, err)
	}
	return nil
}

// Save 把快照写入 Store，格式与 Load 对应。
func (l *StoreLoader) Save(ctx context.Context, s *Snapshot) error {
	data, err := json.Marshal(s.Ratings())
	if err != nil {
		return fmt.Errorf("encode ratings: %w", err)
	}
	if err := l.Store.Set(ctx, l.ratingsKey(), data); err != nil {
		return fmt.Errorf("write ratings: %w", err)
	}

	kv, ok := l.Store.(core.KeyValueStore)
	if !ok {
		data, err := json.Marshal(s.Catalog())
		if err != nil {
			return fmt.Errorf("encode catalog: %w", err)
		}
		return l.Store.Set(ctx, l.catalogKey(), data)
	}

	if err := l.Store.Delete(ctx, l.catalogKey()); err != nil {
		return fmt.Errorf("reset catalog: %w", err)
	}
	for i, it := range s.Catalog() {
		row, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("encode catalog row %d: %w", i, err)
		}
		if err := kv.HSet(ctx, l.catalogKey(), fmt.Sprintf("%09d", i), row); err != nil {
			return fmt.Errorf("write catalog row %d: %w", i, err)
		}
	}
	return nil
}
