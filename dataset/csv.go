package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/pkg/conv"
)

// 列名别名（统一小写比较）。
var columnAliases = map[string][]string{
	colUser:        {"userid", "user_id", "user"},
	colTitle:       {"title", "itemkey", "item_key"},
	colRating:      {"rating", "score"},
	colItemID:      {"movieid", "movie_id", "itemid", "item_id", "id"},
	colYear:        {"year", "release_year"},
	colGenres:      {"genres", "genre"},
	colDescription: {"description", "overview"},
	colText:        {"description_clean", "textprofile", "text_profile"},
	colBackdrop:    {"backdrop", "backdrop_path", "artwork"},
}

const (
	colUser        = "user"
	colTitle       = "title"
	colRating      = "rating"
	colItemID      = "item_id"
	colYear        = "year"
	colGenres      = "genres"
	colDescription = "description"
	colText        = "text"
	colBackdrop    = "backdrop"
)

// LoadStats 记录一次加载的统计。
type LoadStats struct {
	Rows           int // 读取到的数据行
	SkippedRows    int // 无法解析而跳过的行
	Ratings        int // 有效评分
	InvalidRatings int // 评分列存在但不可用（非数值、<= 0）
}

// CSVLoader 从单张宽表 CSV 加载快照：每行一条 (userId, title, rating) 评分，
// 同时携带该片的目录信息（movieId, year, genres, description, description_clean, backdrop）。
//
// 解析是宽松的：表头去 BOM、去空白、大小写不敏感；字段多于表头或引号损坏的行被跳过并计数，
// 字段不足的行按空值补齐；
// 只含目录信息、没有 userId / rating 的行只进入目录。
type CSVLoader struct {
	Path   string
	Logger zerolog.Logger

	// GenreSeparator 类型列的分隔符，默认 "|"
	GenreSeparator string
}

// Load 实现 Loader。
func (l *CSVLoader) Load(ctx context.Context) (*Snapshot, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleDataset, core.ErrorCodeUnavailable, "dataset: open csv", err)
	}
	defer f.Close()

	s, stats, err := l.Read(ctx, f)
	if err != nil {
		return nil, err
	}
	l.Logger.Info().
		Str("path", l.Path).
		Int("rows", stats.Rows).
		Int("skipped_rows", stats.SkippedRows).
		Int("ratings", stats.Ratings).
		Int("invalid_ratings", stats.InvalidRatings).
		Int("catalog", len(s.Catalog())).
		Uint64("version", s.Version()).
		Msg("dataset loaded")
	return s, nil
}

// Read 从 r 解析快照。
func (l *CSVLoader) Read(ctx context.Context, r io.Reader) (*Snapshot, LoadStats, error) {
	var stats LoadStats

	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Empty(), stats, nil
	}
	if err != nil {
		return nil, stats, core.WrapDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: read csv header", err)
	}
	cols := mapColumns(header)
	if _, ok := cols[colTitle]; !ok {
		return nil, stats, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: csv has no title column (header %v)", header))
	}

	sep := l.GenreSeparator
	if sep == "" {
		sep = "|"
	}

	var (
		ratings []core.Rating
		catalog []core.CatalogItem
	)
	for line := 2; ; line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stats.SkippedRows++
			l.Logger.Debug().Err(err).Int("line", line).Msg("skip malformed csv row")
			continue
		}
		if len(rec) > len(header) {
			stats.SkippedRows++
			l.Logger.Debug().Int("line", line).Int("fields", len(rec)).Msg("skip csv row with wrong field count")
			continue
		}
		stats.Rows++

		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		title := get(colTitle)
		if title == "" {
			stats.SkippedRows++
			continue
		}

		catalog = append(catalog, core.CatalogItem{
			ItemID:      conv.NormalizeID(get(colItemID)),
			Title:       title,
			Year:        conv.NormalizeID(get(colYear)),
			Genres:      splitGenres(get(colGenres), sep),
			Description: get(colDescription),
			TextProfile: get(colText),
			Backdrop:    get(colBackdrop),
		})

		user, raw := get(colUser), get(colRating)
		if user == "" && raw == "" {
			continue
		}
		v, ok := conv.ParseRating(raw)
		rating := core.Rating{UserID: conv.NormalizeID(user), ItemKey: title, Value: v}
		if !ok || !rating.Valid() {
			stats.InvalidRatings++
			continue
		}
		ratings = append(ratings, rating)
		stats.Ratings++
	}

	return NewSnapshot(ratings, catalog), stats, nil
}

func mapColumns(header []string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := pos[h]; !ok {
			pos[h] = i
		}
	}
	cols := make(map[string]int, len(columnAliases))
	for name, aliases := range columnAliases {
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				cols[name] = i
				break
			}
		}
	}
	return cols
}

func splitGenres(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
