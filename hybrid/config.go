package hybrid

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/feature"
	"github.com/rushteam/filmrec/recall"
	"github.com/rushteam/filmrec/store"
)

// EnvPrefix 是环境变量前缀；嵌套字段用双下划线分隔，例如 FILMREC_CONTENT__STOP_WORDS。
const EnvPrefix = "FILMREC_"

var validate = validator.New()

// Config 是融合引擎与周边组件的配置。
type Config struct {
	// Alpha 内容信号权重（vs 协同信号）
	Alpha float64 `koanf:"alpha" validate:"gte=0,lte=1"`
	// Beta 协同信号内 UBCF 的权重（vs IBCF）
	Beta float64 `koanf:"beta" validate:"gte=0,lte=1"`

	// Neighbors 近邻数 k，0 表示全部
	Neighbors int `koanf:"neighbors" validate:"gte=0"`
	// TopN 最终返回条数，0 表示全部
	TopN int `koanf:"top_n" validate:"gte=0"`
	// CandidatePool 融合前每个信号源的候选池
	CandidatePool int `koanf:"candidate_pool" validate:"gt=0"`
	// PerFavoriteCap 内容召回中每个喜爱片最多贡献的候选数
	PerFavoriteCap int     `koanf:"per_favorite_cap" validate:"gt=0"`
	Aggregation    string  `koanf:"aggregation" validate:"oneof=sum max"`
	RatingScale    float64 `koanf:"rating_scale" validate:"gt=0"`

	// SimilarityCache 相似度矩阵缓存条数，0 表示每次调用重新计算
	SimilarityCache int `koanf:"similarity_cache" validate:"gte=0"`
	// SourceTimeout 单个信号源超时，0 表示不限制
	SourceTimeout time.Duration `koanf:"source_timeout" validate:"gte=0"`
	MaxConcurrent int           `koanf:"max_concurrent" validate:"gte=0"`

	// Pipeline 可选的融合后处理节点配置文件（YAML），见 config/builders
	Pipeline string `koanf:"pipeline"`

	Content ContentConfig `koanf:"content"`
	Dataset DatasetConfig `koanf:"dataset"`
	Logging LoggingConfig `koanf:"logging"`
}

// ContentConfig 是内容引擎的文本处理参数。
type ContentConfig struct {
	StopWords      string   `koanf:"stop_words" validate:"oneof=fr en none"`
	ExtraStopWords []string `koanf:"extra_stop_words"`
	MinTokenLength int      `koanf:"min_token_length" validate:"gte=0"`
	MaxFeatures    int      `koanf:"max_features" validate:"gt=0"`
}

// DatasetConfig 指定数据集来源。
type DatasetConfig struct {
	// Source csv / redis
	Source string `koanf:"source" validate:"oneof=csv redis"`
	// Path CSV 文件路径
	Path       string            `koanf:"path" validate:"required_if=Source csv"`
	Redis      store.RedisConfig `koanf:"redis"`
	RatingsKey string            `koanf:"ratings_key"`
	CatalogKey string            `koanf:"catalog_key"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		Alpha:          core.DefaultAlpha,
		Beta:           core.DefaultBeta,
		Neighbors:      core.DefaultNeighbors,
		TopN:           core.DefaultTopN,
		CandidatePool:  core.DefaultCandidatePool,
		PerFavoriteCap: core.DefaultPerFavoriteCap,
		Aggregation:    string(recall.AggregateSum),
		RatingScale:    core.DefaultRatingScale,
		Content: ContentConfig{
			StopWords:      feature.StopWordsFrench,
			ExtraStopWords: append([]string(nil), feature.DefaultExtraStopWords...),
			MinTokenLength: 2,
			MaxFeatures:    feature.DefaultMaxFeatures,
		},
		Dataset: DatasetConfig{
			Source: "csv",
			Path:   "data/movies.csv",
			Redis:  store.RedisConfig{Addr: "127.0.0.1:6379"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate 校验配置取值范围。
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "invalid config", err)
	}
	return nil
}

// ContentOptions 转换为内容引擎构建参数。
func (c *Config) ContentOptions() recall.ContentOptions {
	return recall.ContentOptions{
		Analyzer: feature.AnalyzerConfig{
			StopWords:      c.Content.StopWords,
			ExtraStopWords: c.Content.ExtraStopWords,
			MinTokenLength: c.Content.MinTokenLength,
		},
		MaxFeatures: c.Content.MaxFeatures,
	}
}

// LoadConfig 分层加载配置：
//  1. 默认值（DefaultConfig）
//  2. YAML 文件（path 为空或文件不存在时跳过）
//  3. FILMREC_ 前缀的环境变量（最高优先级）
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// 环境变量里的列表以逗号分隔
	if raw, ok := k.Get("content.extra_stop_words").(string); ok {
		if err := k.Set("content.extra_stop_words", splitList(raw)); err != nil {
			return nil, fmt.Errorf("parse content.extra_stop_words: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform: FILMREC_CONTENT__STOP_WORDS -> content.stop_words
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
