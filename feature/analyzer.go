package feature

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"
	"github.com/blevesearch/bleve/v2/analysis/token/length"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/registry"
)

// 停用词语言
const (
	StopWordsFrench  = "fr"
	StopWordsEnglish = "en"
	StopWordsNone    = "none"
)

// frenchElisionFilter 是 bleve fr 包注册的省音过滤器（l'homme -> homme）。
const frenchElisionFilter = "elision_fr"

// DefaultExtraStopWords 是电影描述里高频但无区分度的词。
var DefaultExtraStopWords = []string{"film", "cinema", "histoire", "faire"}

// AnalyzerConfig 描述文本切词链路。
type AnalyzerConfig struct {
	// StopWords 停用词语言：fr / en / none，空值按 fr 处理
	StopWords string
	// ExtraStopWords 追加的停用词（按小写匹配）
	ExtraStopWords []string
	// MinTokenLength 最短 token 长度（按字符计），<= 0 时为 2
	MinTokenLength int
}

// DefaultAnalyzerConfig 返回默认配置：法语停用词 + DefaultExtraStopWords，token 至少 2 个字符。
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		StopWords:      StopWordsFrench,
		ExtraStopWords: DefaultExtraStopWords,
		MinTokenLength: 2,
	}
}

// Analyzer 把文本切成 token 序列：unicode 分词 -> 小写 -> (省音) -> 长度过滤 -> 停用词过滤。
// 构建后只读，可并发使用。
type Analyzer struct {
	inner *analysis.DefaultAnalyzer
}

// NewAnalyzer 根据配置构建 Analyzer。
func NewAnalyzer(cfg AnalyzerConfig) (*Analyzer, error) {
	minLen := cfg.MinTokenLength
	if minLen <= 0 {
		minLen = 2
	}

	stopWords := analysis.NewTokenMap()
	filters := []analysis.TokenFilter{lowercase.NewLowerCaseFilter()}

	switch strings.ToLower(cfg.StopWords) {
	case "", StopWordsFrench:
		if err := stopWords.LoadBytes(fr.FrenchStopWords); err != nil {
			return nil, fmt.Errorf("load french stop words: %w", err)
		}
		elision, err := registry.NewCache().TokenFilterNamed(frenchElisionFilter)
		if err != nil {
			return nil, fmt.Errorf("elision filter: %w", err)
		}
		filters = append(filters, elision)
	case StopWordsEnglish:
		if err := stopWords.LoadBytes(en.EnglishStopWords); err != nil {
			return nil, fmt.Errorf("load english stop words: %w", err)
		}
	case StopWordsNone:
	default:
		return nil, fmt.Errorf("unknown stop words language %q", cfg.StopWords)
	}
	for _, w := range cfg.ExtraStopWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			stopWords.AddToken(w)
		}
	}

	filters = append(filters,
		length.NewLengthFilter(minLen, -1),
		stop.NewStopTokensFilter(stopWords),
	)

	return &Analyzer{
		inner: &analysis.DefaultAnalyzer{
			Tokenizer:    unicode.NewUnicodeTokenizer(),
			TokenFilters: filters,
		},
	}, nil
}

// Tokens 返回文本的 token 序列（保持出现顺序，允许重复）。
func (a *Analyzer) Tokens(text string) []string {
	if text == "" {
		return nil
	}
	stream := a.inner.Analyze([]byte(text))
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		out = append(out, string(tok.Term))
	}
	return out
}
