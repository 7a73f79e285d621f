package hybrid

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 操作名，作为 operation label。
const (
	OpRecommend = "recommend"
	OpUserBased = "ubcf"
	OpItemBased = "ibcf"
	OpContent   = "content"
)

// Metrics 是融合引擎的 Prometheus 指标。nil 的 *Metrics 可以安全调用（不记录）。
type Metrics struct {
	Requests         *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	SourceCandidates *prometheus.HistogramVec
	SourceErrors     *prometheus.CounterVec
	SimilarityCache  *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册指标；reg 为 nil 时指标不注册（测试用）。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filmrec_requests_total",
				Help: "Total number of scoring requests",
			},
			[]string{"operation"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filmrec_request_duration_seconds",
				Help:    "Duration of scoring requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		SourceCandidates: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filmrec_source_candidates",
				Help:    "Number of candidates returned by each signal source",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 200, 500},
			},
			[]string{"source"},
		),
		SourceErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filmrec_source_errors_total",
				Help: "Total number of failed or timed out signal sources",
			},
			[]string{"source"},
		),
		SimilarityCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filmrec_similarity_cache_total",
				Help: "Similarity matrix cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) observeRequest(op string, start time.Time) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(op).Inc()
	m.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeSource(source string, count int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SourceErrors.WithLabelValues(source).Inc()
		return
	}
	m.SourceCandidates.WithLabelValues(source).Observe(float64(count))
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SimilarityCache.WithLabelValues(result).Inc()
}
