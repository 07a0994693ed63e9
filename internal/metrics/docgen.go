package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 文档生成客户端的调用结果。
const (
	OutcomeSuccess        = "success"
	OutcomeRejected       = "rejected"
	OutcomeTransportError = "transport_error"
)

var (
	generationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumerender",
			Subsystem: "docgen",
			Name:      "requests_total",
			Help:      "文档生成请求总数，按结果划分。",
		},
		[]string{"outcome"},
	)

	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumerender",
			Subsystem: "docgen",
			Name:      "request_duration_seconds",
			Help:      "文档生成请求耗时分布（秒）。",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)
)

// ObserveGeneration 记录一次文档生成调用。
func ObserveGeneration(outcome string, d time.Duration) {
	generationTotal.WithLabelValues(outcome).Inc()
	generationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
