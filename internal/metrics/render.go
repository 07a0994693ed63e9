package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumerender",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "简历渲染耗时分布（秒）。",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"engine", "status"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumerender",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "渲染结果缓存查询次数。",
		},
		[]string{"result"},
	)
)

// ObserveRender 记录一次渲染及其结果。
func ObserveRender(engine string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	renderDuration.WithLabelValues(engine, status).Observe(d.Seconds())
}

// CacheHit / CacheMiss 统计缓存命中情况。
func CacheHit()  { cacheLookups.WithLabelValues("hit").Inc() }
func CacheMiss() { cacheLookups.WithLabelValues("miss").Inc() }
