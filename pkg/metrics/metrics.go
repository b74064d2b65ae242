// Package metrics 提供 Prometheus helper，包含本服务常用的 counter/gauge/histogram
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"net/http"
)

// Metrics 指标集合
type Metrics struct {
	// KPI 计算次数
	KPIComputationsTotal *prometheus.CounterVec
	// 告警产生次数（按类型与级别）
	AlertsEmittedTotal *prometheus.CounterVec
	// 告警持久化失败次数
	AlertPersistFailures prometheus.Counter
	// 检测层执行次数（按层与结果）
	LayerRunsTotal *prometheus.CounterVec
	// 检测层执行耗时
	LayerDuration *prometheus.HistogramVec
	// 风险评分分布
	RiskScoreDistribution prometheus.Histogram
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		KPIComputationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accountability",
			Subsystem: serviceName,
			Name:      "kpi_computations_total",
			Help:      "Total KPI computations by result",
		}, []string{"result"}),
		AlertsEmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accountability",
			Subsystem: serviceName,
			Name:      "alerts_emitted_total",
			Help:      "Total fraud alerts emitted",
		}, []string{"type", "severity"}),
		AlertPersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accountability",
			Subsystem: serviceName,
			Name:      "alert_persist_failures_total",
			Help:      "Total alert persistence failures",
		}),
		LayerRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accountability",
			Subsystem: serviceName,
			Name:      "pipeline_layer_runs_total",
			Help:      "Total detection layer executions by layer and status",
		}, []string{"layer", "status"}),
		LayerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "accountability",
			Subsystem: serviceName,
			Name:      "pipeline_layer_duration_seconds",
			Help:      "Detection layer execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"layer"}),
		RiskScoreDistribution: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "accountability",
			Subsystem: serviceName,
			Name:      "risk_score",
			Help:      "Distribution of computed officer risk scores",
			Buckets:   []float64{10, 25, 50, 75, 90, 100},
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.KPIComputationsTotal,
		m.AlertsEmittedTotal,
		m.AlertPersistFailures,
		m.LayerRunsTotal,
		m.LayerDuration,
		m.RiskScoreDistribution,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler 返回 Prometheus 抓取端点的 HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
