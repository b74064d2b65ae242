package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkgmetrics "github.com/civicpulse/accountability/pkg/metrics"
)

// 批处理检测层编号（第一层为事件触发，不参与批处理）
const (
	LayerStatistical = 2
	LayerGraph       = 3
	LayerSimilarity  = 4
	LayerRiskScoring = 5
)

// StatisticalLayer 统计离群检测能力
type StatisticalLayer interface {
	Run(ctx context.Context, date time.Time) error
}

// GraphLayer 流转图谱分析能力
type GraphLayer interface {
	Run(ctx context.Context, from, to time.Time) error
}

// SimilarityLayer 文本相似度分析能力
type SimilarityLayer interface {
	Run(ctx context.Context, from, to time.Time) error
}

// ScoringLayer 风险评分能力
type ScoringLayer interface {
	Run(ctx context.Context, asOf time.Time) error
}

// LayerResult 单层执行结果
type LayerResult struct {
	// Layer 层编号
	Layer int `json:"layer"`
	// Name 层名称
	Name string `json:"name"`
	// Duration 执行耗时
	Duration time.Duration `json:"duration"`
	// Error 失败原因，成功时为空
	Error string `json:"error,omitempty"`
}

// Succeeded 该层是否执行成功
func (r LayerResult) Succeeded() bool { return r.Error == "" }

// PipelineResult 整条流水线的部分结果
type PipelineResult struct {
	// StartedAt 本轮开始时间
	StartedAt time.Time `json:"started_at"`
	// Layers 各层结果，按执行顺序
	Layers []LayerResult `json:"layers"`
}

// Failed 返回失败层编号
func (r *PipelineResult) Failed() []int {
	var failed []int
	for _, layer := range r.Layers {
		if !layer.Succeeded() {
			failed = append(failed, layer.Layer)
		}
	}
	return failed
}

// Pipeline 欺诈检测流水线，按序执行批处理检测层（2–5）。
// 各层相互隔离：单层失败或 panic 不影响后续层继续执行。
type Pipeline struct {
	statistical StatisticalLayer
	graph       GraphLayer
	similarity  SimilarityLayer
	scoring     ScoringLayer
	obs         *pkgmetrics.Metrics
	logger      *slog.Logger
}

// NewPipeline 创建检测流水线
func NewPipeline(
	statistical StatisticalLayer,
	graph GraphLayer,
	similarity SimilarityLayer,
	scoring ScoringLayer,
	obs *pkgmetrics.Metrics,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		statistical: statistical,
		graph:       graph,
		similarity:  similarity,
		scoring:     scoring,
		obs:         obs,
		logger:      logger,
	}
}

// RunLayer 按层编号执行单个批处理层，时间窗由 now 推导
func (p *Pipeline) RunLayer(ctx context.Context, layer int, now time.Time) error {
	switch layer {
	case LayerStatistical:
		return p.statistical.Run(ctx, now.AddDate(0, 0, -1))
	case LayerGraph:
		return p.graph.Run(ctx, now.AddDate(0, 0, -1), now)
	case LayerSimilarity:
		return p.similarity.Run(ctx, now.AddDate(0, 0, -7), now)
	case LayerRiskScoring:
		return p.scoring.Run(ctx, now)
	default:
		return fmt.Errorf("unknown pipeline layer: %d", layer)
	}
}

// RunAll 依次执行第 2–5 层，返回各层的部分结果
func (p *Pipeline) RunAll(ctx context.Context, now time.Time) *PipelineResult {
	result := &PipelineResult{StartedAt: now}

	layers := []struct {
		number int
		name   string
	}{
		{LayerStatistical, "statistical_outlier"},
		{LayerGraph, "transfer_graph"},
		{LayerSimilarity, "narrative_similarity"},
		{LayerRiskScoring, "risk_scoring"},
	}

	for _, layer := range layers {
		start := time.Now()
		err := p.runIsolated(ctx, layer.number, now)
		duration := time.Since(start)

		status := "ok"
		layerResult := LayerResult{Layer: layer.number, Name: layer.name, Duration: duration}
		if err != nil {
			status = "error"
			layerResult.Error = err.Error()
			p.logger.ErrorContext(ctx, "pipeline layer failed",
				"layer", layer.number,
				"name", layer.name,
				"error", err,
			)
		}
		if p.obs != nil {
			p.obs.LayerRunsTotal.WithLabelValues(layer.name, status).Inc()
			p.obs.LayerDuration.WithLabelValues(layer.name).Observe(duration.Seconds())
		}
		result.Layers = append(result.Layers, layerResult)
	}

	return result
}

// runIsolated 执行单层并吸收 panic，保证层间隔离
func (p *Pipeline) runIsolated(ctx context.Context, layer int, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("layer %d panicked: %v", layer, r)
		}
	}()
	return p.RunLayer(ctx, layer, now)
}
