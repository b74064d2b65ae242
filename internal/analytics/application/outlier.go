package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/civicpulse/accountability/internal/analytics/domain"
	"github.com/civicpulse/accountability/pkg/algos"
)

// isolationSampleSize 隔离森林子采样大小
const isolationSampleSize = 256

// OutlierDetector 第二层：统计离群检测（每小时批处理）。
// 以前一日指标快照构建 (CRR, ART, CSS, RCR, VCR) 特征向量，
// 用隔离森林标记离群人员。
type OutlierDetector struct {
	snapshots     domain.MetricRepository
	emitter       *AlertEmitter
	contamination float64
	estimators    int
	logger        *slog.Logger
}

// NewOutlierDetector 创建离群检测器。
// contamination 为预期异常比例，estimators 为隔离森林的树数量。
func NewOutlierDetector(snapshots domain.MetricRepository, emitter *AlertEmitter, contamination float64, estimators int, logger *slog.Logger) *OutlierDetector {
	if contamination <= 0 || contamination >= 1 {
		contamination = 0.05
	}
	if estimators <= 0 {
		estimators = 100
	}
	return &OutlierDetector{
		snapshots:     snapshots,
		emitter:       emitter,
		contamination: contamination,
		estimators:    estimators,
		logger:        logger,
	}
}

// Run 对指定日期的指标快照执行离群检测。窗口内无人员时为 no-op。
func (d *OutlierDetector) Run(ctx context.Context, date time.Time) error {
	rows, err := d.snapshots.ListMetricsByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to load metric snapshots: %w", err)
	}
	if len(rows) == 0 {
		d.logger.InfoContext(ctx, "no metric snapshots in window, skipping outlier detection",
			"date", date.Format(time.DateOnly))
		return nil
	}

	features := make([][]float64, len(rows))
	for i, m := range rows {
		features[i] = []float64{m.CRR, m.ARTSeconds, m.CSS, m.RCR, m.VCR}
	}

	forest := algos.NewIsolationForest(d.estimators, isolationSampleSize, date.Unix())
	forest.Fit(features)
	scores := forest.Scores(features)

	threshold, err := stats.Percentile(stats.Float64Data(scores), 100*(1-d.contamination))
	if err != nil {
		return fmt.Errorf("failed to compute score threshold: %w", err)
	}

	flagged := 0
	for i, m := range rows {
		if scores[i] <= threshold {
			continue
		}
		flagged++
		d.emitter.Emit(ctx, m.OfficerID, domain.AlertStatisticalAnomaly, domain.SeverityHigh,
			fmt.Sprintf("isolation forest anomaly score %.3f (threshold %.3f) for %s",
				scores[i], threshold, m.MetricDate.Format(time.DateOnly)))
	}

	d.logger.InfoContext(ctx, "outlier detection completed",
		"date", date.Format(time.DateOnly),
		"officers", len(rows),
		"flagged", flagged,
	)
	return nil
}
