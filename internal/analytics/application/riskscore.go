package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/civicpulse/accountability/internal/analytics/domain"
	pkgmetrics "github.com/civicpulse/accountability/pkg/metrics"
)

// 风险评分构成（互斥档位取最高档）
const (
	riskScoreAlertThreshold = 75.0

	rcrTierHigh   = 15.0 // +30
	rcrTierMid    = 10.0 // +20
	rcrTierLow    = 5.0  // +10
	vasShareHigh  = 0.10 // +25
	vasShareMid   = 0.05 // +15
	offHoursHigh  = 40.0 // +20
	offHoursMid   = 25.0 // +10
	cssTierLow    = 3.0  // +15
	cssTierMid    = 3.5  // +10
	trailingMonth = 3
)

// RiskScorer 第五层：预测性风险评分（每月批处理）。
// 汇总人员近三个月的指标快照，按加权规则合成 [0,100] 风险分。
type RiskScorer struct {
	records   domain.RecordRepository
	snapshots domain.MetricRepository
	scores    domain.RiskScoreRepository
	emitter   *AlertEmitter
	obs       *pkgmetrics.Metrics
	logger    *slog.Logger
}

// NewRiskScorer 创建风险评分器
func NewRiskScorer(
	records domain.RecordRepository,
	snapshots domain.MetricRepository,
	scores domain.RiskScoreRepository,
	emitter *AlertEmitter,
	obs *pkgmetrics.Metrics,
	logger *slog.Logger,
) *RiskScorer {
	return &RiskScorer{
		records:   records,
		snapshots: snapshots,
		scores:    scores,
		emitter:   emitter,
		obs:       obs,
		logger:    logger,
	}
}

// Run 对全部人员执行月度风险评估
func (s *RiskScorer) Run(ctx context.Context, asOf time.Time) error {
	officers, err := s.records.ListOfficers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list officers: %w", err)
	}

	for _, officer := range officers {
		if err := s.ScoreOfficer(ctx, officer.OfficerID, asOf); err != nil {
			return err
		}
	}
	return nil
}

// ScoreOfficer 评估单个人员的风险分并持久化。
// 近三个月没有任何指标快照的人员跳过。
func (s *RiskScorer) ScoreOfficer(ctx context.Context, officerID string, asOf time.Time) error {
	from := asOf.AddDate(0, -trailingMonth, 0)
	rows, err := s.snapshots.ListMetricsRange(ctx, officerID, from, asOf)
	if err != nil {
		return fmt.Errorf("failed to load metric history for %s: %w", officerID, err)
	}
	if len(rows) == 0 {
		return nil
	}

	score := computeRiskScore(rows)

	record := &domain.RiskScore{
		OfficerID:  officerID,
		Score:      score,
		AssessedAt: asOf,
	}
	record.Clamp()

	if err := s.scores.SaveRiskScore(ctx, record); err != nil {
		return fmt.Errorf("failed to save risk score for %s: %w", officerID, err)
	}
	if s.obs != nil {
		s.obs.RiskScoreDistribution.Observe(record.Score)
	}

	if record.Score > riskScoreAlertThreshold {
		s.emitter.Emit(ctx, officerID, domain.AlertHighFraudRisk, domain.SeverityHigh,
			fmt.Sprintf("predictive fraud risk score %.0f exceeds %.0f as of %s",
				record.Score, riskScoreAlertThreshold, asOf.Format(time.DateOnly)))
	}
	return nil
}

// computeRiskScore 按加权规则合成风险分，各维度档位互斥取最高档
func computeRiskScore(rows []*domain.OfficerPerformanceMetric) float64 {
	rcrValues := make([]float64, len(rows))
	offHoursValues := make([]float64, len(rows))
	cssValues := make([]float64, 0, len(rows))
	velocityIncidents := 0

	for i, m := range rows {
		rcrValues[i] = m.RCR
		offHoursValues[i] = m.OffHoursRate
		if m.CSS > 0 {
			cssValues = append(cssValues, m.CSS)
		}
		if m.VAS < vasAlertThreshold {
			velocityIncidents++
		}
	}

	score := 0.0

	meanRCR, _ := stats.Mean(rcrValues)
	switch {
	case meanRCR > rcrTierHigh:
		score += 30
	case meanRCR > rcrTierMid:
		score += 20
	case meanRCR > rcrTierLow:
		score += 10
	}

	vasShare := float64(velocityIncidents) / float64(len(rows))
	switch {
	case vasShare > vasShareHigh:
		score += 25
	case vasShare > vasShareMid:
		score += 15
	}

	meanOffHours, _ := stats.Mean(offHoursValues)
	switch {
	case meanOffHours > offHoursHigh:
		score += 20
	case meanOffHours > offHoursMid:
		score += 10
	}

	if len(cssValues) > 0 {
		meanCSS, _ := stats.Mean(cssValues)
		switch {
		case meanCSS < cssTierLow:
			score += 15
		case meanCSS < cssTierMid:
			score += 10
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}
