package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/civicpulse/accountability/internal/analytics/domain"
	"github.com/civicpulse/accountability/pkg/algos"
)

// NarrativeAnalyzer 第四层：办结说明文本相似度分析（每周批处理）。
// 将每条办结说明与该人员紧邻的上一条（按办结时间）比较，
// 字符三元组余弦相似度超阈值即视为套用模板的可疑办结。
type NarrativeAnalyzer struct {
	records    domain.RecordRepository
	indicators domain.IndicatorRepository
	emitter    *AlertEmitter
	threshold  float64
	logger     *slog.Logger
}

// NewNarrativeAnalyzer 创建文本相似度分析器
func NewNarrativeAnalyzer(
	records domain.RecordRepository,
	indicators domain.IndicatorRepository,
	emitter *AlertEmitter,
	threshold float64,
	logger *slog.Logger,
) *NarrativeAnalyzer {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.95
	}
	return &NarrativeAnalyzer{
		records:    records,
		indicators: indicators,
		emitter:    emitter,
		threshold:  threshold,
		logger:     logger,
	}
}

// Run 分析时间窗内各人员的办结说明
func (a *NarrativeAnalyzer) Run(ctx context.Context, from, to time.Time) error {
	officers, err := a.records.ListOfficers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list officers: %w", err)
	}

	for _, officer := range officers {
		if err := a.analyzeOfficer(ctx, officer.OfficerID, from, to); err != nil {
			return err
		}
	}
	return nil
}

// analyzeOfficer 对单个人员在时间窗内的办结说明做相邻比较
func (a *NarrativeAnalyzer) analyzeOfficer(ctx context.Context, officerID string, from, to time.Time) error {
	complaints, err := a.records.ListComplaintsResolvedBetween(ctx, officerID, from, to)
	if err != nil {
		return fmt.Errorf("failed to load resolved complaints for %s: %w", officerID, err)
	}
	if len(complaints) == 0 {
		return nil
	}

	// 窗口内第一条说明与窗口前最近的一条办结比较，避免跨窗口的模板套用漏检
	anchor, err := a.records.LastComplaintResolvedBefore(ctx, officerID, from)
	if err != nil {
		return fmt.Errorf("failed to load preceding resolution for %s: %w", officerID, err)
	}
	if anchor != nil {
		complaints = append([]*domain.Complaint{anchor}, complaints...)
	}

	for i := 1; i < len(complaints); i++ {
		prev, cur := complaints[i-1], complaints[i]
		if strings.TrimSpace(cur.ResolutionText) == "" || strings.TrimSpace(prev.ResolutionText) == "" {
			continue
		}

		score := algos.TrigramCosine(prev.ResolutionText, cur.ResolutionText)
		if score <= a.threshold {
			continue
		}

		a.emitter.Emit(ctx, officerID, domain.AlertDuplicateActionPattern, domain.SeverityHigh,
			fmt.Sprintf("complaint %s resolution narrative %.3f similar to previous complaint %s",
				cur.ComplaintID, score, prev.ComplaintID))

		if cur.ResolvedAt == nil {
			continue
		}
		indicator := &domain.FraudDetectionIndicator{
			OfficerID:          officerID,
			IndicatorDate:      truncateToDay(*cur.ResolvedAt),
			MaxSimilarity:      score,
			SimilarRemarkCount: 1,
		}
		if err := a.indicators.UpsertIndicator(ctx, indicator); err != nil {
			a.logger.ErrorContext(ctx, "failed to upsert fraud indicator",
				"officer_id", officerID,
				"complaint_id", cur.ComplaintID,
				"error", err,
			)
		}
	}
	return nil
}
