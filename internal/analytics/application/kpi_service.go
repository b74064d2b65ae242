package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/civicpulse/accountability/internal/analytics/domain"
	pkgmetrics "github.com/civicpulse/accountability/pkg/metrics"
)

// KPI 告警阈值
const (
	crrAlertThreshold      = 70.0
	frtAlertSeconds        = 48 * 3600.0
	cssAlertThreshold      = 3.0
	rcrAlertThreshold      = 15.0
	vcrAlertThreshold      = 90.0
	offHoursAlertThreshold = 40.0
	vasAlertThreshold      = -2.5
)

// 工作时段 09:00–17:00，周末全天视为非工作时段
const (
	workDayStartHour = 9
	workDayEndHour   = 17
)

// KPIService 绩效指标计算引擎。
// 针对 (officer, date) 从原始记录推导全部指标，整行 upsert 后
// 逐项评估阈值规则并产生告警。
type KPIService struct {
	records    domain.RecordRepository
	snapshots  domain.MetricRepository
	indicators domain.IndicatorRepository
	emitter    *AlertEmitter
	obs        *pkgmetrics.Metrics
	logger     *slog.Logger
}

// NewKPIService 创建指标计算引擎
func NewKPIService(
	records domain.RecordRepository,
	snapshots domain.MetricRepository,
	indicators domain.IndicatorRepository,
	emitter *AlertEmitter,
	obs *pkgmetrics.Metrics,
	logger *slog.Logger,
) *KPIService {
	return &KPIService{
		records:    records,
		snapshots:  snapshots,
		indicators: indicators,
		emitter:    emitter,
		obs:        obs,
		logger:     logger,
	}
}

// ComputeAll 计算并持久化人员在指定日期的全部指标。
// 对指标表和信号表幂等：同一 (officer, date) 重复计算只保留一行快照和一行信号。
// 告警不去重，重复计算会再次触发满足条件的告警。
func (s *KPIService) ComputeAll(ctx context.Context, officerID string, date time.Time) (*domain.OfficerPerformanceMetric, error) {
	day := truncateToDay(date)

	complaints, err := s.records.ListComplaintsAssigned(ctx, officerID, day)
	if err != nil {
		s.countComputation("error")
		return nil, fmt.Errorf("failed to load complaints: %w", err)
	}
	feedback, err := s.records.ListFeedback(ctx, officerID, day)
	if err != nil {
		s.countComputation("error")
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	actions, err := s.records.ListActions(ctx, officerID, day)
	if err != nil {
		s.countComputation("error")
		return nil, fmt.Errorf("failed to load actions: %w", err)
	}
	departmentResolved, err := s.records.ListComplaintsResolvedOn(ctx, day)
	if err != nil {
		s.countComputation("error")
		return nil, fmt.Errorf("failed to load department resolutions: %w", err)
	}

	metric := &domain.OfficerPerformanceMetric{
		OfficerID:  officerID,
		MetricDate: day,
	}

	assignedTotal := len(complaints)
	resolvedCount := 0
	reopenedCount := 0

	metric.CRR = computeCRR(complaints)
	metric.ARTSeconds = computeART(complaints)
	metric.FRTSeconds = computeFRT(complaints)
	metric.CSS = computeCSS(feedback)
	metric.RCR, resolvedCount, reopenedCount = computeRCR(complaints)
	metric.VCR = computeVCR(complaints)
	metric.OffHoursRate = computeOffHoursRate(actions)
	metric.VAS = computeVAS(officerID, departmentResolved)

	if err := s.snapshots.UpsertMetric(ctx, metric); err != nil {
		s.countComputation("error")
		return nil, fmt.Errorf("failed to upsert metric snapshot: %w", err)
	}
	// 同步落一行欺诈信号，z-score 按合并规则取最大值
	indicator := &domain.FraudDetectionIndicator{
		OfficerID:     officerID,
		IndicatorDate: day,
		ZScore:        metric.VAS,
	}
	if err := s.indicators.UpsertIndicator(ctx, indicator); err != nil {
		s.countComputation("error")
		return nil, fmt.Errorf("failed to upsert fraud indicator: %w", err)
	}
	s.countComputation("ok")

	s.evaluateThresholds(ctx, metric, assignedTotal, resolvedCount+reopenedCount, len(actions))

	return metric, nil
}

// ComputeAllOfficers 对全部人员执行指定日期的指标重算，单人失败不影响其余人员
func (s *KPIService) ComputeAllOfficers(ctx context.Context, date time.Time) error {
	officers, err := s.records.ListOfficers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list officers: %w", err)
	}

	failed := 0
	for _, officer := range officers {
		if _, err := s.ComputeAll(ctx, officer.OfficerID, date); err != nil {
			failed++
			s.logger.ErrorContext(ctx, "KPI computation failed",
				"officer_id", officer.OfficerID,
				"date", date.Format(time.DateOnly),
				"error", err,
			)
		}
	}
	if failed > 0 {
		return fmt.Errorf("KPI computation failed for %d of %d officers", failed, len(officers))
	}
	return nil
}

// evaluateThresholds 对刚算出的指标逐项评估告警规则。
// 分母为零的指标不评估比率类规则，避免无工单人员被误报。
func (s *KPIService) evaluateThresholds(ctx context.Context, m *domain.OfficerPerformanceMetric, assignedTotal, reopenDenominator, actionTotal int) {
	date := m.MetricDate.Format(time.DateOnly)

	if assignedTotal > 0 && m.CRR < crrAlertThreshold {
		s.emitter.Emit(ctx, m.OfficerID, domain.AlertLowCRR, domain.SeverityMedium,
			fmt.Sprintf("complaint resolution rate %.2f%% below %.0f%% on %s", m.CRR, crrAlertThreshold, date))
	}
	if m.FRTSeconds > frtAlertSeconds {
		s.emitter.Emit(ctx, m.OfficerID, domain.AlertSlowFirstResponse, domain.SeverityMedium,
			fmt.Sprintf("average first response time %.0fs exceeds 48h on %s", m.FRTSeconds, date))
	}
	if m.CSS > 0 && m.CSS < cssAlertThreshold {
		s.emitter.Emit(ctx, m.OfficerID, domain.AlertLowSatisfaction, domain.SeverityMedium,
			fmt.Sprintf("citizen satisfaction %.2f below %.1f on %s", m.CSS, cssAlertThreshold, date))
	}
	if reopenDenominator > 0 && m.RCR > rcrAlertThreshold {
		s.emitter.Emit(ctx, m.OfficerID, domain.AlertHighRCR, domain.SeverityHigh,
			fmt.Sprintf("reopened complaint rate %.2f%% exceeds %.0f%% on %s", m.RCR, rcrAlertThreshold, date))
	}
	if assignedTotal > 0 && m.VCR < vcrAlertThreshold {
		s.emitter.Emit(ctx, m.OfficerID, domain.AlertLowVCR, domain.SeverityHigh,
			fmt.Sprintf("verification compliance %.2f%% below %.0f%% on %s", m.VCR, vcrAlertThreshold, date))
	}
	if actionTotal > 0 && m.OffHoursRate > offHoursAlertThreshold {
		s.emitter.Emit(ctx, m.OfficerID, domain.AlertHighOffHoursActivity, domain.SeverityHigh,
			fmt.Sprintf("off-hours activity %.2f%% exceeds %.0f%% on %s", m.OffHoursRate, offHoursAlertThreshold, date))
	}
	if m.VAS < vasAlertThreshold {
		s.emitter.Emit(ctx, m.OfficerID, domain.AlertVelocityAnomaly, domain.SeverityCritical,
			fmt.Sprintf("resolution velocity z-score %.2f below %.1f on %s", m.VAS, vasAlertThreshold, date))
	}
}

func (s *KPIService) countComputation(result string) {
	if s.obs != nil {
		s.obs.KPIComputationsTotal.WithLabelValues(result).Inc()
	}
}

// computeCRR 按期办结率 = 期限内办结数 / 派单总数 × 100
func computeCRR(complaints []*domain.Complaint) float64 {
	if len(complaints) == 0 {
		return 0
	}
	withinSLA := 0
	for _, c := range complaints {
		if c.ResolvedAt == nil {
			continue
		}
		if c.SLADeadline == nil || !c.ResolvedAt.After(*c.SLADeadline) {
			withinSLA++
		}
	}
	return float64(withinSLA) / float64(len(complaints)) * 100
}

// computeART 平均办结耗时（秒），只统计已办结工单
func computeART(complaints []*domain.Complaint) float64 {
	total := 0.0
	count := 0
	for _, c := range complaints {
		if c.ResolvedAt == nil || c.AssignedAt == nil {
			continue
		}
		total += c.ResolvedAt.Sub(*c.AssignedAt).Seconds()
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// computeFRT 平均首次响应耗时（秒）
func computeFRT(complaints []*domain.Complaint) float64 {
	total := 0.0
	count := 0
	for _, c := range complaints {
		if c.FirstActionAt == nil || c.AssignedAt == nil {
			continue
		}
		total += c.FirstActionAt.Sub(*c.AssignedAt).Seconds()
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// computeCSS 市民满意度均分
func computeCSS(feedback []*domain.Feedback) float64 {
	if len(feedback) == 0 {
		return 0
	}
	total := 0
	for _, f := range feedback {
		total += f.SatisfactionScore
	}
	return float64(total) / float64(len(feedback))
}

// computeRCR 重开率 = 重开数 / (办结数 + 重开数) × 100
func computeRCR(complaints []*domain.Complaint) (rcr float64, resolved, reopened int) {
	for _, c := range complaints {
		if c.Reopened {
			reopened++
		} else if c.ResolvedAt != nil {
			resolved++
		}
	}
	denominator := resolved + reopened
	if denominator == 0 {
		return 0, resolved, reopened
	}
	return float64(reopened) / float64(denominator) * 100, resolved, reopened
}

// computeVCR 取证合规率 = 有现场取证的工单数 / 派单总数 × 100
func computeVCR(complaints []*domain.Complaint) float64 {
	if len(complaints) == 0 {
		return 0
	}
	verified := 0
	for _, c := range complaints {
		if strings.TrimSpace(c.GeoProofRef) != "" {
			verified++
		}
	}
	return float64(verified) / float64(len(complaints)) * 100
}

// computeOffHoursRate 非工作时段操作占比
func computeOffHoursRate(actions []*domain.OfficerAction) float64 {
	if len(actions) == 0 {
		return 0
	}
	offHours := 0
	for _, a := range actions {
		if isOffHours(a.ActionAt) {
			offHours++
		}
	}
	return float64(offHours) / float64(len(actions)) * 100
}

// isOffHours 判断时间是否处于非工作时段
func isOffHours(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return true
	}
	return t.Hour() < workDayStartHour || t.Hour() >= workDayEndHour
}

// computeVAS 办结速度异常分：人员当日平均办结耗时相对部门均值的 z-score。
// 部门同日办结人员不足 2 人或标准差为零时返回 0。
func computeVAS(officerID string, departmentResolved []*domain.Complaint) float64 {
	totals := make(map[string]float64)
	counts := make(map[string]int)
	for _, c := range departmentResolved {
		if c.ResolvedAt == nil || c.AssignedAt == nil || c.AssignedOfficerID == "" {
			continue
		}
		totals[c.AssignedOfficerID] += c.ResolvedAt.Sub(*c.AssignedAt).Seconds()
		counts[c.AssignedOfficerID]++
	}

	if counts[officerID] == 0 || len(counts) < 2 {
		return 0
	}

	averages := make([]float64, 0, len(counts))
	var officerAvg float64
	for id, total := range totals {
		avg := total / float64(counts[id])
		averages = append(averages, avg)
		if id == officerID {
			officerAvg = avg
		}
	}

	mean, err := stats.Mean(averages)
	if err != nil {
		return 0
	}
	stddev, err := stats.StandardDeviation(averages)
	if err != nil || stddev == 0 {
		return 0
	}
	return (officerAvg - mean) / stddev
}

// truncateToDay 截断到自然日零点
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
