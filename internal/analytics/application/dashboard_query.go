package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/civicpulse/accountability/internal/analytics/domain"
)

// dashboardCacheTTL 看板查询缓存时长，指标按批更新，短缓存不影响时效
const dashboardCacheTTL = time.Minute

// QueryCache 看板查询缓存能力
type QueryCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// DashboardQueryService 看板只读查询服务。
// 纯聚合已有的指标、告警与风险评分输出，不含检测逻辑。
type DashboardQueryService struct {
	records    domain.RecordRepository
	snapshots  domain.MetricRepository
	indicators domain.IndicatorRepository
	alerts     domain.AlertRepository
	scores     domain.RiskScoreRepository
	cache      QueryCache
	logger     *slog.Logger
}

// NewDashboardQueryService 创建看板查询服务。cache 可为 nil（不启用缓存）。
func NewDashboardQueryService(
	records domain.RecordRepository,
	snapshots domain.MetricRepository,
	indicators domain.IndicatorRepository,
	alerts domain.AlertRepository,
	scores domain.RiskScoreRepository,
	cache QueryCache,
	logger *slog.Logger,
) *DashboardQueryService {
	return &DashboardQueryService{
		records:    records,
		snapshots:  snapshots,
		indicators: indicators,
		alerts:     alerts,
		scores:     scores,
		cache:      cache,
		logger:     logger,
	}
}

// OfficerSummary 人员概览视图
type OfficerSummary struct {
	OfficerID  string                             `json:"officer_id"`
	Metrics    []*domain.OfficerPerformanceMetric `json:"metrics"`
	Indicators []*domain.FraudDetectionIndicator  `json:"indicators"`
	OpenAlerts []*domain.FraudAlert               `json:"open_alerts"`
	RiskScore  *domain.RiskScore                  `json:"risk_score,omitempty"`
}

// GetOfficerSummary 汇总人员在日期区间内的指标、信号、未结告警与最新风险分
func (s *DashboardQueryService) GetOfficerSummary(ctx context.Context, officerID string, from, to time.Time) (*OfficerSummary, error) {
	cacheKey := fmt.Sprintf("dashboard:officer:%s:%s:%s",
		officerID, from.Format(time.DateOnly), to.Format(time.DateOnly))
	var cached OfficerSummary
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	metrics, err := s.snapshots.ListMetricsRange(ctx, officerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}
	indicators, err := s.indicators.ListIndicatorsRange(ctx, officerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load indicators: %w", err)
	}
	openAlerts, err := s.alerts.ListAlerts(ctx, officerID, domain.AlertStatusOpen, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}
	riskScore, err := s.scores.GetLatestRiskScore(ctx, officerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load risk score: %w", err)
	}

	summary := &OfficerSummary{
		OfficerID:  officerID,
		Metrics:    metrics,
		Indicators: indicators,
		OpenAlerts: openAlerts,
		RiskScore:  riskScore,
	}
	s.cacheSet(ctx, cacheKey, summary)
	return summary, nil
}

// DistrictOverview 辖区概览视图
type DistrictOverview struct {
	District     string  `json:"district"`
	Date         string  `json:"date"`
	OfficerCount int     `json:"officer_count"`
	AvgCRR       float64 `json:"avg_crr"`
	AvgCSS       float64 `json:"avg_css"`
	AvgRCR       float64 `json:"avg_rcr"`
	AvgVCR       float64 `json:"avg_vcr"`
	OpenAlerts   int     `json:"open_alerts"`
}

// GetDistrictOverview 按辖区汇总指定日期的平均 KPI 与未结告警数
func (s *DashboardQueryService) GetDistrictOverview(ctx context.Context, district string, date time.Time) (*DistrictOverview, error) {
	cacheKey := fmt.Sprintf("dashboard:district:%s:%s", district, date.Format(time.DateOnly))
	var cached DistrictOverview
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	officers, err := s.records.ListOfficersByDistrict(ctx, district)
	if err != nil {
		return nil, fmt.Errorf("failed to list district officers: %w", err)
	}

	overview := &DistrictOverview{
		District: district,
		Date:     date.Format(time.DateOnly),
	}

	withMetrics := 0
	for _, officer := range officers {
		metric, err := s.snapshots.GetMetric(ctx, officer.OfficerID, date)
		if err != nil {
			return nil, fmt.Errorf("failed to load metric for %s: %w", officer.OfficerID, err)
		}
		if metric != nil {
			withMetrics++
			overview.AvgCRR += metric.CRR
			overview.AvgCSS += metric.CSS
			overview.AvgRCR += metric.RCR
			overview.AvgVCR += metric.VCR
		}

		openAlerts, err := s.alerts.ListAlerts(ctx, officer.OfficerID, domain.AlertStatusOpen, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load alerts for %s: %w", officer.OfficerID, err)
		}
		overview.OpenAlerts += len(openAlerts)
	}

	overview.OfficerCount = len(officers)
	if withMetrics > 0 {
		overview.AvgCRR /= float64(withMetrics)
		overview.AvgCSS /= float64(withMetrics)
		overview.AvgRCR /= float64(withMetrics)
		overview.AvgVCR /= float64(withMetrics)
	}
	s.cacheSet(ctx, cacheKey, overview)
	return overview, nil
}

// GetAlertFeed 按状态与级别过滤的告警列表
func (s *DashboardQueryService) GetAlertFeed(ctx context.Context, status string, severity domain.Severity) ([]*domain.FraudAlert, error) {
	return s.alerts.ListAlerts(ctx, "", status, severity)
}

// ResolveAlert 将告警流转为已处理
func (s *DashboardQueryService) ResolveAlert(ctx context.Context, alertID string) error {
	return s.alerts.UpdateAlertStatus(ctx, alertID, domain.AlertStatusResolved)
}

// cacheGet 缓存读取，失败降级为未命中
func (s *DashboardQueryService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.GetJSON(ctx, key, dest)
	if err != nil {
		s.logger.WarnContext(ctx, "dashboard cache read failed", "key", key, "error", err)
		return false
	}
	return hit
}

// cacheSet 缓存写入，失败只记录日志
func (s *DashboardQueryService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value, dashboardCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "dashboard cache write failed", "key", key, "error", err)
	}
}
