package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/civicpulse/accountability/internal/analytics/domain"
	"github.com/civicpulse/accountability/pkg/db"
)

// AnalyticsRepository 基于 GORM 的仓储实现，覆盖全部领域仓储接口
type AnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建仓储实例
func NewAnalyticsRepository(gdb *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: gdb}
}

// dayRange 返回日期对应自然日的 [起, 止) 区间
func dayRange(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start, start.Add(24 * time.Hour)
}

func (r *AnalyticsRepository) ListOfficers(ctx context.Context) ([]*domain.Officer, error) {
	var officers []*domain.Officer
	err := r.db.WithContext(ctx).Find(&officers).Error
	return officers, err
}

func (r *AnalyticsRepository) ListOfficersByDistrict(ctx context.Context, district string) ([]*domain.Officer, error) {
	var officers []*domain.Officer
	err := r.db.WithContext(ctx).Where("district = ?", district).Find(&officers).Error
	return officers, err
}

func (r *AnalyticsRepository) GetComplaint(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	var complaint domain.Complaint
	err := r.db.WithContext(ctx).Where("complaint_id = ?", complaintID).First(&complaint).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *AnalyticsRepository) ListComplaintsAssigned(ctx context.Context, officerID string, date time.Time) ([]*domain.Complaint, error) {
	start, end := dayRange(date)
	var complaints []*domain.Complaint
	err := r.db.WithContext(ctx).
		Where("assigned_officer_id = ? AND assigned_at >= ? AND assigned_at < ?", officerID, start, end).
		Find(&complaints).Error
	return complaints, err
}

func (r *AnalyticsRepository) ListComplaintsResolvedBetween(ctx context.Context, officerID string, from, to time.Time) ([]*domain.Complaint, error) {
	var complaints []*domain.Complaint
	err := r.db.WithContext(ctx).
		Where("assigned_officer_id = ? AND resolved_at >= ? AND resolved_at < ?", officerID, from, to).
		Order("resolved_at ASC").
		Find(&complaints).Error
	return complaints, err
}

func (r *AnalyticsRepository) LastComplaintResolvedBefore(ctx context.Context, officerID string, before time.Time) (*domain.Complaint, error) {
	var complaint domain.Complaint
	err := r.db.WithContext(ctx).
		Where("assigned_officer_id = ? AND resolved_at IS NOT NULL AND resolved_at < ?", officerID, before).
		Order("resolved_at DESC").
		First(&complaint).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *AnalyticsRepository) CountComplaintsResolvedBetween(ctx context.Context, officerID string, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Complaint{}).
		Where("assigned_officer_id = ? AND resolved_at >= ? AND resolved_at < ?", officerID, from, to).
		Count(&count).Error
	return count, err
}

func (r *AnalyticsRepository) ListComplaintsResolvedOn(ctx context.Context, date time.Time) ([]*domain.Complaint, error) {
	start, end := dayRange(date)
	var complaints []*domain.Complaint
	err := r.db.WithContext(ctx).
		Where("resolved_at >= ? AND resolved_at < ?", start, end).
		Find(&complaints).Error
	return complaints, err
}

func (r *AnalyticsRepository) ListFeedback(ctx context.Context, officerID string, date time.Time) ([]*domain.Feedback, error) {
	start, _ := dayRange(date)
	var feedback []*domain.Feedback
	err := r.db.WithContext(ctx).
		Where("officer_id = ? AND feedback_date = ?", officerID, start).
		Find(&feedback).Error
	return feedback, err
}

func (r *AnalyticsRepository) ListActions(ctx context.Context, officerID string, date time.Time) ([]*domain.OfficerAction, error) {
	start, end := dayRange(date)
	var actions []*domain.OfficerAction
	err := r.db.WithContext(ctx).
		Where("officer_id = ? AND action_at >= ? AND action_at < ?", officerID, start, end).
		Find(&actions).Error
	return actions, err
}

func (r *AnalyticsRepository) CountApprovals(ctx context.Context, complaintID string, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.FundApproval{}).
		Where("complaint_id = ? AND status = ?", complaintID, status).
		Count(&count).Error
	return count, err
}

func (r *AnalyticsRepository) ListTransfersBetween(ctx context.Context, from, to time.Time) ([]*domain.ComplaintTransfer, error) {
	var transfers []*domain.ComplaintTransfer
	err := r.db.WithContext(ctx).
		Where("transferred_at >= ? AND transferred_at < ?", from, to).
		Order("transferred_at ASC").
		Find(&transfers).Error
	return transfers, err
}

func (r *AnalyticsRepository) UpsertMetric(ctx context.Context, metric *domain.OfficerPerformanceMetric) error {
	return db.UpsertWithConflict(ctx, r.db, metric,
		[]string{"officer_id", "metric_date"},
		[]string{"crr", "art_seconds", "frt_seconds", "css", "rcr", "vcr", "off_hours_rate", "vas", "updated_at"},
	)
}

func (r *AnalyticsRepository) GetMetric(ctx context.Context, officerID string, date time.Time) (*domain.OfficerPerformanceMetric, error) {
	start, _ := dayRange(date)
	var metric domain.OfficerPerformanceMetric
	err := r.db.WithContext(ctx).
		Where("officer_id = ? AND metric_date = ?", officerID, start).
		First(&metric).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &metric, nil
}

func (r *AnalyticsRepository) ListMetricsRange(ctx context.Context, officerID string, from, to time.Time) ([]*domain.OfficerPerformanceMetric, error) {
	var metrics []*domain.OfficerPerformanceMetric
	err := r.db.WithContext(ctx).
		Where("officer_id = ? AND metric_date >= ? AND metric_date < ?", officerID, from, to).
		Order("metric_date ASC").
		Find(&metrics).Error
	return metrics, err
}

func (r *AnalyticsRepository) ListMetricsByDate(ctx context.Context, date time.Time) ([]*domain.OfficerPerformanceMetric, error) {
	start, _ := dayRange(date)
	var metrics []*domain.OfficerPerformanceMetric
	err := r.db.WithContext(ctx).
		Where("metric_date = ?", start).
		Find(&metrics).Error
	return metrics, err
}

// UpsertIndicator 合并欺诈信号。冲突时计数累加、分数取最大、比例替换。
func (r *AnalyticsRepository) UpsertIndicator(ctx context.Context, indicator *domain.FraudDetectionIndicator) error {
	return db.UpsertWithAssignments(ctx, r.db, indicator,
		[]string{"officer_id", "indicator_date"},
		map[string]interface{}{
			"z_score":                 gorm.Expr("GREATEST(z_score, VALUES(z_score))"),
			"max_similarity":          gorm.Expr("GREATEST(max_similarity, VALUES(max_similarity))"),
			"similar_remark_count":    gorm.Expr("similar_remark_count + VALUES(similar_remark_count)"),
			"ghost_beneficiary_pct":   gorm.Expr("VALUES(ghost_beneficiary_pct)"),
			"off_hours_approval_rate": gorm.Expr("VALUES(off_hours_approval_rate)"),
			"geofence_violation_rate": gorm.Expr("VALUES(geofence_violation_rate)"),
			"updated_at":              gorm.Expr("VALUES(updated_at)"),
		},
	)
}

func (r *AnalyticsRepository) ListIndicatorsRange(ctx context.Context, officerID string, from, to time.Time) ([]*domain.FraudDetectionIndicator, error) {
	var indicators []*domain.FraudDetectionIndicator
	err := r.db.WithContext(ctx).
		Where("officer_id = ? AND indicator_date >= ? AND indicator_date < ?", officerID, from, to).
		Order("indicator_date ASC").
		Find(&indicators).Error
	return indicators, err
}

func (r *AnalyticsRepository) SaveAlert(ctx context.Context, alert *domain.FraudAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *AnalyticsRepository) ListAlerts(ctx context.Context, officerID string, status string, severity domain.Severity) ([]*domain.FraudAlert, error) {
	query := r.db.WithContext(ctx)
	if officerID != "" {
		query = query.Where("officer_id = ?", officerID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}
	var alerts []*domain.FraudAlert
	err := query.Order("created_at DESC").Find(&alerts).Error
	return alerts, err
}

func (r *AnalyticsRepository) UpdateAlertStatus(ctx context.Context, alertID string, status string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.FraudAlert{}).
		Where("alert_id = ?", alertID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *AnalyticsRepository) SaveRiskScore(ctx context.Context, score *domain.RiskScore) error {
	return r.db.WithContext(ctx).Create(score).Error
}

func (r *AnalyticsRepository) GetLatestRiskScore(ctx context.Context, officerID string) (*domain.RiskScore, error) {
	var score domain.RiskScore
	err := r.db.WithContext(ctx).
		Where("officer_id = ?", officerID).
		Order("assessed_at DESC").
		First(&score).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}
