package domain

import (
	"time"

	"gorm.io/gorm"
)

// OfficerPerformanceMetric 人员绩效指标快照
// 每个 (officer, date) 唯一一行，重算时整行覆盖
type OfficerPerformanceMetric struct {
	gorm.Model
	// OfficerID 人员编号
	OfficerID string `gorm:"column:officer_id;type:varchar(32);uniqueIndex:uk_officer_metric_date;not null"`
	// MetricDate 指标日期
	MetricDate time.Time `gorm:"column:metric_date;type:date;uniqueIndex:uk_officer_metric_date;not null"`
	// CRR 工单按期办结率（%）
	CRR float64 `gorm:"column:crr;not null;default:0"`
	// ARTSeconds 平均办结耗时（秒）
	ARTSeconds float64 `gorm:"column:art_seconds;not null;default:0"`
	// FRTSeconds 平均首次响应耗时（秒）
	FRTSeconds float64 `gorm:"column:frt_seconds;not null;default:0"`
	// CSS 市民满意度均分 1-5
	CSS float64 `gorm:"column:css;not null;default:0"`
	// RCR 工单重开率（%）
	RCR float64 `gorm:"column:rcr;not null;default:0"`
	// VCR 现场取证合规率（%）
	VCR float64 `gorm:"column:vcr;not null;default:0"`
	// OffHoursRate 非工作时段操作占比（%）
	OffHoursRate float64 `gorm:"column:off_hours_rate;not null;default:0"`
	// VAS 办结速度异常分（相对同日部门均值的 z-score）
	VAS float64 `gorm:"column:vas;not null;default:0"`
}

func (OfficerPerformanceMetric) TableName() string { return "officer_performance_metrics" }

// FraudDetectionIndicator 欺诈检测派生信号
// 每个 (officer, date) 唯一一行；计数类字段累加，分数类字段取最大值
type FraudDetectionIndicator struct {
	gorm.Model
	// OfficerID 人员编号
	OfficerID string `gorm:"column:officer_id;type:varchar(32);uniqueIndex:uk_officer_indicator_date;not null"`
	// IndicatorDate 信号日期
	IndicatorDate time.Time `gorm:"column:indicator_date;type:date;uniqueIndex:uk_officer_indicator_date;not null"`
	// ZScore 相对部门均值的 z-score（取最大值）
	ZScore float64 `gorm:"column:z_score;not null;default:0"`
	// MaxSimilarity 办结说明最大相似度（取最大值）
	MaxSimilarity float64 `gorm:"column:max_similarity;not null;default:0"`
	// SimilarRemarkCount 高相似办结说明计数（累加）
	SimilarRemarkCount int `gorm:"column:similar_remark_count;not null;default:0"`
	// GhostBeneficiaryPct 疑似空头受益人比例（%）
	GhostBeneficiaryPct float64 `gorm:"column:ghost_beneficiary_pct;not null;default:0"`
	// OffHoursApprovalRate 非工作时段审批比例（%）
	OffHoursApprovalRate float64 `gorm:"column:off_hours_approval_rate;not null;default:0"`
	// GeofenceViolationRate 地理围栏违规比例（%）
	GeofenceViolationRate float64 `gorm:"column:geofence_violation_rate;not null;default:0"`
}

func (FraudDetectionIndicator) TableName() string { return "fraud_detection_indicators" }

// RiskScore 月度预测性风险评分，取值 [0,100]
type RiskScore struct {
	gorm.Model
	// OfficerID 人员编号
	OfficerID string `gorm:"column:officer_id;type:varchar(32);index;not null"`
	// Score 风险评分
	Score float64 `gorm:"column:score;not null"`
	// AssessedAt 评估时间
	AssessedAt time.Time `gorm:"column:assessed_at;index;not null"`
}

func (RiskScore) TableName() string { return "risk_scores" }

// Clamp 将评分收敛到 [0,100]
func (r *RiskScore) Clamp() {
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > 100 {
		r.Score = 100
	}
}
