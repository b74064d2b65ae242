package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// AlertType 告警类型，封闭枚举
type AlertType string

const (
	AlertLowCRR                    AlertType = "LOW_CRR"
	AlertSlowFirstResponse         AlertType = "SLOW_FIRST_RESPONSE"
	AlertLowSatisfaction           AlertType = "LOW_SATISFACTION"
	AlertHighRCR                   AlertType = "HIGH_RCR"
	AlertLowVCR                    AlertType = "LOW_VCR"
	AlertHighOffHoursActivity      AlertType = "HIGH_OFF_HOURS_ACTIVITY"
	AlertVelocityAnomaly           AlertType = "VELOCITY_ANOMALY"
	AlertImpossibleResolution      AlertType = "IMPOSSIBLE_RESOLUTION"
	AlertInsufficientAuthorization AlertType = "INSUFFICIENT_AUTHORIZATION"
	AlertInsufficientDocumentation AlertType = "INSUFFICIENT_DOCUMENTATION"
	AlertStatisticalAnomaly        AlertType = "STATISTICAL_ANOMALY"
	AlertCircularResolutionLoop    AlertType = "CIRCULAR_RESOLUTION_LOOP"
	AlertDuplicateActionPattern    AlertType = "DUPLICATE_ACTION_PATTERN"
	AlertHighFraudRisk             AlertType = "HIGH_FRAUD_RISK"
)

// AllAlertTypes 所有告警类型，供下游做穷举处理
var AllAlertTypes = []AlertType{
	AlertLowCRR,
	AlertSlowFirstResponse,
	AlertLowSatisfaction,
	AlertHighRCR,
	AlertLowVCR,
	AlertHighOffHoursActivity,
	AlertVelocityAnomaly,
	AlertImpossibleResolution,
	AlertInsufficientAuthorization,
	AlertInsufficientDocumentation,
	AlertStatisticalAnomaly,
	AlertCircularResolutionLoop,
	AlertDuplicateActionPattern,
	AlertHighFraudRisk,
}

// Severity 告警级别
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// 告警状态
const (
	AlertStatusOpen     = "OPEN"
	AlertStatusResolved = "RESOLVED"
)

// FraudAlert 欺诈告警事件
// 由任意检测层创建；除状态流转外不可变更
type FraudAlert struct {
	gorm.Model
	// AlertID 告警编号
	AlertID string `gorm:"column:alert_id;type:varchar(40);uniqueIndex;not null"`
	// OfficerID 涉事人员编号
	OfficerID string `gorm:"column:officer_id;type:varchar(32);index;not null"`
	// AlertType 告警类型
	AlertType AlertType `gorm:"column:alert_type;type:varchar(40);index;not null"`
	// Severity 告警级别
	Severity Severity `gorm:"column:severity;type:varchar(10);index;not null"`
	// Description 告警描述
	Description string `gorm:"column:description;type:text;not null"`
	// Status 处理状态
	Status string `gorm:"column:status;type:varchar(10);index;not null;default:'OPEN'"`
}

func (FraudAlert) TableName() string { return "fraud_alerts" }

// NewFraudAlert 构建告警实体
func NewFraudAlert(alertID, officerID string, alertType AlertType, severity Severity, description string) *FraudAlert {
	return &FraudAlert{
		AlertID:     alertID,
		OfficerID:   officerID,
		AlertType:   alertType,
		Severity:    severity,
		Description: description,
		Status:      AlertStatusOpen,
	}
}

// AlertCreatedEvent 告警创建事件，发布到告警流供下游消费
type AlertCreatedEvent struct {
	AlertID     string    `json:"alert_id"`
	OfficerID   string    `json:"officer_id"`
	AlertType   AlertType `json:"alert_type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ComplaintResolvedEvent 工单办结事件，由受理系统发布，触发实时规则检测
type ComplaintResolvedEvent struct {
	ComplaintID string    `json:"complaint_id"`
	OfficerID   string    `json:"officer_id"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// EventPublisher 事件发布接口
type EventPublisher interface {
	PublishAlertCreated(ctx context.Context, event *AlertCreatedEvent) error
}
