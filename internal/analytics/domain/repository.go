package domain

import (
	"context"
	"time"
)

// RecordRepository 原始业务记录的只读访问接口。
// 工单、反馈、操作、审批、移交记录均由外部受理系统写入。
type RecordRepository interface {
	// ListOfficers 列出全部人员
	ListOfficers(ctx context.Context) ([]*Officer, error)
	// ListOfficersByDistrict 列出辖区内人员
	ListOfficersByDistrict(ctx context.Context, district string) ([]*Officer, error)
	// GetComplaint 按编号获取工单
	GetComplaint(ctx context.Context, complaintID string) (*Complaint, error)
	// ListComplaintsAssigned 列出人员在指定日期被派单的工单
	ListComplaintsAssigned(ctx context.Context, officerID string, date time.Time) ([]*Complaint, error)
	// ListComplaintsResolvedBetween 列出人员在时间窗内办结的工单，按办结时间升序
	ListComplaintsResolvedBetween(ctx context.Context, officerID string, from, to time.Time) ([]*Complaint, error)
	// LastComplaintResolvedBefore 获取人员在指定时间之前最近办结的工单，不存在时返回 nil
	LastComplaintResolvedBefore(ctx context.Context, officerID string, before time.Time) (*Complaint, error)
	// CountComplaintsResolvedBetween 统计人员在时间窗内办结的工单数
	CountComplaintsResolvedBetween(ctx context.Context, officerID string, from, to time.Time) (int64, error)
	// ListComplaintsResolvedOn 列出全部门在指定日期办结的工单
	ListComplaintsResolvedOn(ctx context.Context, date time.Time) ([]*Complaint, error)
	// ListFeedback 列出人员在指定日期收到的反馈
	ListFeedback(ctx context.Context, officerID string, date time.Time) ([]*Feedback, error)
	// ListActions 列出人员在指定日期的操作记录
	ListActions(ctx context.Context, officerID string, date time.Time) ([]*OfficerAction, error)
	// CountApprovals 统计工单的指定状态审批记录数
	CountApprovals(ctx context.Context, complaintID string, status string) (int64, error)
	// ListTransfersBetween 列出时间窗内的全部移交记录，按移交时间升序
	ListTransfersBetween(ctx context.Context, from, to time.Time) ([]*ComplaintTransfer, error)
}

// MetricRepository 绩效指标快照仓储接口
type MetricRepository interface {
	// UpsertMetric 以 (officer, date) 为键插入或整行覆盖指标快照
	UpsertMetric(ctx context.Context, metric *OfficerPerformanceMetric) error
	// GetMetric 获取指定 (officer, date) 的指标快照
	GetMetric(ctx context.Context, officerID string, date time.Time) (*OfficerPerformanceMetric, error)
	// ListMetricsRange 列出人员在日期区间内的指标快照，按日期升序
	ListMetricsRange(ctx context.Context, officerID string, from, to time.Time) ([]*OfficerPerformanceMetric, error)
	// ListMetricsByDate 列出指定日期全部人员的指标快照
	ListMetricsByDate(ctx context.Context, date time.Time) ([]*OfficerPerformanceMetric, error)
}

// IndicatorRepository 欺诈信号仓储接口
type IndicatorRepository interface {
	// UpsertIndicator 以 (officer, date) 为键合并信号：
	// 计数字段累加，分数字段取最大值，比例字段替换
	UpsertIndicator(ctx context.Context, indicator *FraudDetectionIndicator) error
	// ListIndicatorsRange 列出人员在日期区间内的信号，按日期升序
	ListIndicatorsRange(ctx context.Context, officerID string, from, to time.Time) ([]*FraudDetectionIndicator, error)
}

// AlertRepository 告警仓储接口
type AlertRepository interface {
	// SaveAlert 保存告警（纯插入，不去重）
	SaveAlert(ctx context.Context, alert *FraudAlert) error
	// ListAlerts 按条件列出告警，空条件表示不过滤
	ListAlerts(ctx context.Context, officerID string, status string, severity Severity) ([]*FraudAlert, error)
	// UpdateAlertStatus 流转告警状态
	UpdateAlertStatus(ctx context.Context, alertID string, status string) error
}

// RiskScoreRepository 风险评分仓储接口
type RiskScoreRepository interface {
	// SaveRiskScore 保存评分（保留历史，最新一条为准）
	SaveRiskScore(ctx context.Context, score *RiskScore) error
	// GetLatestRiskScore 获取人员最新评分
	GetLatestRiskScore(ctx context.Context, officerID string) (*RiskScore, error)
}
