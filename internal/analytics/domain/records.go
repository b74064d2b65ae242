// 包 officer 绩效与欺诈检测引擎的领域模型
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 工单状态
const (
	ComplaintStatusFiled      = "filed"
	ComplaintStatusAssigned   = "assigned"
	ComplaintStatusInProgress = "in_progress"
	ComplaintStatusResolved   = "resolved"
	ComplaintStatusReopened   = "reopened"
	ComplaintStatusClosed     = "closed"
)

// 资金审批状态
const (
	ApprovalStatusApproved = "APPROVED"
	ApprovalStatusPending  = "PENDING"
	ApprovalStatusRejected = "REJECTED"
)

// infrastructureCategories 基础设施类工单类别。
// 该类工单需要实地作业，几分钟内办结在物理上不可能。
var infrastructureCategories = map[string]bool{
	"infrastructure": true,
	"roads":          true,
	"water_supply":   true,
	"electricity":    true,
	"drainage":       true,
}

// Officer 办事人员实体
type Officer struct {
	gorm.Model
	// OfficerID 人员编号
	OfficerID string `gorm:"column:officer_id;type:varchar(32);uniqueIndex;not null"`
	// Name 姓名
	Name string `gorm:"column:name;type:varchar(100);not null"`
	// District 所属辖区
	District string `gorm:"column:district;type:varchar(64);index;not null"`
}

func (Officer) TableName() string { return "officers" }

// Complaint 投诉工单实体
// 由外部受理系统创建，经人员处置后在状态机中流转，永不删除
type Complaint struct {
	gorm.Model
	// ComplaintID 工单编号
	ComplaintID string `gorm:"column:complaint_id;type:varchar(32);uniqueIndex;not null"`
	// Category 工单类别
	Category string `gorm:"column:category;type:varchar(50);index;not null"`
	// AssignedOfficerID 承办人员编号
	AssignedOfficerID string `gorm:"column:assigned_officer_id;type:varchar(32);index"`
	// AssignedAt 派单时间
	AssignedAt *time.Time `gorm:"column:assigned_at;index"`
	// FirstActionAt 首次处置时间
	FirstActionAt *time.Time `gorm:"column:first_action_at"`
	// ResolvedAt 办结时间
	ResolvedAt *time.Time `gorm:"column:resolved_at;index"`
	// ClosedAt 关闭时间
	ClosedAt *time.Time `gorm:"column:closed_at"`
	// Status 工单状态
	Status string `gorm:"column:status;type:varchar(20);index;not null;default:'filed'"`
	// FundAmount 涉及资金金额
	FundAmount decimal.Decimal `gorm:"column:fund_amount;type:decimal(18,2);not null;default:0"`
	// ResolutionText 办结说明
	ResolutionText string `gorm:"column:resolution_text;type:text"`
	// GeoProofRef 现场取证引用
	GeoProofRef string `gorm:"column:geo_proof_ref;type:varchar(255)"`
	// Reopened 是否被重开
	Reopened bool `gorm:"column:reopened;not null;default:false"`
	// SLADeadline 服务时限
	SLADeadline *time.Time `gorm:"column:sla_deadline"`
}

func (Complaint) TableName() string { return "complaints" }

// IsInfrastructureClass 判断工单是否属于基础设施类
func (c *Complaint) IsInfrastructureClass() bool {
	return infrastructureCategories[c.Category]
}

// ResolutionSeconds 办结耗时（秒），未办结返回 0
func (c *Complaint) ResolutionSeconds() float64 {
	if c.ResolvedAt == nil || c.AssignedAt == nil {
		return 0
	}
	return c.ResolvedAt.Sub(*c.AssignedAt).Seconds()
}

// Feedback 市民满意度反馈记录
type Feedback struct {
	gorm.Model
	// OfficerID 被评价人员编号
	OfficerID string `gorm:"column:officer_id;type:varchar(32);index;not null"`
	// FeedbackDate 反馈日期
	FeedbackDate time.Time `gorm:"column:feedback_date;type:date;index;not null"`
	// SatisfactionScore 满意度评分 1-5
	SatisfactionScore int `gorm:"column:satisfaction_score;not null"`
}

func (Feedback) TableName() string { return "feedbacks" }

// OfficerAction 人员操作审计记录，用于工作时段分析
type OfficerAction struct {
	gorm.Model
	// OfficerID 操作人员编号
	OfficerID string `gorm:"column:officer_id;type:varchar(32);index;not null"`
	// ActionAt 操作时间
	ActionAt time.Time `gorm:"column:action_at;index;not null"`
}

func (OfficerAction) TableName() string { return "officer_actions" }

// FundApproval 资金审批记录
type FundApproval struct {
	gorm.Model
	// ComplaintID 关联工单编号
	ComplaintID string `gorm:"column:complaint_id;type:varchar(32);index;not null"`
	// Status 审批状态
	Status string `gorm:"column:status;type:varchar(20);not null"`
}

func (FundApproval) TableName() string { return "fund_approvals" }

// ComplaintTransfer 工单移交记录，构成流转图谱的有向边
type ComplaintTransfer struct {
	gorm.Model
	// ComplaintID 关联工单编号
	ComplaintID string `gorm:"column:complaint_id;type:varchar(32);index;not null"`
	// FromOfficerID 移出人员编号
	FromOfficerID string `gorm:"column:from_officer_id;type:varchar(32);index;not null"`
	// ToOfficerID 接收人员编号
	ToOfficerID string `gorm:"column:to_officer_id;type:varchar(32);index;not null"`
	// TransferredAt 移交时间
	TransferredAt time.Time `gorm:"column:transferred_at;index;not null"`
}

func (ComplaintTransfer) TableName() string { return "complaint_transfers" }
