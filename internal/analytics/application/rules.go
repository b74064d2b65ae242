package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/civicpulse/accountability/internal/analytics/domain"
)

// 实时规则阈值
const (
	impossibleResolutionSeconds = 300.0
	requiredApprovalCount       = 2
	velocityWindow              = time.Hour
	velocityThreshold           = 10
	minRemarkLength             = 20
)

// largeFundThreshold 大额资金阈值（货币单位）
var largeFundThreshold = decimal.NewFromInt(100000)

// RuleEngine 第一层：实时规则过滤。
// 工单办结时逐条评估固定规则，多条规则可同时命中并各自产生告警。
type RuleEngine struct {
	records domain.RecordRepository
	emitter *AlertEmitter
	logger  *slog.Logger
}

// NewRuleEngine 创建规则引擎
func NewRuleEngine(records domain.RecordRepository, emitter *AlertEmitter, logger *slog.Logger) *RuleEngine {
	return &RuleEngine{
		records: records,
		emitter: emitter,
		logger:  logger,
	}
}

// InspectResolution 对单个已办结工单执行全部实时规则，返回命中的告警类型
func (e *RuleEngine) InspectResolution(ctx context.Context, complaint *domain.Complaint) ([]domain.AlertType, error) {
	if complaint == nil {
		return nil, fmt.Errorf("complaint is nil")
	}

	var fired []domain.AlertType

	if e.checkImpossibleResolution(ctx, complaint) {
		fired = append(fired, domain.AlertImpossibleResolution)
	}

	insufficient, err := e.checkInsufficientAuthorization(ctx, complaint)
	if err != nil {
		return fired, err
	}
	if insufficient {
		fired = append(fired, domain.AlertInsufficientAuthorization)
	}

	velocity, err := e.checkVelocityAnomaly(ctx, complaint)
	if err != nil {
		return fired, err
	}
	if velocity {
		fired = append(fired, domain.AlertVelocityAnomaly)
	}

	if e.checkInsufficientDocumentation(ctx, complaint) {
		fired = append(fired, domain.AlertInsufficientDocumentation)
	}

	return fired, nil
}

// checkImpossibleResolution 基础设施类工单在 300 秒内办结，物理上不可能
func (e *RuleEngine) checkImpossibleResolution(ctx context.Context, c *domain.Complaint) bool {
	if !c.IsInfrastructureClass() {
		return false
	}
	// 零耗时办结同样触发，只有时间戳缺失才视为未办结
	if c.ResolvedAt == nil || c.AssignedAt == nil {
		return false
	}
	seconds := c.ResolutionSeconds()
	if seconds >= impossibleResolutionSeconds {
		return false
	}
	e.emitter.Emit(ctx, c.AssignedOfficerID, domain.AlertImpossibleResolution, domain.SeverityHigh,
		fmt.Sprintf("infrastructure complaint %s resolved in %.0fs", c.ComplaintID, seconds))
	return true
}

// checkInsufficientAuthorization 大额资金但审批记录不足
func (e *RuleEngine) checkInsufficientAuthorization(ctx context.Context, c *domain.Complaint) (bool, error) {
	if !c.FundAmount.GreaterThan(largeFundThreshold) {
		return false, nil
	}
	approvals, err := e.records.CountApprovals(ctx, c.ComplaintID, domain.ApprovalStatusApproved)
	if err != nil {
		return false, fmt.Errorf("failed to count approvals: %w", err)
	}
	if approvals >= requiredApprovalCount {
		return false, nil
	}
	e.emitter.Emit(ctx, c.AssignedOfficerID, domain.AlertInsufficientAuthorization, domain.SeverityHigh,
		fmt.Sprintf("complaint %s fund amount %s approved by %d of %d required approvers",
			c.ComplaintID, c.FundAmount.String(), approvals, requiredApprovalCount))
	return true, nil
}

// checkVelocityAnomaly 以本次办结时间为终点的 1 小时窗口内办结数达到阈值
func (e *RuleEngine) checkVelocityAnomaly(ctx context.Context, c *domain.Complaint) (bool, error) {
	if c.ResolvedAt == nil {
		return false, nil
	}
	windowEnd := c.ResolvedAt.Add(time.Nanosecond)
	windowStart := c.ResolvedAt.Add(-velocityWindow)
	count, err := e.records.CountComplaintsResolvedBetween(ctx, c.AssignedOfficerID, windowStart, windowEnd)
	if err != nil {
		return false, fmt.Errorf("failed to count resolutions in window: %w", err)
	}
	if count < velocityThreshold {
		return false, nil
	}
	e.emitter.Emit(ctx, c.AssignedOfficerID, domain.AlertVelocityAnomaly, domain.SeverityCritical,
		fmt.Sprintf("%d complaints resolved within 1h ending %s", count, c.ResolvedAt.Format(time.RFC3339)))
	return true, nil
}

// checkInsufficientDocumentation 办结说明过短
func (e *RuleEngine) checkInsufficientDocumentation(ctx context.Context, c *domain.Complaint) bool {
	remarks := strings.TrimSpace(c.ResolutionText)
	if len([]rune(remarks)) >= minRemarkLength {
		return false
	}
	e.emitter.Emit(ctx, c.AssignedOfficerID, domain.AlertInsufficientDocumentation, domain.SeverityMedium,
		fmt.Sprintf("complaint %s resolution remarks only %d characters", c.ComplaintID, len([]rune(remarks))))
	return true
}
