package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/civicpulse/accountability/internal/analytics/application"
	"github.com/civicpulse/accountability/internal/analytics/domain"
)

// ResolutionHandler 消费工单办结事件并触发第一层实时规则检测
type ResolutionHandler struct {
	records domain.RecordRepository
	rules   *application.RuleEngine
	logger  *slog.Logger
}

// NewResolutionHandler 创建办结事件处理器
func NewResolutionHandler(records domain.RecordRepository, rules *application.RuleEngine, logger *slog.Logger) *ResolutionHandler {
	return &ResolutionHandler{
		records: records,
		rules:   rules,
		logger:  logger,
	}
}

// Handle 处理单条办结事件
func (h *ResolutionHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event domain.ComplaintResolvedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal resolution event", "error", err)
		return err
	}
	if event.ComplaintID == "" {
		h.logger.WarnContext(ctx, "resolution event missing complaint_id")
		return nil
	}

	complaint, err := h.records.GetComplaint(ctx, event.ComplaintID)
	if err != nil {
		return err
	}
	if complaint == nil {
		h.logger.WarnContext(ctx, "resolved complaint not found", "complaint_id", event.ComplaintID)
		return nil
	}

	fired, err := h.rules.InspectResolution(ctx, complaint)
	if err != nil {
		return err
	}
	if len(fired) > 0 {
		h.logger.InfoContext(ctx, "real-time rules fired",
			"complaint_id", complaint.ComplaintID,
			"officer_id", complaint.AssignedOfficerID,
			"rules", fired,
		)
	}
	return nil
}
