package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/civicpulse/accountability/internal/analytics/domain"
	pkgmetrics "github.com/civicpulse/accountability/pkg/metrics"
)

// AlertEmitter 统一的告警出口。
// 告警是计算成功后的副作用，持久化或发布失败只记录日志与指标，
// 不向调用方返回错误，避免告警故障拖垮指标计算。
type AlertEmitter struct {
	alerts    domain.AlertRepository
	publisher domain.EventPublisher
	obs       *pkgmetrics.Metrics
	logger    *slog.Logger
}

// NewAlertEmitter 创建告警出口。publisher 可为 nil（不发布事件流）。
func NewAlertEmitter(alerts domain.AlertRepository, publisher domain.EventPublisher, obs *pkgmetrics.Metrics, logger *slog.Logger) *AlertEmitter {
	return &AlertEmitter{
		alerts:    alerts,
		publisher: publisher,
		obs:       obs,
		logger:    logger,
	}
}

// Emit 创建并持久化一条告警，同一人员同一条件重复触发会产生多条告警（至少一次语义）
func (e *AlertEmitter) Emit(ctx context.Context, officerID string, alertType domain.AlertType, severity domain.Severity, description string) {
	alert := domain.NewFraudAlert(
		"alert_"+uuid.NewString(),
		officerID,
		alertType,
		severity,
		description,
	)

	if err := e.alerts.SaveAlert(ctx, alert); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist fraud alert",
			"officer_id", officerID,
			"alert_type", alertType,
			"error", err,
		)
		if e.obs != nil {
			e.obs.AlertPersistFailures.Inc()
		}
		return
	}

	if e.obs != nil {
		e.obs.AlertsEmittedTotal.WithLabelValues(string(alertType), string(severity)).Inc()
	}

	e.logger.InfoContext(ctx, "fraud alert emitted",
		"officer_id", officerID,
		"alert_type", alertType,
		"severity", severity,
	)

	if e.publisher == nil {
		return
	}
	event := &domain.AlertCreatedEvent{
		AlertID:     alert.AlertID,
		OfficerID:   alert.OfficerID,
		AlertType:   alert.AlertType,
		Severity:    alert.Severity,
		Description: alert.Description,
		CreatedAt:   time.Now(),
	}
	if err := e.publisher.PublishAlertCreated(ctx, event); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish alert event",
			"alert_id", alert.AlertID,
			"error", err,
		)
	}
}
