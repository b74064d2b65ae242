package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/accountability/internal/analytics/domain"
)

func TestEmitPersistsAndPublishes(t *testing.T) {
	store := newFakeStore()
	publisher := &fakePublisher{}
	emitter := NewAlertEmitter(store, publisher, nil, discardLogger())

	emitter.Emit(context.Background(), "off_a", domain.AlertHighFraudRisk, domain.SeverityHigh, "risk score 82")

	require.Len(t, store.alerts, 1)
	alert := store.alerts[0]
	assert.NotEmpty(t, alert.AlertID)
	assert.Equal(t, "off_a", alert.OfficerID)
	assert.Equal(t, domain.AlertStatusOpen, alert.Status)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, alert.AlertID, publisher.events[0].AlertID)
	assert.Equal(t, domain.AlertHighFraudRisk, publisher.events[0].AlertType)
}

func TestEmitUniqueAlertIDs(t *testing.T) {
	store := newFakeStore()
	emitter := newTestEmitter(store)

	emitter.Emit(context.Background(), "off_a", domain.AlertLowCRR, domain.SeverityMedium, "first")
	emitter.Emit(context.Background(), "off_a", domain.AlertLowCRR, domain.SeverityMedium, "second")

	require.Len(t, store.alerts, 2, "duplicate conditions still produce separate alerts")
	assert.NotEqual(t, store.alerts[0].AlertID, store.alerts[1].AlertID)
}

func TestEmitSwallowsPersistFailure(t *testing.T) {
	store := newFakeStore()
	store.saveAlertErr = errors.New("alerts table unavailable")
	publisher := &fakePublisher{}
	emitter := NewAlertEmitter(store, publisher, nil, discardLogger())

	// 持久化失败不外抛，也不发布半成品事件
	emitter.Emit(context.Background(), "off_a", domain.AlertLowCRR, domain.SeverityMedium, "desc")

	assert.Empty(t, store.alerts)
	assert.Empty(t, publisher.events)
}

func TestEmitSwallowsPublishFailure(t *testing.T) {
	store := newFakeStore()
	publisher := &fakePublisher{err: errors.New("broker unreachable")}
	emitter := NewAlertEmitter(store, publisher, nil, discardLogger())

	emitter.Emit(context.Background(), "off_a", domain.AlertLowCRR, domain.SeverityMedium, "desc")

	// 发布失败不影响已持久化的告警
	assert.Len(t, store.alerts, 1)
}

func TestEmitWithoutPublisher(t *testing.T) {
	store := newFakeStore()
	emitter := NewAlertEmitter(store, nil, nil, discardLogger())

	emitter.Emit(context.Background(), "off_a", domain.AlertLowCRR, domain.SeverityMedium, "desc")
	assert.Len(t, store.alerts, 1)
}
