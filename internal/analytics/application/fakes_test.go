package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/civicpulse/accountability/internal/analytics/domain"
)

// fakeStore 内存版仓储，实现全部领域仓储接口，供用例隔离测试
type fakeStore struct {
	mu sync.Mutex

	officers   []*domain.Officer
	complaints []*domain.Complaint
	feedback   []*domain.Feedback
	actions    []*domain.OfficerAction
	approvals  []*domain.FundApproval
	transfers  []*domain.ComplaintTransfer

	metrics    map[string]*domain.OfficerPerformanceMetric
	indicators map[string]*domain.FraudDetectionIndicator
	alerts     []*domain.FraudAlert
	riskScores []*domain.RiskScore

	complaintsErr   map[string]error
	upsertMetricErr error
	saveAlertErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		metrics:       make(map[string]*domain.OfficerPerformanceMetric),
		indicators:    make(map[string]*domain.FraudDetectionIndicator),
		complaintsErr: make(map[string]error),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEmitter(store *fakeStore) *AlertEmitter {
	return NewAlertEmitter(store, nil, nil, discardLogger())
}

func dayKey(officerID string, date time.Time) string {
	return officerID + "|" + date.Format(time.DateOnly)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (s *fakeStore) ListOfficers(_ context.Context) ([]*domain.Officer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Officer(nil), s.officers...), nil
}

func (s *fakeStore) ListOfficersByDistrict(_ context.Context, district string) ([]*domain.Officer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Officer
	for _, o := range s.officers {
		if o.District == district {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeStore) GetComplaint(_ context.Context, complaintID string) (*domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.complaints {
		if c.ComplaintID == complaintID {
			return c, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListComplaintsAssigned(_ context.Context, officerID string, date time.Time) ([]*domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.complaintsErr[officerID]; err != nil {
		return nil, err
	}
	var out []*domain.Complaint
	for _, c := range s.complaints {
		if c.AssignedOfficerID == officerID && c.AssignedAt != nil && sameDay(*c.AssignedAt, date) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) ListComplaintsResolvedBetween(_ context.Context, officerID string, from, to time.Time) ([]*domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Complaint
	for _, c := range s.complaints {
		if c.AssignedOfficerID != officerID || c.ResolvedAt == nil {
			continue
		}
		if c.ResolvedAt.Before(from) || !c.ResolvedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResolvedAt.Before(*out[j].ResolvedAt) })
	return out, nil
}

func (s *fakeStore) LastComplaintResolvedBefore(_ context.Context, officerID string, before time.Time) (*domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *domain.Complaint
	for _, c := range s.complaints {
		if c.AssignedOfficerID != officerID || c.ResolvedAt == nil || !c.ResolvedAt.Before(before) {
			continue
		}
		if last == nil || c.ResolvedAt.After(*last.ResolvedAt) {
			last = c
		}
	}
	return last, nil
}

func (s *fakeStore) CountComplaintsResolvedBetween(ctx context.Context, officerID string, from, to time.Time) (int64, error) {
	resolved, err := s.ListComplaintsResolvedBetween(ctx, officerID, from, to)
	if err != nil {
		return 0, err
	}
	return int64(len(resolved)), nil
}

func (s *fakeStore) ListComplaintsResolvedOn(_ context.Context, date time.Time) ([]*domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Complaint
	for _, c := range s.complaints {
		if c.ResolvedAt != nil && sameDay(*c.ResolvedAt, date) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) ListFeedback(_ context.Context, officerID string, date time.Time) ([]*domain.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Feedback
	for _, f := range s.feedback {
		if f.OfficerID == officerID && sameDay(f.FeedbackDate, date) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) ListActions(_ context.Context, officerID string, date time.Time) ([]*domain.OfficerAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.OfficerAction
	for _, a := range s.actions {
		if a.OfficerID == officerID && sameDay(a.ActionAt, date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) CountApprovals(_ context.Context, complaintID string, status string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, a := range s.approvals {
		if a.ComplaintID == complaintID && a.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) ListTransfersBetween(_ context.Context, from, to time.Time) ([]*domain.ComplaintTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.ComplaintTransfer
	for _, t := range s.transfers {
		if t.TransferredAt.Before(from) || t.TransferredAt.After(to) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransferredAt.Before(out[j].TransferredAt) })
	return out, nil
}

func (s *fakeStore) UpsertMetric(_ context.Context, metric *domain.OfficerPerformanceMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertMetricErr != nil {
		return s.upsertMetricErr
	}
	clone := *metric
	s.metrics[dayKey(metric.OfficerID, metric.MetricDate)] = &clone
	return nil
}

func (s *fakeStore) GetMetric(_ context.Context, officerID string, date time.Time) (*domain.OfficerPerformanceMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[dayKey(officerID, date)]
	if !ok {
		return nil, nil
	}
	clone := *m
	return &clone, nil
}

func (s *fakeStore) ListMetricsRange(_ context.Context, officerID string, from, to time.Time) ([]*domain.OfficerPerformanceMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.OfficerPerformanceMetric
	for _, m := range s.metrics {
		if m.OfficerID != officerID || m.MetricDate.Before(from) || m.MetricDate.After(to) {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricDate.Before(out[j].MetricDate) })
	return out, nil
}

func (s *fakeStore) ListMetricsByDate(_ context.Context, date time.Time) ([]*domain.OfficerPerformanceMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.OfficerPerformanceMetric
	for _, m := range s.metrics {
		if sameDay(m.MetricDate, date) {
			clone := *m
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OfficerID < out[j].OfficerID })
	return out, nil
}

func (s *fakeStore) UpsertIndicator(_ context.Context, indicator *domain.FraudDetectionIndicator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dayKey(indicator.OfficerID, indicator.IndicatorDate)
	existing, ok := s.indicators[key]
	if !ok {
		clone := *indicator
		s.indicators[key] = &clone
		return nil
	}
	if indicator.ZScore > existing.ZScore {
		existing.ZScore = indicator.ZScore
	}
	if indicator.MaxSimilarity > existing.MaxSimilarity {
		existing.MaxSimilarity = indicator.MaxSimilarity
	}
	existing.SimilarRemarkCount += indicator.SimilarRemarkCount
	existing.GhostBeneficiaryPct = indicator.GhostBeneficiaryPct
	existing.OffHoursApprovalRate = indicator.OffHoursApprovalRate
	existing.GeofenceViolationRate = indicator.GeofenceViolationRate
	return nil
}

func (s *fakeStore) ListIndicatorsRange(_ context.Context, officerID string, from, to time.Time) ([]*domain.FraudDetectionIndicator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.FraudDetectionIndicator
	for _, ind := range s.indicators {
		if ind.OfficerID != officerID || ind.IndicatorDate.Before(from) || ind.IndicatorDate.After(to) {
			continue
		}
		clone := *ind
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IndicatorDate.Before(out[j].IndicatorDate) })
	return out, nil
}

func (s *fakeStore) SaveAlert(_ context.Context, alert *domain.FraudAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveAlertErr != nil {
		return s.saveAlertErr
	}
	clone := *alert
	s.alerts = append(s.alerts, &clone)
	return nil
}

func (s *fakeStore) ListAlerts(_ context.Context, officerID string, status string, severity domain.Severity) ([]*domain.FraudAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.FraudAlert
	for _, a := range s.alerts {
		if officerID != "" && a.OfficerID != officerID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		if severity != "" && a.Severity != severity {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	return out, nil
}

func (s *fakeStore) UpdateAlertStatus(_ context.Context, alertID string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.AlertID == alertID {
			a.Status = status
			return nil
		}
	}
	return errors.New("alert not found")
}

func (s *fakeStore) SaveRiskScore(_ context.Context, score *domain.RiskScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *score
	s.riskScores = append(s.riskScores, &clone)
	return nil
}

func (s *fakeStore) GetLatestRiskScore(_ context.Context, officerID string) (*domain.RiskScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.RiskScore
	for _, r := range s.riskScores {
		if r.OfficerID != officerID {
			continue
		}
		if latest == nil || r.AssessedAt.After(latest.AssessedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

// alertsOfType 按类型筛选已持久化的告警
func (s *fakeStore) alertsOfType(alertType domain.AlertType) []*domain.FraudAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.FraudAlert
	for _, a := range s.alerts {
		if a.AlertType == alertType {
			out = append(out, a)
		}
	}
	return out
}

// fakePublisher 记录已发布事件的发布器
type fakePublisher struct {
	mu     sync.Mutex
	events []*domain.AlertCreatedEvent
	err    error
}

func (p *fakePublisher) PublishAlertCreated(_ context.Context, event *domain.AlertCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}
