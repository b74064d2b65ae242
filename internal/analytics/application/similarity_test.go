package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/accountability/internal/analytics/domain"
)

const templateNarrative = "Site visited, issue verified with the complainant, corrective work completed and photos attached."

func newTestNarrativeAnalyzer(store *fakeStore) *NarrativeAnalyzer {
	return NewNarrativeAnalyzer(store, store, newTestEmitter(store), 0.95, discardLogger())
}

func narrativeComplaint(id, officerID string, resolvedAt time.Time, text string) *domain.Complaint {
	assigned := resolvedAt.Add(-2 * time.Hour)
	return &domain.Complaint{
		ComplaintID:       id,
		AssignedOfficerID: officerID,
		AssignedAt:        &assigned,
		ResolvedAt:        &resolvedAt,
		ResolutionText:    text,
	}
}

func TestIdenticalNarrativesFlagged(t *testing.T) {
	store := newFakeStore()
	store.officers = []*domain.Officer{{OfficerID: "off_a", Name: "A", District: "north"}}
	base := time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)
	store.complaints = []*domain.Complaint{
		narrativeComplaint("c1", "off_a", base, templateNarrative),
		narrativeComplaint("c2", "off_a", base.Add(time.Hour), templateNarrative),
	}

	analyzer := newTestNarrativeAnalyzer(store)
	err := analyzer.Run(context.Background(), base.Add(-24*time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)

	alerts := store.alertsOfType(domain.AlertDuplicateActionPattern)
	require.Len(t, alerts, 1)
	assert.Equal(t, "off_a", alerts[0].OfficerID)
	assert.Equal(t, domain.SeverityHigh, alerts[0].Severity)

	indicator, ok := store.indicators[dayKey("off_a", base)]
	require.True(t, ok, "flagged pair must record a fraud indicator")
	assert.InDelta(t, 1.0, indicator.MaxSimilarity, 1e-9)
	assert.Equal(t, 1, indicator.SimilarRemarkCount)
}

func TestDistinctNarrativesPass(t *testing.T) {
	store := newFakeStore()
	store.officers = []*domain.Officer{{OfficerID: "off_a", Name: "A", District: "north"}}
	base := time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)
	store.complaints = []*domain.Complaint{
		narrativeComplaint("c1", "off_a", base, "Pothole on main road filled with asphalt, surface leveled."),
		narrativeComplaint("c2", "off_a", base.Add(time.Hour), "Streetlight fuse replaced, illumination restored at night."),
	}

	analyzer := newTestNarrativeAnalyzer(store)
	err := analyzer.Run(context.Background(), base.Add(-24*time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, store.alerts)
	assert.Empty(t, store.indicators)
}

func TestEmptyNarrativesSkipped(t *testing.T) {
	store := newFakeStore()
	store.officers = []*domain.Officer{{OfficerID: "off_a", Name: "A", District: "north"}}
	base := time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)
	store.complaints = []*domain.Complaint{
		narrativeComplaint("c1", "off_a", base, "   "),
		narrativeComplaint("c2", "off_a", base.Add(time.Hour), ""),
		narrativeComplaint("c3", "off_a", base.Add(2*time.Hour), ""),
	}

	analyzer := newTestNarrativeAnalyzer(store)
	err := analyzer.Run(context.Background(), base.Add(-24*time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, store.alerts, "empty narratives are not comparable")
}

func TestSimilarRemarkCountAccumulates(t *testing.T) {
	store := newFakeStore()
	store.officers = []*domain.Officer{{OfficerID: "off_a", Name: "A", District: "north"}}
	base := time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)
	// 同一天三条相同说明，构成两个相邻对，信号计数累加到 2
	store.complaints = []*domain.Complaint{
		narrativeComplaint("c1", "off_a", base, templateNarrative),
		narrativeComplaint("c2", "off_a", base.Add(time.Hour), templateNarrative),
		narrativeComplaint("c3", "off_a", base.Add(2*time.Hour), templateNarrative),
	}

	analyzer := newTestNarrativeAnalyzer(store)
	err := analyzer.Run(context.Background(), base.Add(-24*time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)

	assert.Len(t, store.alertsOfType(domain.AlertDuplicateActionPattern), 2)
	indicator, ok := store.indicators[dayKey("off_a", base)]
	require.True(t, ok)
	assert.Equal(t, 2, indicator.SimilarRemarkCount)
	assert.InDelta(t, 1.0, indicator.MaxSimilarity, 1e-9)
}

func TestFirstNarrativeComparedAgainstPrecedingWindow(t *testing.T) {
	store := newFakeStore()
	store.officers = []*domain.Officer{{OfficerID: "off_a", Name: "A", District: "north"}}
	windowStart := time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC)
	// c_prev 在窗口开始前办结，c_first 是窗口内第一条，两者套用同一模板
	store.complaints = []*domain.Complaint{
		narrativeComplaint("c_prev", "off_a", windowStart.Add(-2*time.Hour), templateNarrative),
		narrativeComplaint("c_first", "off_a", windowStart.Add(time.Hour), templateNarrative),
	}

	analyzer := newTestNarrativeAnalyzer(store)
	err := analyzer.Run(context.Background(), windowStart, windowStart.Add(7*24*time.Hour))
	require.NoError(t, err)

	alerts := store.alertsOfType(domain.AlertDuplicateActionPattern)
	require.Len(t, alerts, 1, "window boundary must not hide the preceding resolution")
	assert.Contains(t, alerts[0].Description, "c_first")
	assert.Contains(t, alerts[0].Description, "c_prev")

	indicator, ok := store.indicators[dayKey("off_a", windowStart.Add(time.Hour))]
	require.True(t, ok)
	assert.InDelta(t, 1.0, indicator.MaxSimilarity, 1e-9)
}

func TestCrossOfficerNarrativesNotCompared(t *testing.T) {
	store := newFakeStore()
	store.officers = []*domain.Officer{
		{OfficerID: "off_a", Name: "A", District: "north"},
		{OfficerID: "off_b", Name: "B", District: "north"},
	}
	base := time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC)
	store.complaints = []*domain.Complaint{
		narrativeComplaint("c1", "off_a", base, templateNarrative),
		narrativeComplaint("c2", "off_b", base.Add(time.Hour), templateNarrative),
	}

	analyzer := newTestNarrativeAnalyzer(store)
	err := analyzer.Run(context.Background(), base.Add(-24*time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, store.alerts, "comparison is scoped to a single officer's history")
}
