package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/civicpulse/accountability/pkg/config"
)

// countingLayers 原子计数的层桩，供并发调度测试使用
type countingLayers struct {
	statistical atomic.Int64
	graph       atomic.Int64
	similarity  atomic.Int64
	scoring     atomic.Int64
}

type countStatistical struct{ c *countingLayers }

func (l countStatistical) Run(context.Context, time.Time) error {
	l.c.statistical.Add(1)
	return nil
}

type countGraph struct{ c *countingLayers }

func (l countGraph) Run(context.Context, time.Time, time.Time) error {
	l.c.graph.Add(1)
	return nil
}

type countSimilarity struct{ c *countingLayers }

func (l countSimilarity) Run(context.Context, time.Time, time.Time) error {
	l.c.similarity.Add(1)
	return nil
}

type countScoring struct{ c *countingLayers }

func (l countScoring) Run(context.Context, time.Time) error {
	l.c.scoring.Add(1)
	return nil
}

func newTestScheduler(counts *countingLayers, cfg config.SchedulerConfig) *Scheduler {
	pipeline := NewPipeline(countStatistical{counts}, countGraph{counts}, countSimilarity{counts}, countScoring{counts}, nil, discardLogger())
	kpi := newTestKPIService(newFakeStore())
	return NewScheduler(kpi, pipeline, cfg, discardLogger())
}

func TestSchedulerStartStop(t *testing.T) {
	counts := &countingLayers{}
	scheduler := newTestScheduler(counts, config.SchedulerConfig{
		StatisticalInterval: 5 * time.Millisecond,
		GraphInterval:       5 * time.Millisecond,
		SimilarityInterval:  5 * time.Millisecond,
		RiskScoringInterval: 5 * time.Millisecond,
		KPISweepInterval:    5 * time.Millisecond,
	})

	scheduler.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	scheduler.Stop()

	assert.Positive(t, counts.statistical.Load())
	assert.Positive(t, counts.graph.Load())
	assert.Positive(t, counts.similarity.Load())
	assert.Positive(t, counts.scoring.Load())

	// 停止后不再有新节拍
	stopped := counts.statistical.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, counts.statistical.Load())
}

func TestSchedulerStartIdempotent(t *testing.T) {
	counts := &countingLayers{}
	scheduler := newTestScheduler(counts, config.SchedulerConfig{
		StatisticalInterval: time.Hour,
	})

	scheduler.Start(context.Background())
	scheduler.Start(context.Background())
	scheduler.Stop()
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	scheduler := newTestScheduler(&countingLayers{}, config.SchedulerConfig{})
	scheduler.Stop()
	scheduler.Stop()
}

func TestSchedulerDisabledIntervalSkipped(t *testing.T) {
	counts := &countingLayers{}
	scheduler := newTestScheduler(counts, config.SchedulerConfig{
		StatisticalInterval: 5 * time.Millisecond,
		// 其余周期为零，对应任务不启动
	})

	scheduler.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	scheduler.Stop()

	assert.Positive(t, counts.statistical.Load())
	assert.Zero(t, counts.graph.Load())
	assert.Zero(t, counts.similarity.Load())
	assert.Zero(t, counts.scoring.Load())
}

func TestSchedulerStopUnblocksOnContextCancel(t *testing.T) {
	counts := &countingLayers{}
	scheduler := newTestScheduler(counts, config.SchedulerConfig{
		StatisticalInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
