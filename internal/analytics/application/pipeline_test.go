package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLayers 记录各层调用与收到的时间窗参数
type stubLayers struct {
	statisticalRuns int
	graphRuns       int
	similarityRuns  int
	scoringRuns     int

	statisticalDate time.Time
	graphFrom       time.Time
	graphTo         time.Time
	similarityFrom  time.Time
	similarityTo    time.Time
	scoringAsOf     time.Time

	graphErr   error
	graphPanic bool
}

type stubStatistical struct{ s *stubLayers }

func (l stubStatistical) Run(_ context.Context, date time.Time) error {
	l.s.statisticalRuns++
	l.s.statisticalDate = date
	return nil
}

type stubGraph struct{ s *stubLayers }

func (l stubGraph) Run(_ context.Context, from, to time.Time) error {
	l.s.graphRuns++
	l.s.graphFrom, l.s.graphTo = from, to
	if l.s.graphPanic {
		panic("graph layer blew up")
	}
	return l.s.graphErr
}

type stubSimilarity struct{ s *stubLayers }

func (l stubSimilarity) Run(_ context.Context, from, to time.Time) error {
	l.s.similarityRuns++
	l.s.similarityFrom, l.s.similarityTo = from, to
	return nil
}

type stubScoring struct{ s *stubLayers }

func (l stubScoring) Run(_ context.Context, asOf time.Time) error {
	l.s.scoringRuns++
	l.s.scoringAsOf = asOf
	return nil
}

func newStubPipeline(s *stubLayers) *Pipeline {
	return NewPipeline(stubStatistical{s}, stubGraph{s}, stubSimilarity{s}, stubScoring{s}, nil, discardLogger())
}

func TestRunAllExecutesEveryLayer(t *testing.T) {
	layers := &stubLayers{}
	pipeline := newStubPipeline(layers)
	now := time.Date(2026, 5, 11, 12, 0, 0, 0, time.UTC)

	result := pipeline.RunAll(context.Background(), now)

	require.Len(t, result.Layers, 4)
	assert.Empty(t, result.Failed())
	assert.Equal(t, 1, layers.statisticalRuns)
	assert.Equal(t, 1, layers.graphRuns)
	assert.Equal(t, 1, layers.similarityRuns)
	assert.Equal(t, 1, layers.scoringRuns)

	// 时间窗推导：统计层看前一日，图谱层看近一日，相似度层看近一周
	assert.Equal(t, now.AddDate(0, 0, -1), layers.statisticalDate)
	assert.Equal(t, now.AddDate(0, 0, -1), layers.graphFrom)
	assert.Equal(t, now, layers.graphTo)
	assert.Equal(t, now.AddDate(0, 0, -7), layers.similarityFrom)
	assert.Equal(t, now, layers.similarityTo)
	assert.Equal(t, now, layers.scoringAsOf)
}

func TestRunAllIsolatesLayerFailure(t *testing.T) {
	layers := &stubLayers{graphErr: errors.New("graph storage offline")}
	pipeline := newStubPipeline(layers)

	result := pipeline.RunAll(context.Background(), time.Now())

	assert.Equal(t, []int{LayerGraph}, result.Failed())
	// 失败层之后的层仍然执行
	assert.Equal(t, 1, layers.similarityRuns)
	assert.Equal(t, 1, layers.scoringRuns)

	for _, layer := range result.Layers {
		if layer.Layer == LayerGraph {
			assert.False(t, layer.Succeeded())
			assert.Contains(t, layer.Error, "graph storage offline")
		} else {
			assert.True(t, layer.Succeeded())
		}
	}
}

func TestRunAllRecoversLayerPanic(t *testing.T) {
	layers := &stubLayers{graphPanic: true}
	pipeline := newStubPipeline(layers)

	result := pipeline.RunAll(context.Background(), time.Now())

	assert.Equal(t, []int{LayerGraph}, result.Failed())
	assert.Equal(t, 1, layers.scoringRuns, "panic in one layer must not stop the rest")

	for _, layer := range result.Layers {
		if layer.Layer == LayerGraph {
			assert.Contains(t, layer.Error, "panicked")
		}
	}
}

func TestRunLayerUnknown(t *testing.T) {
	pipeline := newStubPipeline(&stubLayers{})
	err := pipeline.RunLayer(context.Background(), 1, time.Now())
	assert.Error(t, err, "layer 1 is event driven, not part of the batch pipeline")
	err = pipeline.RunLayer(context.Background(), 99, time.Now())
	assert.Error(t, err)
}

func TestRunLayerSingle(t *testing.T) {
	layers := &stubLayers{}
	pipeline := newStubPipeline(layers)

	require.NoError(t, pipeline.RunLayer(context.Background(), LayerSimilarity, time.Now()))
	assert.Equal(t, 1, layers.similarityRuns)
	assert.Zero(t, layers.statisticalRuns)
	assert.Zero(t, layers.graphRuns)
	assert.Zero(t, layers.scoringRuns)
}
