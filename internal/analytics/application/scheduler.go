package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/civicpulse/accountability/pkg/config"
)

// Scheduler 批处理调度器，持有各检测层与全量 KPI 重算的时钟节拍。
// 它是系统中唯一感知墙钟时间的组件，各层只接收推导好的时间窗参数。
// 显式 Start/Stop 生命周期，不在构造时启动任何后台任务。
type Scheduler struct {
	kpi      *KPIService
	pipeline *Pipeline
	cfg      config.SchedulerConfig
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler 创建调度器
func NewScheduler(kpi *KPIService, pipeline *Pipeline, cfg config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		kpi:      kpi,
		pipeline: pipeline,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start 启动全部周期任务。重复调用是 no-op。
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.spawn(runCtx, "statistical_outlier", s.cfg.StatisticalInterval, func(ctx context.Context, now time.Time) error {
		return s.pipeline.RunLayer(ctx, LayerStatistical, now)
	})
	s.spawn(runCtx, "transfer_graph", s.cfg.GraphInterval, func(ctx context.Context, now time.Time) error {
		return s.pipeline.RunLayer(ctx, LayerGraph, now)
	})
	s.spawn(runCtx, "narrative_similarity", s.cfg.SimilarityInterval, func(ctx context.Context, now time.Time) error {
		return s.pipeline.RunLayer(ctx, LayerSimilarity, now)
	})
	s.spawn(runCtx, "risk_scoring", s.cfg.RiskScoringInterval, func(ctx context.Context, now time.Time) error {
		return s.pipeline.RunLayer(ctx, LayerRiskScoring, now)
	})
	s.spawn(runCtx, "kpi_sweep", s.cfg.KPISweepInterval, func(ctx context.Context, now time.Time) error {
		return s.kpi.ComputeAllOfficers(ctx, now.AddDate(0, 0, -1))
	})

	s.logger.Info("scheduler started",
		"statistical_interval", s.cfg.StatisticalInterval,
		"graph_interval", s.cfg.GraphInterval,
		"similarity_interval", s.cfg.SimilarityInterval,
		"risk_scoring_interval", s.cfg.RiskScoringInterval,
		"kpi_sweep_interval", s.cfg.KPISweepInterval,
	)
}

// Stop 停止全部周期任务并等待在途任务结束。未启动时是 no-op。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// spawn 启动一个周期任务。失败的一轮只记录日志，等待下个节拍重试，
// 不携带任何恢复状态（全部计算可从记录库重新推导）。
func (s *Scheduler) spawn(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context, now time.Time) error) {
	if interval <= 0 {
		s.logger.Warn("periodic task disabled", "task", name)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fn(ctx, s.now()); err != nil {
					s.logger.ErrorContext(ctx, "periodic task failed",
						"task", name,
						"error", err,
					)
				}
			}
		}
	}()
}
