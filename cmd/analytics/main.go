package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/civicpulse/accountability/internal/analytics/application"
	"github.com/civicpulse/accountability/internal/analytics/domain"
	"github.com/civicpulse/accountability/internal/analytics/infrastructure/messaging"
	"github.com/civicpulse/accountability/internal/analytics/infrastructure/persistence/mysql"
	"github.com/civicpulse/accountability/internal/analytics/interfaces/consumer"
	analyticshttp "github.com/civicpulse/accountability/internal/analytics/interfaces/http"
	"github.com/civicpulse/accountability/pkg/cache"
	"github.com/civicpulse/accountability/pkg/config"
	"github.com/civicpulse/accountability/pkg/db"
	"github.com/civicpulse/accountability/pkg/logger"
	pkgmetrics "github.com/civicpulse/accountability/pkg/metrics"
	"github.com/civicpulse/accountability/pkg/middleware"
	"github.com/civicpulse/accountability/pkg/mq"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/analytics/config.toml", "path to config file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Named("main")

	// 3. 初始化指标
	obs := pkgmetrics.New("analytics")
	if err := obs.Register(); err != nil {
		log.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// 4. 初始化数据库
	database, err := db.Init(db.Config{
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// 5. 自动迁移
	if err := database.AutoMigrate(
		&domain.Officer{},
		&domain.Complaint{},
		&domain.Feedback{},
		&domain.OfficerAction{},
		&domain.FundApproval{},
		&domain.ComplaintTransfer{},
		&domain.OfficerPerformanceMetric{},
		&domain.FraudDetectionIndicator{},
		&domain.FraudAlert{},
		&domain.RiskScore{},
	); err != nil {
		log.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// 6. 依赖注入
	repo := mysql.NewAnalyticsRepository(database.DB)

	var queryCache application.QueryCache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.New(cfg.Redis)
		if err != nil {
			// 缓存不可用时降级为直查数据库
			log.Warn("redis unavailable, dashboard cache disabled", "error", err)
		} else {
			defer redisCache.Close()
			queryCache = redisCache
		}
	}

	kafkaCfg := mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.GroupID,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	}
	producer := mq.NewProducer(kafkaCfg)
	defer producer.Close()
	publisher := messaging.NewKafkaEventPublisher(producer, cfg.Kafka.AlertTopic)

	emitter := application.NewAlertEmitter(repo, publisher, obs, logger.Named("alerts"))
	kpiService := application.NewKPIService(repo, repo, repo, emitter, obs, logger.Named("kpi"))
	ruleEngine := application.NewRuleEngine(repo, emitter, logger.Named("rules"))
	outlier := application.NewOutlierDetector(repo, emitter, cfg.Detection.Contamination, cfg.Detection.Estimators, logger.Named("outlier"))
	graph := application.NewTransferGraphAnalyzer(repo, emitter, logger.Named("graph"))
	narrative := application.NewNarrativeAnalyzer(repo, repo, emitter, cfg.Detection.SimilarityThreshold, logger.Named("similarity"))
	scorer := application.NewRiskScorer(repo, repo, repo, emitter, obs, logger.Named("risk"))
	pipeline := application.NewPipeline(outlier, graph, narrative, scorer, obs, logger.Named("pipeline"))
	scheduler := application.NewScheduler(kpiService, pipeline, cfg.Scheduler, logger.Named("scheduler"))
	queryService := application.NewDashboardQueryService(repo, repo, repo, repo, repo, queryCache, logger.Named("dashboard"))

	// 7. HTTP 路由
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	httpLogger := logger.Named("http")
	router.Use(
		middleware.RequestLogging(httpLogger),
		middleware.Recovery(httpLogger),
		middleware.CORS(),
		middleware.RateLimit(middleware.NewRateLimiter(100, 50)),
	)

	sys := router.Group("/sys")
	{
		sys.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		sys.GET("/ready", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "READY"}) })
	}
	router.GET("/metrics", gin.WrapH(pkgmetrics.Handler()))

	handler := analyticshttp.NewAnalyticsHandler(kpiService, ruleEngine, pipeline, repo, queryService)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 8. 启动
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	resolutionConsumer := mq.NewConsumer(kafkaCfg, cfg.Kafka.ResolutionTopic)
	defer resolutionConsumer.Close()
	resolutionHandler := consumer.NewResolutionHandler(repo, ruleEngine, logger.Named("consumer"))

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return resolutionConsumer.Start(runCtx, resolutionHandler.Handle)
	})
	g.Go(func() error {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("service exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("service stopped")
}
