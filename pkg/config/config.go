// Package config 提供 TOML 配置加载与环境变量覆盖
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/civicpulse/accountability/pkg/cache"
	"github.com/civicpulse/accountability/pkg/logger"
)

// Config 服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Redis 缓存配置，addr 留空表示不启用
	Redis cache.Config `mapstructure:"redis"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 调度配置
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	// 检测参数配置
	Detection DetectionConfig `mapstructure:"detection"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	// 监听地址
	Host string `mapstructure:"host"`
	// 监听端口
	Port int `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 数据源名称
	DSN string `mapstructure:"dsn"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用 SQL 日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// Consumer Group ID
	GroupID string `mapstructure:"group_id"`
	// 告警事件发布主题
	AlertTopic string `mapstructure:"alert_topic"`
	// 工单办结事件消费主题
	ResolutionTopic string `mapstructure:"resolution_topic"`
	// 最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// SchedulerConfig 调度配置，控制各检测层的运行周期
type SchedulerConfig struct {
	// 统计离群检测周期
	StatisticalInterval time.Duration `mapstructure:"statistical_interval"`
	// 流转图谱分析周期
	GraphInterval time.Duration `mapstructure:"graph_interval"`
	// 文本相似度分析周期
	SimilarityInterval time.Duration `mapstructure:"similarity_interval"`
	// 风险评分周期
	RiskScoringInterval time.Duration `mapstructure:"risk_scoring_interval"`
	// 全量 KPI 重算周期
	KPISweepInterval time.Duration `mapstructure:"kpi_sweep_interval"`
}

// DetectionConfig 检测参数配置
type DetectionConfig struct {
	// 文本相似度告警阈值
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	// 离群检测污染率（预期异常比例）
	Contamination float64 `mapstructure:"contamination"`
	// 隔离森林树数量
	Estimators int `mapstructure:"estimators"`
}

// Load 从 TOML 文件加载配置，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.Detection.Contamination <= 0 || c.Detection.Contamination >= 1 {
		return fmt.Errorf("invalid contamination: %f", c.Detection.Contamination)
	}
	if c.Detection.SimilarityThreshold <= 0 || c.Detection.SimilarityThreshold > 1 {
		return fmt.Errorf("invalid similarity threshold: %f", c.Detection.SimilarityThreshold)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("kafka.alert_topic", "accountability.fraud_alerts")
	v.SetDefault("kafka.resolution_topic", "grievance.complaint_resolved")
	v.SetDefault("kafka.group_id", "accountability-analytics")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("scheduler.statistical_interval", time.Hour)
	v.SetDefault("scheduler.graph_interval", 24*time.Hour)
	v.SetDefault("scheduler.similarity_interval", 7*24*time.Hour)
	v.SetDefault("scheduler.risk_scoring_interval", 30*24*time.Hour)
	v.SetDefault("scheduler.kpi_sweep_interval", 24*time.Hour)

	v.SetDefault("detection.similarity_threshold", 0.95)
	v.SetDefault("detection.contamination", 0.05)
	v.SetDefault("detection.estimators", 100)
}
