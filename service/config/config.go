/*
 * @module service/config
 * @description 监控服务配置模块，从环境变量加载各组件配置并提供默认值
 * @architecture 分层架构 - 配置层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 应用启动时加载一次，之后只读
 * @rules 所有阈值和调度表达式均可通过环境变量覆盖，缺省值与采集管道的实际节奏匹配
 * @dependencies github.com/spf13/cast
 * @refs service/init.go, service/monitoring, service/scheduler
 */

package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// MonitorConfig 监控服务配置
type MonitorConfig struct {
	// 监控的数据源系统
	Sources []string

	// 健康检查阈值
	FailureRateThreshold float64       // 采集失败率阈值
	ProcessingTimeLimit  time.Duration // 单任务处理时长阈值
	StuckJobThreshold    time.Duration // 任务卡死判定时长
	StaleHours           float64       // 数据过期小时数
	VeryStaleHours       float64       // 数据严重过期小时数

	// 质量报告参数
	QualityWindowDays    int // 调度质量报告的统计窗口
	MaxQualityWindowDays int // 窗口上限，约束重复检测的 O(n²) 规模

	// 调度表达式（cron，含秒字段）
	HealthCheckCron   string
	QualityReportCron string

	// 告警渠道
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPUseTLS   bool
	AlertFrom    string
	AlertTo      []string
	WebhookURL   string

	// 外部组件
	RedisAddr     string
	RedisPassword string
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroupID  string
	EventsDSN     string // pq LISTEN/NOTIFY 连接串，缺省复用 DATABASE_URL
}

// LoadMonitorConfig 从环境变量加载监控配置
func LoadMonitorConfig() *MonitorConfig {
	cfg := &MonitorConfig{
		Sources:              splitList(getEnvWithDefault("MONITOR_SOURCES", "SICAP,ANRMAP")),
		FailureRateThreshold: cast.ToFloat64(getEnvWithDefault("MONITOR_FAILURE_RATE_THRESHOLD", "0.1")),
		ProcessingTimeLimit:  time.Duration(cast.ToInt(getEnvWithDefault("MONITOR_PROCESSING_TIME_LIMIT", "3600"))) * time.Second,
		StuckJobThreshold:    time.Duration(cast.ToInt(getEnvWithDefault("MONITOR_STUCK_JOB_HOURS", "2"))) * time.Hour,
		StaleHours:           cast.ToFloat64(getEnvWithDefault("MONITOR_STALE_HOURS", "24")),
		VeryStaleHours:       cast.ToFloat64(getEnvWithDefault("MONITOR_VERY_STALE_HOURS", "48")),
		QualityWindowDays:    cast.ToInt(getEnvWithDefault("QUALITY_WINDOW_DAYS", "1")),
		MaxQualityWindowDays: cast.ToInt(getEnvWithDefault("QUALITY_MAX_WINDOW_DAYS", "31")),
		HealthCheckCron:      getEnvWithDefault("MONITOR_HEALTH_CRON", "0 */15 * * * *"),
		QualityReportCron:    getEnvWithDefault("MONITOR_QUALITY_CRON", "0 0 6 * * *"),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             cast.ToInt(getEnvWithDefault("SMTP_PORT", "587")),
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPPassword:         os.Getenv("SMTP_PASSWORD"),
		SMTPUseTLS:           cast.ToBool(getEnvWithDefault("SMTP_TLS", "true")),
		AlertFrom:            os.Getenv("ALERT_FROM_EMAIL"),
		AlertTo:              splitList(os.Getenv("ALERT_TO_EMAILS")),
		WebhookURL:           os.Getenv("ALERT_WEBHOOK_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:         splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:           getEnvWithDefault("KAFKA_METRICS_TOPIC", "pipeline_metrics"),
		KafkaGroupID:         getEnvWithDefault("KAFKA_GROUP_ID", "procurement-monitor"),
		EventsDSN:            getEnvWithDefault("EVENTS_DSN", os.Getenv("DATABASE_URL")),
	}

	if cfg.AlertFrom == "" {
		cfg.AlertFrom = cfg.SMTPUser
	}
	if len(cfg.AlertTo) == 0 && cfg.SMTPUser != "" {
		cfg.AlertTo = []string{cfg.SMTPUser}
	}

	return cfg
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList 解析逗号分隔的列表，过滤空项
func splitList(value string) []string {
	if value == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
