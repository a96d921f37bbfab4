/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、配置加载和各监控服务的组装
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs dev_docs/model.md
 */

package service

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"procurement-monitor/client/connectors"
	"procurement-monitor/service/cache"
	"procurement-monitor/service/config"
	"procurement-monitor/service/database"
	"procurement-monitor/service/event"
	"procurement-monitor/service/monitoring"
	"procurement-monitor/service/quality"
	"procurement-monitor/service/scheduler"
)

var (
	DB                     *gorm.DB
	GlobalConfig           *config.MonitorConfig
	GlobalMetricStore      *monitoring.MetricStore
	GlobalAlertDispatcher  *monitoring.AlertDispatcher
	GlobalQualityMonitor   *quality.Monitor
	GlobalQualityAlerter   *monitoring.QualityAlerter
	GlobalPipelineMonitor  *monitoring.PipelineMonitor
	GlobalReportCache      *cache.ReportCache
	GlobalEventService     *event.EventService
	GlobalKafkaConnector   *connectors.KafkaConnector
	GlobalSchedulerService *scheduler.SchedulerService
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "procurement")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	GlobalConfig = config.LoadMonitorConfig()

	GlobalMetricStore = monitoring.NewMetricStore()

	// 告警分发器默认带日志渠道，邮件和Webhook按配置附加
	GlobalAlertDispatcher = monitoring.NewAlertDispatcher()
	GlobalAlertDispatcher.Register(monitoring.NewEmailChannel(GlobalConfig))
	GlobalAlertDispatcher.Register(monitoring.NewWebhookChannel(GlobalConfig))

	GlobalQualityMonitor = quality.NewMonitor(DB, GlobalConfig.MaxQualityWindowDays)
	GlobalQualityAlerter = monitoring.NewQualityAlerter(GlobalConfig, GlobalQualityMonitor, GlobalAlertDispatcher)
	GlobalPipelineMonitor = monitoring.NewPipelineMonitor(DB, GlobalConfig,
		GlobalQualityMonitor, GlobalMetricStore, GlobalAlertDispatcher)

	GlobalReportCache = cache.NewReportCache(GlobalConfig.RedisAddr, GlobalConfig.RedisPassword)

	// 任务完成事件和爬虫遥测事件都汇入指标存储
	GlobalEventService = event.NewEventService(GlobalConfig.EventsDSN, GlobalMetricStore)
	GlobalKafkaConnector = connectors.NewKafkaConnector(GlobalConfig.KafkaBrokers,
		GlobalConfig.KafkaTopic, GlobalConfig.KafkaGroupID, GlobalMetricStore)
	GlobalKafkaConnector.Start()

	GlobalSchedulerService = scheduler.NewSchedulerService(GlobalConfig,
		GlobalPipelineMonitor, GlobalQualityAlerter, GlobalReportCache)
	if err := GlobalSchedulerService.Start(); err != nil {
		log.Fatalf("监控调度服务启动失败: %v", err)
	}

	log.Println("所有服务初始化完成")
}
