/*
 * @module service/scheduler/scheduler_service
 * @description 监控任务调度服务，按Cron表达式周期执行管道健康检查和数据质量报告生成
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow 调度注册 -> 定时触发 -> 任务执行 -> 结果缓存
 * @rules 任务执行互不阻塞，单次执行失败只记录日志等待下一周期；Cron表达式含秒字段
 * @dependencies procurement-monitor/service/monitoring, procurement-monitor/service/cache, github.com/robfig/cron/v3
 * @refs service/monitoring/pipeline_monitor.go, service/monitoring/quality_alerter.go
 */

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"procurement-monitor/service/cache"
	"procurement-monitor/service/config"
	"procurement-monitor/service/models"
	"procurement-monitor/service/monitoring"
)

// SchedulerService 监控任务调度服务
type SchedulerService struct {
	cron        *cron.Cron
	cfg         *config.MonitorConfig
	monitor     *monitoring.PipelineMonitor
	alerter     *monitoring.QualityAlerter
	reportCache *cache.ReportCache

	mu         sync.RWMutex
	lastReport *models.HealthReport
	isRunning  bool
}

// NewSchedulerService 创建调度服务实例
func NewSchedulerService(cfg *config.MonitorConfig, monitor *monitoring.PipelineMonitor,
	alerter *monitoring.QualityAlerter, reportCache *cache.ReportCache) *SchedulerService {
	return &SchedulerService{
		cron:        cron.New(cron.WithSeconds()),
		cfg:         cfg,
		monitor:     monitor,
		alerter:     alerter,
		reportCache: reportCache,
	}
}

// Start 注册定时任务并启动调度器
func (s *SchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.HealthCheckCron, s.runHealthCycle); err != nil {
		return fmt.Errorf("注册健康检查任务失败: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.QualityReportCron, s.runQualityCycle); err != nil {
		return fmt.Errorf("注册质量报告任务失败: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	slog.Info("监控调度服务已启动",
		"health_check_cron", s.cfg.HealthCheckCron,
		"quality_report_cron", s.cfg.QualityReportCron)
	return nil
}

// Stop 停止调度器，等待正在执行的任务结束
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	slog.Info("监控调度服务已停止")
}

// runHealthCycle 执行一次管道健康检查周期并缓存报告
func (s *SchedulerService) runHealthCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report := s.monitor.MonitorPipelineHealth(ctx)

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()
}

// runQualityCycle 执行一次质量报告周期，报告写入缓存供API读取
func (s *SchedulerService) runQualityCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	reports := s.alerter.CheckAndAlert(ctx)

	for _, report := range reports {
		if err := s.reportCache.Put(ctx, report); err != nil {
			slog.Error("质量报告写入缓存失败", "source_system", report.SourceSystem, "error", err)
		}
	}
}

// LastHealthReport 返回最近一次健康检查报告，尚未执行过时返回nil
func (s *SchedulerService) LastHealthReport() *models.HealthReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

// IsRunning 返回调度器运行状态
func (s *SchedulerService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
