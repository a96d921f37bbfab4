/*
 * @module service/monitoring/pipeline_monitor
 * @description 数据管道健康监控器，执行采集、质量、性能、资源、新鲜度五项检查并产生告警
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow 健康检查执行 -> 总体状态归约 -> 告警生成 -> 渠道分发 -> 指标记录
 * @rules 单项检查失败降级为 error 状态检查结果，不中断周期；整个周期崩溃时产出合成严重告警并返回 critical 报告
 * @dependencies procurement-monitor/service/models, procurement-monitor/service/config, gorm.io/gorm, github.com/prometheus/client_golang/prometheus
 * @refs service/monitoring/alert_dispatcher.go, service/quality/quality_monitor.go
 */

package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"procurement-monitor/service/config"
	"procurement-monitor/service/models"
)

var monitorCycles = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pipeline_monitor_cycles_total",
	Help: "按总体状态统计的监控周期总数",
}, []string{"status"})

// QualityReporter 质量报告生成接口
type QualityReporter interface {
	GenerateQualityReport(ctx context.Context, sourceSystem string, windowDays int) (*models.QualityReport, error)
}

// PipelineMonitor 数据管道健康监控器
type PipelineMonitor struct {
	db         *gorm.DB
	cfg        *config.MonitorConfig
	reporter   QualityReporter
	store      *MetricStore
	dispatcher *AlertDispatcher
}

// NewPipelineMonitor 创建管道健康监控器实例
func NewPipelineMonitor(db *gorm.DB, cfg *config.MonitorConfig, reporter QualityReporter,
	store *MetricStore, dispatcher *AlertDispatcher) *PipelineMonitor {
	return &PipelineMonitor{
		db:         db,
		cfg:        cfg,
		reporter:   reporter,
		store:      store,
		dispatcher: dispatcher,
	}
}

// MonitorPipelineHealth 执行一次完整的管道健康检查周期
// 该方法保证不返回错误：任何崩溃都转化为 critical 报告和合成严重告警
func (m *PipelineMonitor) MonitorPipelineHealth(ctx context.Context) (report *models.HealthReport) {
	slog.Info("开始管道健康监控周期")

	report = &models.HealthReport{
		OverallStatus: models.CheckStatusHealthy,
		Timestamp:     time.Now(),
		Checks:        make(map[string]*models.CheckResult),
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("监控周期异常: %v", r)
			slog.Error("管道健康监控周期崩溃", "error", err)

			criticalAlert := &models.Alert{
				ID:        "monitor_failure_" + time.Now().Format("20060102_150405"),
				Type:      models.AlertTypePipelineFailure,
				Severity:  models.SeverityCritical,
				Title:     "Pipeline Monitoring Failure",
				Message:   fmt.Sprintf("Pipeline monitoring system failed: %v", r),
				Source:    "pipeline_monitor",
				Timestamp: time.Now(),
				Metadata:  models.JSONB{"error": fmt.Sprintf("%v", r)},
			}
			m.dispatcher.Dispatch(ctx, []*models.Alert{criticalAlert})

			report.OverallStatus = models.CheckStatusCritical
			report.Error = err.Error()
			monitorCycles.WithLabelValues(report.OverallStatus).Inc()
		}
	}()

	report.Checks["ingestion"] = m.checkIngestionHealth(ctx)
	report.Checks["data_quality"] = m.checkDataQuality(ctx)
	report.Checks["performance"] = m.checkPerformance(ctx)
	report.Checks["resource"] = m.checkResourceUsage(ctx)
	report.Checks["data_freshness"] = m.checkDataFreshness(ctx)

	report.OverallStatus = determineOverallStatus(report.Checks)
	report.Alerts = generateAlerts(report.Checks, m.cfg)

	m.dispatcher.Dispatch(ctx, report.Alerts)
	monitorCycles.WithLabelValues(report.OverallStatus).Inc()

	slog.Info("管道健康监控周期完成", "overall_status", report.OverallStatus,
		"alerts_count", len(report.Alerts))
	return report
}

// checkIngestionHealth 检查最近24小时采集任务的失败率和卡死任务
func (m *PipelineMonitor) checkIngestionHealth(ctx context.Context) *models.CheckResult {
	cutoff := time.Now().Add(-24 * time.Hour)

	type statusCount struct {
		Status string
		Count  int
	}
	var counts []statusCount
	err := m.db.WithContext(ctx).Model(&models.IngestionJob{}).
		Select("status, count(id) as count").
		Where("started_at >= ?", cutoff).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		slog.Error("采集健康检查失败", "error", err)
		return errorCheckResult(err)
	}

	statusCounts := models.JSONB{}
	totalJobs, completedJobs, failedJobs := 0, 0, 0
	for _, entry := range counts {
		statusCounts[entry.Status] = entry.Count
		totalJobs += entry.Count
		switch entry.Status {
		case models.JobStatusCompleted:
			completedJobs += entry.Count
		case models.JobStatusFailed:
			failedJobs += entry.Count
		}
	}

	if totalJobs == 0 {
		return &models.CheckResult{
			Status: models.CheckStatusNoData,
			Details: models.JSONB{
				"message": "No ingestion jobs in the last 24 hours",
			},
		}
	}

	// 失败率按已结束任务计算，运行中任务不计入分母
	failureRate := 0.0
	if finished := completedJobs + failedJobs; finished > 0 {
		failureRate = float64(failedJobs) / float64(finished)
	}

	var stuckCount int64
	err = m.db.WithContext(ctx).Model(&models.IngestionJob{}).
		Where("status = ? AND started_at < ?", models.JobStatusRunning,
			time.Now().Add(-m.cfg.StuckJobThreshold)).
		Count(&stuckCount).Error
	if err != nil {
		slog.Error("卡死任务检查失败", "error", err)
		return errorCheckResult(err)
	}

	status := models.CheckStatusHealthy
	if failureRate > m.cfg.FailureRateThreshold {
		status = models.CheckStatusDegraded
	}
	if stuckCount > 0 {
		status = models.CheckStatusCritical
	}

	m.recordMetric("ingestion_failure_rate", failureRate, nil)

	return &models.CheckResult{
		Status: status,
		Details: models.JSONB{
			"total_jobs":   totalJobs,
			"failed_jobs":  failedJobs,
			"failure_rate": failureRate,
			"stuck_jobs":   stuckCount,
			"details":      statusCounts,
		},
	}
}

// checkDataQuality 为每个数据源生成最近一天的质量报告并归约状态
func (m *PipelineMonitor) checkDataQuality(ctx context.Context) *models.CheckResult {
	sourceResults := models.JSONB{}
	status := models.CheckStatusHealthy

	for _, source := range m.cfg.Sources {
		qualityReport, err := m.reporter.GenerateQualityReport(ctx, source, 1)
		if err != nil {
			slog.Error("数据质量检查失败", "source_system", source, "error", err)
			return errorCheckResult(err)
		}

		sourceResults[source] = models.JSONB{
			"overall_score":         qualityReport.OverallScore,
			"overall_level":         string(qualityReport.OverallLevel),
			"metrics_count":         len(qualityReport.Metrics),
			"recommendations_count": len(qualityReport.Recommendations),
		}

		if qualityReport.OverallScore < 0.7 && status != models.CheckStatusCritical {
			status = models.CheckStatusDegraded
		}
		if qualityReport.OverallScore < 0.5 {
			status = models.CheckStatusCritical
		}

		m.recordMetric("data_quality_score", qualityReport.OverallScore,
			map[string]string{"source_system": source})
	}

	return &models.CheckResult{
		Status: status,
		Details: models.JSONB{
			"sources":    sourceResults,
			"checked_at": time.Now().Format(time.RFC3339),
		},
	}
}

// checkPerformance 检查最近24小时已完成任务的平均与最大处理耗时
func (m *PipelineMonitor) checkPerformance(ctx context.Context) *models.CheckResult {
	cutoff := time.Now().Add(-24 * time.Hour)

	var jobs []models.IngestionJob
	err := m.db.WithContext(ctx).
		Where("started_at >= ? AND status = ? AND completed_at IS NOT NULL",
			cutoff, models.JobStatusCompleted).
		Find(&jobs).Error
	if err != nil {
		slog.Error("性能检查失败", "error", err)
		return errorCheckResult(err)
	}

	if len(jobs) == 0 {
		return &models.CheckResult{
			Status: models.CheckStatusNoData,
			Details: models.JSONB{
				"message": "No completed jobs in the last 24 hours",
			},
		}
	}

	sum, maxDuration := 0.0, 0.0
	for i := range jobs {
		duration := jobs[i].CompletedAt.Sub(jobs[i].StartedAt).Seconds()
		sum += duration
		if duration > maxDuration {
			maxDuration = duration
		}
	}
	avgDuration := sum / float64(len(jobs))

	limitSeconds := m.cfg.ProcessingTimeLimit.Seconds()
	status := models.CheckStatusHealthy
	if avgDuration > limitSeconds {
		status = models.CheckStatusDegraded
	}
	if maxDuration > limitSeconds*2 {
		status = models.CheckStatusCritical
	}

	m.recordMetric("ingestion_avg_duration_seconds", avgDuration, nil)

	return &models.CheckResult{
		Status: status,
		Details: models.JSONB{
			"avg_duration_seconds": avgDuration,
			"max_duration_seconds": maxDuration,
			"total_jobs":           len(jobs),
			"threshold_seconds":    limitSeconds,
		},
	}
}

// checkResourceUsage 资源使用检查，当前为占位实现
func (m *PipelineMonitor) checkResourceUsage(_ context.Context) *models.CheckResult {
	return &models.CheckResult{
		Status: models.CheckStatusHealthy,
		Details: models.JSONB{
			"cpu_usage":            "normal",
			"memory_usage":         "normal",
			"disk_usage":           "normal",
			"database_connections": "normal",
		},
	}
}

// checkDataFreshness 检查各数据源最近一次抓取距今的时长
func (m *PipelineMonitor) checkDataFreshness(ctx context.Context) *models.CheckResult {
	sourceResults := models.JSONB{}
	overall := models.CheckStatusHealthy

	for _, source := range m.cfg.Sources {
		var totalRecords int64
		err := m.db.WithContext(ctx).Model(&models.Tender{}).
			Where("source_system = ?", source).
			Count(&totalRecords).Error
		if err != nil {
			slog.Error("数据新鲜度检查失败", "source_system", source, "error", err)
			return errorCheckResult(err)
		}

		var latest models.Tender
		err = m.db.WithContext(ctx).
			Where("source_system = ? AND last_scraped_at IS NOT NULL", source).
			Order("last_scraped_at DESC").
			First(&latest).Error
		if err == gorm.ErrRecordNotFound {
			sourceResults[source] = models.JSONB{
				"status":  models.CheckStatusNoData,
				"message": "No data available for this source",
			}
			overall = models.CheckStatusCritical
			continue
		}
		if err != nil {
			slog.Error("数据新鲜度检查失败", "source_system", source, "error", err)
			return errorCheckResult(err)
		}

		hoursSinceUpdate := time.Since(*latest.LastScrapedAt).Hours()

		status := models.CheckStatusHealthy
		if hoursSinceUpdate > m.cfg.StaleHours {
			status = models.CheckStatusStale
			if overall != models.CheckStatusCritical {
				overall = models.CheckStatusDegraded
			}
		}
		if hoursSinceUpdate > m.cfg.VeryStaleHours {
			status = models.CheckStatusVeryStale
			overall = models.CheckStatusCritical
		}

		sourceResults[source] = models.JSONB{
			"status":             status,
			"last_update":        latest.LastScrapedAt.Format(time.RFC3339),
			"hours_since_update": hoursSinceUpdate,
			"total_records":      totalRecords,
		}

		m.recordMetric("data_freshness_hours", hoursSinceUpdate,
			map[string]string{"source_system": source})
	}

	return &models.CheckResult{
		Status: overall,
		Details: models.JSONB{
			"sources":         sourceResults,
			"threshold_hours": m.cfg.StaleHours,
		},
	}
}

// MonitorSpecificJob 查询单个采集任务的运行状态快照
func (m *PipelineMonitor) MonitorSpecificJob(ctx context.Context, jobID string) (*models.JobStatusSnapshot, error) {
	var job models.IngestionJob
	err := m.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error
	if err == gorm.ErrRecordNotFound {
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询采集任务失败: %w", err)
	}

	snapshot := &models.JobStatusSnapshot{
		JobID:            jobID,
		Status:           job.Status,
		SourceSystem:     job.SourceSystem,
		StartedAt:        job.StartedAt.Format(time.RFC3339),
		RecordsProcessed: job.RecordsProcessed,
		RecordsCreated:   job.RecordsCreated,
		RecordsUpdated:   job.RecordsUpdated,
		RecordsFailed:    job.RecordsFailed,
		ErrorMessage:     job.ErrorMessage,
	}
	if job.CompletedAt != nil {
		snapshot.CompletedAt = job.CompletedAt.Format(time.RFC3339)
		seconds := job.Duration().Seconds()
		snapshot.DurationSeconds = &seconds
	}
	return snapshot, nil
}

// recordMetric 向指标存储写入样本，写入失败只记录日志
func (m *PipelineMonitor) recordMetric(name string, value float64, tags map[string]string) {
	if m.store == nil {
		return
	}
	if err := m.store.Record(name, value, tags); err != nil {
		slog.Warn("指标样本写入失败", "metric", name, "error", err)
	}
}

// errorCheckResult 将检查内部错误包装为 error 状态的检查结果
func errorCheckResult(err error) *models.CheckResult {
	return &models.CheckResult{
		Status: models.CheckStatusError,
		Details: models.JSONB{
			"error": err.Error(),
		},
	}
}

// determineOverallStatus 按最差优先原则归约各检查状态
func determineOverallStatus(checks map[string]*models.CheckResult) string {
	hasDegraded, hasNoData := false, false
	for _, check := range checks {
		switch check.Status {
		case models.CheckStatusCritical, models.CheckStatusError:
			return models.CheckStatusCritical
		case models.CheckStatusDegraded, models.CheckStatusStale:
			hasDegraded = true
		case models.CheckStatusNoData:
			hasNoData = true
		}
	}
	if hasDegraded {
		return models.CheckStatusDegraded
	}
	if hasNoData {
		return models.CheckStatusWarning
	}
	return models.CheckStatusHealthy
}

// generateAlerts 根据检查结果生成告警，健康检查不产生告警
func generateAlerts(checks map[string]*models.CheckResult, cfg *config.MonitorConfig) []*models.Alert {
	var alerts []*models.Alert

	for checkName, check := range checks {
		var severity models.AlertSeverity
		switch check.Status {
		case models.CheckStatusCritical, models.CheckStatusError:
			severity = models.SeverityCritical
		case models.CheckStatusDegraded, models.CheckStatusStale:
			severity = models.SeverityHigh
		case models.CheckStatusNoData:
			severity = models.SeverityMedium
		default:
			continue
		}

		alerts = append(alerts, &models.Alert{
			ID:        checkName + "_" + time.Now().Format("20060102_150405"),
			Type:      models.AlertTypePipelineFailure,
			Severity:  severity,
			Title:     fmt.Sprintf("Pipeline %s Issue", titleCase(checkName)),
			Message:   alertMessage(checkName, check, cfg),
			Source:    checkName,
			Timestamp: time.Now(),
			Metadata:  check.AsMetadata(),
		})
	}
	return alerts
}

// titleCase 将下划线分隔的检查名转为标题格式
func titleCase(checkName string) string {
	words := strings.Split(checkName, "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// alertMessage 按检查名和状态生成告警正文
func alertMessage(checkName string, check *models.CheckResult, cfg *config.MonitorConfig) string {
	status := check.Status

	switch checkName {
	case "ingestion":
		if status == models.CheckStatusCritical {
			return fmt.Sprintf("Ingestion pipeline has %v stuck jobs", check.Details["stuck_jobs"])
		}
		if status == models.CheckStatusDegraded {
			failureRate, _ := check.Details["failure_rate"].(float64)
			return fmt.Sprintf("Ingestion failure rate is %.1f%% (threshold: %.1f%%)",
				failureRate*100, cfg.FailureRateThreshold*100)
		}
	case "data_quality":
		if status == models.CheckStatusCritical {
			return "Data quality has fallen below acceptable levels"
		}
		if status == models.CheckStatusDegraded {
			return "Data quality metrics show concerning trends"
		}
	case "performance":
		if status == models.CheckStatusCritical {
			maxDuration, _ := check.Details["max_duration_seconds"].(float64)
			return fmt.Sprintf("Processing time exceeded %.0f seconds", maxDuration)
		}
		if status == models.CheckStatusDegraded {
			avgDuration, _ := check.Details["avg_duration_seconds"].(float64)
			return fmt.Sprintf("Average processing time is %.0f seconds", avgDuration)
		}
	case "data_freshness":
		if status == models.CheckStatusCritical {
			return fmt.Sprintf("Data has not been updated in over %.0f hours", cfg.VeryStaleHours)
		}
		if status == models.CheckStatusDegraded || status == models.CheckStatusStale {
			return fmt.Sprintf("Data is becoming stale (over %.0f hours since last update)", cfg.StaleHours)
		}
	}

	return fmt.Sprintf("Pipeline check '%s' has status: %s", checkName, status)
}
