/*
 * @module service/monitoring/pipeline_monitor_test
 * @description 管道健康监控器的集成测试，使用内存SQLite验证各检查项和告警生成
 * @architecture 测试层
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow 测试数据构造 -> 监控周期执行 -> 检查结果与告警验证
 * @rules 质量检查使用固定桩实现，数据库检查使用真实数据
 * @dependencies testing, github.com/stretchr/testify/assert, procurement-monitor/testutil
 * @refs service/monitoring/pipeline_monitor.go
 */

package monitoring

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"procurement-monitor/service/config"
	"procurement-monitor/service/models"
	"procurement-monitor/testutil"
)

// stubReporter 固定得分的质量报告桩
type stubReporter struct {
	score float64
	err   error
}

func (s *stubReporter) GenerateQualityReport(_ context.Context, sourceSystem string, windowDays int) (*models.QualityReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.QualityReport{
		ID:           "stub-report",
		SourceSystem: sourceSystem,
		OverallScore: s.score,
		OverallLevel: models.QualityGood,
		GeneratedAt:  time.Now(),
	}, nil
}

// captureChannel 记录收到告警的测试渠道
type captureChannel struct {
	alerts []*models.Alert
}

func (c *captureChannel) ChannelType() string { return "capture" }

func (c *captureChannel) Send(_ context.Context, alert *models.Alert) error {
	c.alerts = append(c.alerts, alert)
	return nil
}

func testConfig() *config.MonitorConfig {
	return &config.MonitorConfig{
		Sources:              []string{"SICAP"},
		FailureRateThreshold: 0.1,
		ProcessingTimeLimit:  time.Hour,
		StuckJobThreshold:    2 * time.Hour,
		StaleHours:           24,
		VeryStaleHours:       48,
		QualityWindowDays:    1,
		MaxQualityWindowDays: 31,
	}
}

func newTestMonitor(t *testing.T, db *gorm.DB, score float64) (*PipelineMonitor, *captureChannel) {
	t.Helper()

	capture := &captureChannel{}
	dispatcher := NewAlertDispatcher()
	dispatcher.Register(capture)

	monitor := NewPipelineMonitor(db, testConfig(), &stubReporter{score: score},
		NewMetricStore(), dispatcher)
	return monitor, capture
}

// TestMonitorHealthyPipeline 数据正常时总体状态为healthy且无告警
func TestMonitorHealthyPipeline(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu")
	tdb.CreateJob("SICAP", models.JobStatusCompleted, time.Now().Add(-time.Hour), 10*time.Minute)

	monitor, capture := newTestMonitor(t, tdb.DB, 0.95)
	report := monitor.MonitorPipelineHealth(context.Background())

	assert.Equal(t, models.CheckStatusHealthy, report.OverallStatus)
	assert.Empty(t, report.Alerts)
	assert.Empty(t, capture.alerts)
	assert.Len(t, report.Checks, 5)
}

// TestIngestionFailureRateDegraded 失败率超阈值时采集检查降级
func TestIngestionFailureRateDegraded(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	// 3失败/20已结束 = 15% > 10%
	started := time.Now().Add(-time.Hour)
	for i := 0; i < 17; i++ {
		tdb.CreateJob("SICAP", models.JobStatusCompleted, started, 10*time.Minute)
	}
	for i := 0; i < 3; i++ {
		tdb.CreateJob("SICAP", models.JobStatusFailed, started, 5*time.Minute)
	}
	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu")

	monitor, capture := newTestMonitor(t, tdb.DB, 0.95)
	report := monitor.MonitorPipelineHealth(context.Background())

	ingestion := report.Checks["ingestion"]
	require.NotNil(t, ingestion)
	assert.Equal(t, models.CheckStatusDegraded, ingestion.Status)
	assert.InDelta(t, 0.15, ingestion.Details["failure_rate"].(float64), 1e-9)

	assert.Equal(t, models.CheckStatusDegraded, report.OverallStatus)

	// 降级检查产生high级别告警
	var ingestionAlert *models.Alert
	for _, alert := range capture.alerts {
		if alert.Source == "ingestion" {
			ingestionAlert = alert
		}
	}
	require.NotNil(t, ingestionAlert)
	assert.Equal(t, models.SeverityHigh, ingestionAlert.Severity)
	assert.Contains(t, ingestionAlert.Message, "15.0%")
}

// TestIngestionRunningJobsExcludedFromRate 运行中任务不计入失败率分母
func TestIngestionRunningJobsExcludedFromRate(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	started := time.Now().Add(-time.Hour)
	for i := 0; i < 9; i++ {
		tdb.CreateJob("SICAP", models.JobStatusCompleted, started, 10*time.Minute)
	}
	tdb.CreateJob("SICAP", models.JobStatusFailed, started, 5*time.Minute)
	// 10个运行中任务，若计入分母失败率会被稀释
	for i := 0; i < 10; i++ {
		tdb.CreateJob("SICAP", models.JobStatusRunning, time.Now().Add(-10*time.Minute), 0)
	}
	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu")

	monitor, _ := newTestMonitor(t, tdb.DB, 0.95)
	report := monitor.MonitorPipelineHealth(context.Background())

	ingestion := report.Checks["ingestion"]
	require.NotNil(t, ingestion)
	assert.InDelta(t, 0.1, ingestion.Details["failure_rate"].(float64), 1e-9)
	assert.Equal(t, models.CheckStatusHealthy, ingestion.Status)
}

// TestIngestionStuckJobsCritical 卡死任务触发critical状态
func TestIngestionStuckJobsCritical(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	tdb.CreateJob("SICAP", models.JobStatusRunning, time.Now().Add(-3*time.Hour), 0)
	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu")

	monitor, capture := newTestMonitor(t, tdb.DB, 0.95)
	report := monitor.MonitorPipelineHealth(context.Background())

	ingestion := report.Checks["ingestion"]
	require.NotNil(t, ingestion)
	assert.Equal(t, models.CheckStatusCritical, ingestion.Status)
	assert.Equal(t, models.CheckStatusCritical, report.OverallStatus)

	var found bool
	for _, alert := range capture.alerts {
		if alert.Source == "ingestion" {
			found = true
			assert.Equal(t, models.SeverityCritical, alert.Severity)
			assert.Contains(t, alert.Message, "stuck jobs")
		}
	}
	assert.True(t, found)
}

// TestIngestionNoJobs 24小时内无任务时状态为no_data
func TestIngestionNoJobs(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu")

	monitor, capture := newTestMonitor(t, tdb.DB, 0.95)
	report := monitor.MonitorPipelineHealth(context.Background())

	assert.Equal(t, models.CheckStatusNoData, report.Checks["ingestion"].Status)
	// no_data归约为warning级总体状态
	assert.Equal(t, models.CheckStatusWarning, report.OverallStatus)

	var found bool
	for _, alert := range capture.alerts {
		if alert.Source == "ingestion" {
			found = true
			assert.Equal(t, models.SeverityMedium, alert.Severity)
		}
	}
	assert.True(t, found)
}

// TestDataQualityCheckDegraded 质量得分低于0.7时检查降级
func TestDataQualityCheckDegraded(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu")
	tdb.CreateJob("SICAP", models.JobStatusCompleted, time.Now().Add(-time.Hour), 10*time.Minute)

	monitor, _ := newTestMonitor(t, tdb.DB, 0.65)
	report := monitor.MonitorPipelineHealth(context.Background())

	assert.Equal(t, models.CheckStatusDegraded, report.Checks["data_quality"].Status)
}

// TestDataQualityCheckCritical 质量得分低于0.5时检查critical
func TestDataQualityCheckCritical(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu")
	tdb.CreateJob("SICAP", models.JobStatusCompleted, time.Now().Add(-time.Hour), 10*time.Minute)

	monitor, _ := newTestMonitor(t, tdb.DB, 0.4)
	report := monitor.MonitorPipelineHealth(context.Background())

	assert.Equal(t, models.CheckStatusCritical, report.Checks["data_quality"].Status)
	assert.Equal(t, models.CheckStatusCritical, report.OverallStatus)
}

// TestDataQualityCheckError 质量报告生成失败时检查状态为error
func TestDataQualityCheckError(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu")
	tdb.CreateJob("SICAP", models.JobStatusCompleted, time.Now().Add(-time.Hour), 10*time.Minute)

	capture := &captureChannel{}
	dispatcher := NewAlertDispatcher()
	dispatcher.Register(capture)
	monitor := NewPipelineMonitor(tdb.DB, testConfig(),
		&stubReporter{err: errors.New("数据库连接中断")}, NewMetricStore(), dispatcher)

	report := monitor.MonitorPipelineHealth(context.Background())

	assert.Equal(t, models.CheckStatusError, report.Checks["data_quality"].Status)
	assert.Equal(t, models.CheckStatusCritical, report.OverallStatus)
}

// TestPerformanceCheckDegraded 平均耗时超阈值时性能检查降级
func TestPerformanceCheckDegraded(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	started := time.Now().Add(-3 * time.Hour)
	tdb.CreateJob("SICAP", models.JobStatusCompleted, started, 90*time.Minute)
	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu")

	monitor, _ := newTestMonitor(t, tdb.DB, 0.95)
	report := monitor.MonitorPipelineHealth(context.Background())

	performance := report.Checks["performance"]
	require.NotNil(t, performance)
	assert.Equal(t, models.CheckStatusDegraded, performance.Status)
}

// TestPerformanceCheckCritical 最大耗时超过2倍阈值时性能检查critical
func TestPerformanceCheckCritical(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	started := time.Now().Add(-5 * time.Hour)
	tdb.CreateJob("SICAP", models.JobStatusCompleted, started, 150*time.Minute)
	tdb.CreateJob("SICAP", models.JobStatusCompleted, time.Now().Add(-time.Hour), 5*time.Minute)
	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu")

	monitor, _ := newTestMonitor(t, tdb.DB, 0.95)
	report := monitor.MonitorPipelineHealth(context.Background())

	assert.Equal(t, models.CheckStatusCritical, report.Checks["performance"].Status)
}

// TestDataFreshnessStale 超过24小时未更新时新鲜度降级
func TestDataFreshnessStale(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	scrapedAt := time.Now().Add(-30 * time.Hour)
	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu", testutil.WithScrapedAt(scrapedAt))
	tdb.CreateJob("SICAP", models.JobStatusCompleted, time.Now().Add(-time.Hour), 10*time.Minute)

	monitor, _ := newTestMonitor(t, tdb.DB, 0.95)
	report := monitor.MonitorPipelineHealth(context.Background())

	freshness := report.Checks["data_freshness"]
	require.NotNil(t, freshness)
	assert.Equal(t, models.CheckStatusDegraded, freshness.Status)
	assert.Equal(t, models.CheckStatusDegraded, report.OverallStatus)
}

// TestDataFreshnessVeryStale 超过48小时未更新时新鲜度critical
func TestDataFreshnessVeryStale(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	scrapedAt := time.Now().Add(-50 * time.Hour)
	tdb.CreateTender("SICAP", "ext-1", "Achizitie unu", testutil.WithScrapedAt(scrapedAt))
	tdb.CreateJob("SICAP", models.JobStatusCompleted, time.Now().Add(-time.Hour), 10*time.Minute)

	monitor, capture := newTestMonitor(t, tdb.DB, 0.95)
	report := monitor.MonitorPipelineHealth(context.Background())

	assert.Equal(t, models.CheckStatusCritical, report.Checks["data_freshness"].Status)
	assert.Equal(t, models.CheckStatusCritical, report.OverallStatus)

	var found bool
	for _, alert := range capture.alerts {
		if alert.Source == "data_freshness" {
			found = true
			assert.Equal(t, models.SeverityCritical, alert.Severity)
			assert.Contains(t, alert.Message, "48 hours")
		}
	}
	assert.True(t, found)
}

// TestDataFreshnessNoData 数据源无记录时新鲜度critical
func TestDataFreshnessNoData(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	tdb.CreateJob("SICAP", models.JobStatusCompleted, time.Now().Add(-time.Hour), 10*time.Minute)

	monitor, _ := newTestMonitor(t, tdb.DB, 0.95)
	report := monitor.MonitorPipelineHealth(context.Background())

	assert.Equal(t, models.CheckStatusCritical, report.Checks["data_freshness"].Status)
}

// TestMonitorSpecificJob 测试单任务状态查询
func TestMonitorSpecificJob(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	job := tdb.CreateJob("SICAP", models.JobStatusCompleted, time.Now().Add(-time.Hour), 10*time.Minute)
	job.JobID = "job-123"
	require.NoError(t, tdb.DB.Save(job).Error)

	monitor, _ := newTestMonitor(t, tdb.DB, 0.95)

	snapshot, err := monitor.MonitorSpecificJob(context.Background(), "job-123")
	require.NoError(t, err)
	assert.Equal(t, "job-123", snapshot.JobID)
	assert.Equal(t, models.JobStatusCompleted, snapshot.Status)
	require.NotNil(t, snapshot.DurationSeconds)
	assert.InDelta(t, 600.0, *snapshot.DurationSeconds, 1.0)
}

// TestMonitorSpecificJobNotFound 任务不存在时返回记录未找到
func TestMonitorSpecificJobNotFound(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	monitor, _ := newTestMonitor(t, tdb.DB, 0.95)

	_, err := monitor.MonitorSpecificJob(context.Background(), "missing-job")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestAlertIDFormat 告警ID由检查名和时间戳构成
func TestAlertIDFormat(t *testing.T) {
	checks := map[string]*models.CheckResult{
		"ingestion": {Status: models.CheckStatusCritical,
			Details: models.JSONB{"stuck_jobs": int64(2)}},
	}

	alerts := generateAlerts(checks, testConfig())
	require.Len(t, alerts, 1)
	assert.Regexp(t, `^ingestion_\d{8}_\d{6}$`, alerts[0].ID)
	assert.Equal(t, "Pipeline Ingestion Issue", alerts[0].Title)
	assert.Equal(t, fmt.Sprintf("Ingestion pipeline has %v stuck jobs", 2), alerts[0].Message)
}

// TestTitleCase 检查名转标题格式
func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Data Freshness", titleCase("data_freshness"))
	assert.Equal(t, "Ingestion", titleCase("ingestion"))
}
