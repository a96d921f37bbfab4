/*
 * @module service/models/monitoring_models
 * @description 管道健康监控相关模型定义，包括告警、检查结果、健康报告和任务状态快照
 * @architecture DDD领域驱动设计 - 值对象
 * @documentReference dev_docs/model.md
 * @stateFlow 检查执行 -> 结果归约 -> 告警合成 -> 告警分发
 * @rules 告警ID在单个监控周期内不可冲突，告警由分发器消费且核心不做持久化
 * @dependencies time
 * @refs service/monitoring/pipeline_monitor.go, service/monitoring/notification.go
 */

package models

import "time"

// AlertSeverity 告警严重级别，从低到高有序
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType 告警类型标签
type AlertType string

const (
	AlertTypePipelineFailure AlertType = "pipeline_failure"
	AlertTypeDataQuality     AlertType = "data_quality"
	AlertTypePerformance     AlertType = "performance"
	AlertTypeResource        AlertType = "resource"
	AlertTypeSecurity        AlertType = "security"
)

// Alert 告警实例，由健康监控器创建，分发器消费一次
type Alert struct {
	ID         string        `json:"id"` // 检查名 + 时间戳派生，单周期内唯一
	Type       AlertType     `json:"type"`
	Severity   AlertSeverity `json:"severity"`
	Title      string        `json:"title"`
	Message    string        `json:"message"`
	Source     string        `json:"source"`
	Timestamp  time.Time     `json:"timestamp"`
	Metadata   JSONB         `json:"metadata"` // 携带触发检查的原始结果
	Resolved   bool          `json:"resolved"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// 健康检查状态常量
const (
	CheckStatusHealthy   = "healthy"
	CheckStatusDegraded  = "degraded"
	CheckStatusCritical  = "critical"
	CheckStatusStale     = "stale"
	CheckStatusVeryStale = "very_stale"
	CheckStatusNoData    = "no_data"
	CheckStatusWarning   = "warning"
	CheckStatusError     = "error"
	CheckStatusUnknown   = "unknown"
)

// CheckResult 单项健康检查结果，单个监控周期内产生并消费
type CheckResult struct {
	Status  string `json:"status"`
	Details JSONB  `json:"details,omitempty"`
}

// AsMetadata 将检查结果展开为告警元数据
func (r *CheckResult) AsMetadata() JSONB {
	metadata := JSONB{"status": r.Status}
	for k, v := range r.Details {
		metadata[k] = v
	}
	return metadata
}

// HealthReport 管道健康报告
type HealthReport struct {
	OverallStatus string                  `json:"overall_status"`
	Timestamp     time.Time               `json:"timestamp"`
	Checks        map[string]*CheckResult `json:"checks"`
	Alerts        []*Alert                `json:"alerts"`
	Error         string                  `json:"error,omitempty"`
}

// JobStatusSnapshot 单个采集任务的状态快照
type JobStatusSnapshot struct {
	JobID            string  `json:"job_id"`
	Status           string  `json:"status"`
	SourceSystem     string  `json:"source_system,omitempty"`
	StartedAt        string  `json:"started_at,omitempty"`
	CompletedAt      string  `json:"completed_at,omitempty"`
	RecordsProcessed int     `json:"records_processed"`
	RecordsCreated   int     `json:"records_created"`
	RecordsUpdated   int     `json:"records_updated"`
	RecordsFailed    int     `json:"records_failed"`
	ErrorMessage     string  `json:"error_message,omitempty"`
	DurationSeconds  *float64 `json:"duration_seconds,omitempty"` // 仅在任务完成后计算
	Message          string  `json:"message,omitempty"`
}

// MetricSample 指标采样点
type MetricSample struct {
	Value     float64           `json:"value"`
	Timestamp time.Time         `json:"timestamp"`
	Tags      map[string]string `json:"tags"`
}

// MetricSummary 指标汇总统计，无采样点时各统计值为空
type MetricSummary struct {
	Count int      `json:"count"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Avg   *float64 `json:"avg"`
	Sum   *float64 `json:"sum"`
}
