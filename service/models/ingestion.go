/*
 * @module service/models/ingestion
 * @description 数据采集任务日志模型定义，记录各数据源采集任务的执行状态和处理量
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/model.md
 * @stateFlow 任务启动 -> running -> completed/failed
 * @rules 日志由采集服务写入，本服务只读取用于健康检查和性能分析
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/monitoring/pipeline_monitor.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 采集任务状态常量
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// IngestionJob 数据采集任务日志模型
type IngestionJob struct {
	ID           string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SourceSystem string `json:"source_system" gorm:"not null;size:50;index"`
	JobID        string `json:"job_id" gorm:"size:100;index"`
	JobType      string `json:"job_type" gorm:"not null;size:50"` // full_sync, incremental

	// 执行时间
	StartedAt   time.Time  `json:"started_at" gorm:"not null;index"`
	CompletedAt *time.Time `json:"completed_at"`

	// 执行结果
	Status           string `json:"status" gorm:"not null;size:20;index"` // running, completed, failed
	RecordsProcessed int    `json:"records_processed" gorm:"default:0"`
	RecordsCreated   int    `json:"records_created" gorm:"default:0"`
	RecordsUpdated   int    `json:"records_updated" gorm:"default:0"`
	RecordsFailed    int    `json:"records_failed" gorm:"default:0"`

	// 错误信息
	ErrorMessage string `json:"error_message,omitempty" gorm:"type:text"`
	ErrorDetails JSONB  `json:"error_details,omitempty" gorm:"type:jsonb"`

	// 元数据
	Metadata  JSONB     `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName 指定表名
func (IngestionJob) TableName() string {
	return "data_ingestion_logs"
}

// BeforeCreate GORM钩子，创建前生成UUID
func (j *IngestionJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// Duration 计算任务执行时长，未完成时返回0
func (j *IngestionJob) Duration() time.Duration {
	if j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(j.StartedAt)
}
