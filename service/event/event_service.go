/*
 * @module service/event/event_service
 * @description 采集任务事件监听服务，订阅PostgreSQL任务完成通知并转换为监控指标样本
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow 数据库NOTIFY -> 通知解析 -> 指标样本写入
 * @rules 单条通知解析失败只记录日志并继续监听；连接字符串未配置时服务不启动
 * @dependencies procurement-monitor/service/monitoring, github.com/lib/pq
 * @refs service/monitoring/metric_store.go
 */

package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"procurement-monitor/service/monitoring"
)

// 采集任务完成通知的频道名
const ingestionChannel = "ingestion_job_events"

// jobEvent 任务完成通知的载荷结构
type jobEvent struct {
	JobID            string  `json:"job_id"`
	SourceSystem     string  `json:"source_system"`
	Status           string  `json:"status"`
	DurationSeconds  float64 `json:"duration_seconds"`
	RecordsProcessed float64 `json:"records_processed"`
	RecordsFailed    float64 `json:"records_failed"`
}

// EventService 采集任务事件监听服务
type EventService struct {
	connStr  string
	store    *monitoring.MetricStore
	listener *pq.Listener
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewEventService 创建事件监听服务并启动后台监听
func NewEventService(connStr string, store *monitoring.MetricStore) *EventService {
	ctx, cancel := context.WithCancel(context.Background())

	service := &EventService{
		connStr: connStr,
		store:   store,
		ctx:     ctx,
		cancel:  cancel,
	}

	if connStr == "" {
		slog.Warn("事件数据库连接未配置，任务事件监听已禁用")
		return service
	}

	go service.listen()
	return service
}

// listen 订阅任务完成通知并持续处理
func (s *EventService) listen() {
	s.listener = pq.NewListener(s.connStr, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				slog.Error("PostgreSQL监听器事件", "event", ev, "error", err)
			}
		})

	if err := s.listener.Listen(ingestionChannel); err != nil {
		slog.Error("订阅任务事件频道失败", "channel", ingestionChannel, "error", err)
		return
	}

	slog.Info("任务事件监听器已启动", "channel", ingestionChannel)

	for {
		select {
		case notification := <-s.listener.Notify:
			if notification != nil {
				s.handleNotification(notification)
			}
		case <-s.ctx.Done():
			slog.Info("任务事件监听器已停止")
			return
		}
	}
}

// handleNotification 将任务完成通知转换为监控指标样本
func (s *EventService) handleNotification(notification *pq.Notification) {
	var event jobEvent
	if err := json.Unmarshal([]byte(notification.Extra), &event); err != nil {
		slog.Error("解析任务事件通知失败", "error", err)
		return
	}

	tags := map[string]string{
		"source_system": event.SourceSystem,
		"status":        event.Status,
	}

	if err := s.store.Record("ingestion_job_duration_seconds", event.DurationSeconds, tags); err != nil {
		slog.Warn("任务耗时指标写入失败", "job_id", event.JobID, "error", err)
	}
	if err := s.store.Record("ingestion_job_records_processed", event.RecordsProcessed, tags); err != nil {
		slog.Warn("任务处理量指标写入失败", "job_id", event.JobID, "error", err)
	}
	if event.RecordsFailed > 0 {
		if err := s.store.Record("ingestion_job_records_failed", event.RecordsFailed, tags); err != nil {
			slog.Warn("任务失败量指标写入失败", "job_id", event.JobID, "error", err)
		}
	}
}

// Stop 停止事件监听服务
func (s *EventService) Stop() {
	s.cancel()
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			slog.Error("关闭数据库监听器失败", "error", err)
		}
	}
}
