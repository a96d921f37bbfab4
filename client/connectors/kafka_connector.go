/*
 * @module KafkaConnector
 * @description Kafka连接器，消费爬虫上报的遥测事件并转换为监控指标样本
 * @architecture 适配器模式 - 封装第三方Kafka客户端，提供统一的消费入口
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow 连接建立 -> 消息消费 -> 指标写入 -> 连接断开
 * @rules 单条消息解析或处理失败只记录日志并继续消费；brokers未配置时连接器不启动
 * @dependencies github.com/segmentio/kafka-go, procurement-monitor/service/monitoring
 * @refs service/monitoring/metric_store.go
 */
package connectors

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"procurement-monitor/service/monitoring"
)

// ScraperEvent 爬虫遥测事件载荷
type ScraperEvent struct {
	SourceSystem    string  `json:"source_system"`
	EventType       string  `json:"event_type"` // page_scraped, tender_parsed, scrape_error
	DurationSeconds float64 `json:"duration_seconds"`
	RecordCount     float64 `json:"record_count"`
	Timestamp       int64   `json:"timestamp"`
}

// KafkaConnector 爬虫遥测事件消费连接器
type KafkaConnector struct {
	reader *kafka.Reader
	store  *monitoring.MetricStore
	ctx    context.Context
	cancel context.CancelFunc
}

// NewKafkaConnector 创建遥测事件消费连接器，brokers为空时返回未启用的连接器
func NewKafkaConnector(brokers []string, topic, groupID string, store *monitoring.MetricStore) *KafkaConnector {
	ctx, cancel := context.WithCancel(context.Background())

	connector := &KafkaConnector{
		store:  store,
		ctx:    ctx,
		cancel: cancel,
	}

	if len(brokers) == 0 || topic == "" {
		slog.Warn("Kafka未配置，爬虫遥测消费已禁用")
		return connector
	}

	connector.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
	return connector
}

// Start 启动后台消费循环
func (kc *KafkaConnector) Start() {
	if kc.reader == nil {
		return
	}
	go kc.consume()
}

// consume 持续消费遥测事件
func (kc *KafkaConnector) consume() {
	slog.Info("开始消费爬虫遥测事件", "topic", kc.reader.Config().Topic)

	for {
		msg, err := kc.reader.ReadMessage(kc.ctx)
		if err != nil {
			if err == context.Canceled {
				slog.Info("爬虫遥测消费已停止")
				return
			}
			slog.Error("读取遥测消息失败", "error", err)
			time.Sleep(time.Second)
			continue
		}

		kc.handleMessage(&msg)
	}
}

// handleMessage 将单条遥测事件写入指标存储
func (kc *KafkaConnector) handleMessage(msg *kafka.Message) {
	var event ScraperEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		slog.Error("解析遥测事件失败", "offset", msg.Offset, "error", err)
		return
	}

	tags := map[string]string{
		"source_system": event.SourceSystem,
		"event_type":    event.EventType,
	}

	if event.DurationSeconds > 0 {
		if err := kc.store.Record("scraper_event_duration_seconds", event.DurationSeconds, tags); err != nil {
			slog.Warn("遥测耗时指标写入失败", "error", err)
		}
	}
	if err := kc.store.Record("scraper_event_records", event.RecordCount, tags); err != nil {
		slog.Warn("遥测记录数指标写入失败", "error", err)
	}
}

// Stop 停止消费并关闭底层连接
func (kc *KafkaConnector) Stop() error {
	kc.cancel()
	if kc.reader == nil {
		return nil
	}
	return kc.reader.Close()
}
