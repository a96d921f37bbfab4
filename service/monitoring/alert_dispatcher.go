/*
 * @module service/monitoring/alert_dispatcher
 * @description 告警分发器，维护通知渠道注册表并将告警逐一分发到各渠道
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow 告警产生 -> 渠道遍历 -> 逐渠道发送 -> 错误隔离记录
 * @rules 单渠道发送失败只记录日志并继续后续渠道，分发本身不返回错误
 * @dependencies procurement-monitor/service/models, github.com/prometheus/client_golang/prometheus
 * @refs service/monitoring/notification.go, service/monitoring/pipeline_monitor.go
 */

package monitoring

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"procurement-monitor/service/models"
)

var alertsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pipeline_monitor_alerts_total",
	Help: "按级别统计的已分发告警总数",
}, []string{"severity"})

// AlertDispatcher 告警分发器
type AlertDispatcher struct {
	mu       sync.RWMutex
	channels map[string]AlertSender
}

// NewAlertDispatcher 创建告警分发器，默认注册日志渠道
func NewAlertDispatcher() *AlertDispatcher {
	dispatcher := &AlertDispatcher{
		channels: make(map[string]AlertSender),
	}
	dispatcher.Register(NewLogChannel())
	return dispatcher
}

// Register 注册通知渠道，同类型渠道后注册者覆盖前者
func (d *AlertDispatcher) Register(sender AlertSender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[sender.ChannelType()] = sender
}

// Channels 返回当前已注册的渠道类型列表
func (d *AlertDispatcher) Channels() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	types := make([]string, 0, len(d.channels))
	for channelType := range d.channels {
		types = append(types, channelType)
	}
	return types
}

// Dispatch 将一批告警分发到所有已注册渠道
// 单渠道失败只记录日志，不影响其余渠道和其余告警
func (d *AlertDispatcher) Dispatch(ctx context.Context, alerts []*models.Alert) {
	if len(alerts) == 0 {
		return
	}

	d.mu.RLock()
	senders := make([]AlertSender, 0, len(d.channels))
	for _, sender := range d.channels {
		senders = append(senders, sender)
	}
	d.mu.RUnlock()

	for _, alert := range alerts {
		alertsDispatched.WithLabelValues(string(alert.Severity)).Inc()
		for _, sender := range senders {
			if err := sender.Send(ctx, alert); err != nil {
				slog.Error("告警渠道发送失败", "channel", sender.ChannelType(),
					"alert_id", alert.ID, "error", err)
			}
		}
	}
}
