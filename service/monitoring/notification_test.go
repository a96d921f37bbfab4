/*
 * @module service/monitoring/notification_test
 * @description 通知渠道和告警分发器的单元测试
 * @architecture 测试层
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow 告警构造 -> 渠道发送 -> 结果验证
 * @rules 邮件发送通过注入桩函数验证，Webhook通过httptest服务端验证
 * @dependencies testing, net/http/httptest, github.com/stretchr/testify/assert
 * @refs service/monitoring/notification.go
 */

package monitoring

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-monitor/service/config"
	"procurement-monitor/service/models"
)

func testAlert(severity models.AlertSeverity) *models.Alert {
	return &models.Alert{
		ID:        "ingestion_20250101_120000",
		Type:      models.AlertTypePipelineFailure,
		Severity:  severity,
		Title:     "Pipeline Ingestion Issue",
		Message:   "Ingestion failure rate is 15.0% (threshold: 10.0%)",
		Source:    "ingestion",
		Timestamp: time.Now(),
		Metadata:  models.JSONB{"failure_rate": 0.15},
	}
}

// TestEmailChannelSkipsWhenUnconfigured SMTP未配置时跳过发送且不报错
func TestEmailChannelSkipsWhenUnconfigured(t *testing.T) {
	channel := NewEmailChannel(&config.MonitorConfig{})

	err := channel.Send(context.Background(), testAlert(models.SeverityHigh))
	assert.NoError(t, err)
}

// TestEmailChannelSend 已配置时通过底层发送函数发出邮件
func TestEmailChannelSend(t *testing.T) {
	channel := NewEmailChannel(&config.MonitorConfig{
		SMTPHost:  "smtp.example.ro",
		SMTPPort:  587,
		AlertFrom: "monitor@example.ro",
		AlertTo:   []string{"admin@example.ro", "oncall@example.ro"},
	})

	var sentAddr, sentFrom string
	var sentTo []string
	var sentBody []byte
	channel.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sentAddr, sentFrom, sentTo, sentBody = addr, from, to, msg
		return nil
	}

	err := channel.Send(context.Background(), testAlert(models.SeverityCritical))
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.ro:587", sentAddr)
	assert.Equal(t, "monitor@example.ro", sentFrom)
	assert.Equal(t, []string{"admin@example.ro", "oncall@example.ro"}, sentTo)
	assert.Contains(t, string(sentBody), "Subject: [CRITICAL] Pipeline Ingestion Issue")
	assert.Contains(t, string(sentBody), "Ingestion failure rate")
	assert.Contains(t, string(sentBody), "Additional Details")
	assert.Contains(t, string(sentBody), "failure_rate")
}

// TestEmailChannelBodyWithoutMetadata 无元数据的告警不渲染详情区块
func TestEmailChannelBodyWithoutMetadata(t *testing.T) {
	channel := NewEmailChannel(&config.MonitorConfig{
		SMTPHost:  "smtp.example.ro",
		SMTPPort:  587,
		AlertFrom: "monitor@example.ro",
		AlertTo:   []string{"admin@example.ro"},
	})

	var sentBody []byte
	channel.sendMail = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		sentBody = msg
		return nil
	}

	alert := testAlert(models.SeverityHigh)
	alert.Metadata = nil
	require.NoError(t, channel.Send(context.Background(), alert))
	assert.NotContains(t, string(sentBody), "Additional Details")
}

// TestEmailChannelSendError 底层发送失败时错误向上传播
func TestEmailChannelSendError(t *testing.T) {
	channel := NewEmailChannel(&config.MonitorConfig{
		SMTPHost:  "smtp.example.ro",
		SMTPPort:  587,
		AlertFrom: "monitor@example.ro",
		AlertTo:   []string{"admin@example.ro"},
	})
	channel.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := channel.Send(context.Background(), testAlert(models.SeverityHigh))
	assert.Error(t, err)
}

// TestWebhookChannelSkipsWhenUnconfigured URL未配置时跳过发送且不报错
func TestWebhookChannelSkipsWhenUnconfigured(t *testing.T) {
	channel := NewWebhookChannel(&config.MonitorConfig{})

	err := channel.Send(context.Background(), testAlert(models.SeverityHigh))
	assert.NoError(t, err)
}

// TestWebhookChannelSend 测试Webhook POST发送
func TestWebhookChannelSend(t *testing.T) {
	var receivedContentType string
	var receivedBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewWebhookChannel(&config.MonitorConfig{WebhookURL: server.URL})

	err := channel.Send(context.Background(), testAlert(models.SeverityHigh))
	require.NoError(t, err)
	assert.Equal(t, "application/json", receivedContentType)
	assert.Contains(t, string(receivedBody), "ingestion_20250101_120000")
}

// TestWebhookChannelNon2xx 非成功状态码返回错误
func TestWebhookChannelNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	channel := NewWebhookChannel(&config.MonitorConfig{WebhookURL: server.URL})

	err := channel.Send(context.Background(), testAlert(models.SeverityHigh))
	assert.Error(t, err)
}

// failingChannel 总是发送失败的测试渠道
type failingChannel struct{ sent int }

func (c *failingChannel) ChannelType() string { return "failing" }
func (c *failingChannel) Send(context.Context, *models.Alert) error {
	c.sent++
	return errors.New("send failed")
}

// TestDispatcherIsolatesChannelFailures 单渠道失败不影响其余渠道
func TestDispatcherIsolatesChannelFailures(t *testing.T) {
	failing := &failingChannel{}
	capture := &captureChannel{}

	dispatcher := NewAlertDispatcher()
	dispatcher.Register(failing)
	dispatcher.Register(capture)

	alerts := []*models.Alert{
		testAlert(models.SeverityHigh),
		testAlert(models.SeverityCritical),
	}
	dispatcher.Dispatch(context.Background(), alerts)

	assert.Equal(t, 2, failing.sent)
	assert.Len(t, capture.alerts, 2)
}

// TestDispatcherRegisterOverwrites 同类型渠道后注册者覆盖前者
func TestDispatcherRegisterOverwrites(t *testing.T) {
	dispatcher := NewAlertDispatcher()
	first := &captureChannel{}
	second := &captureChannel{}

	dispatcher.Register(first)
	dispatcher.Register(second)

	dispatcher.Dispatch(context.Background(), []*models.Alert{testAlert(models.SeverityLow)})

	assert.Empty(t, first.alerts)
	assert.Len(t, second.alerts, 1)
	assert.Contains(t, dispatcher.Channels(), "capture")
	assert.Contains(t, dispatcher.Channels(), "log")
}
