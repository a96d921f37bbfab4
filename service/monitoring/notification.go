/*
 * @module service/monitoring/notification
 * @description 告警通知渠道实现，提供日志、邮件、Webhook三种发送渠道
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow 告警分发器 -> 渠道选择 -> 渠道发送 -> 结果回报
 * @rules 渠道未配置时跳过发送并记录警告，不视为错误；邮件与Webhook发送失败向上返回错误由分发器记录
 * @dependencies procurement-monitor/service/models, procurement-monitor/service/config
 * @refs service/monitoring/alert_dispatcher.go
 */

package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"procurement-monitor/service/config"
	"procurement-monitor/service/models"
)

// 通知渠道类型常量
const (
	ChannelLog     = "log"
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// AlertSender 告警通知渠道接口
type AlertSender interface {
	// Send 发送单条告警，渠道未配置时返回 nil 并记录警告
	Send(ctx context.Context, alert *models.Alert) error
	// ChannelType 返回渠道类型标识
	ChannelType() string
}

// LogChannel 日志通知渠道，按告警级别映射日志级别
type LogChannel struct{}

// NewLogChannel 创建日志通知渠道
func NewLogChannel() *LogChannel {
	return &LogChannel{}
}

// ChannelType 返回渠道类型标识
func (c *LogChannel) ChannelType() string {
	return ChannelLog
}

// Send 按告警级别写入结构化日志
func (c *LogChannel) Send(_ context.Context, alert *models.Alert) error {
	attrs := []any{
		"alert_id", alert.ID,
		"alert_type", alert.Type,
		"severity", alert.Severity,
		"source", alert.Source,
		"message", alert.Message,
	}

	switch alert.Severity {
	case models.SeverityCritical:
		slog.Error("严重告警: "+alert.Title, attrs...)
	case models.SeverityHigh:
		slog.Error("高级告警: "+alert.Title, attrs...)
	case models.SeverityMedium:
		slog.Warn("中级告警: "+alert.Title, attrs...)
	default:
		slog.Info("低级告警: "+alert.Title, attrs...)
	}
	return nil
}

// EmailChannel 邮件通知渠道
type EmailChannel struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	// sendMail 可注入的底层发送函数，便于测试
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailChannel 根据配置创建邮件通知渠道
func NewEmailChannel(cfg *config.MonitorConfig) *EmailChannel {
	return &EmailChannel{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.AlertFrom,
		to:       cfg.AlertTo,
		sendMail: smtp.SendMail,
	}
}

// ChannelType 返回渠道类型标识
func (c *EmailChannel) ChannelType() string {
	return ChannelEmail
}

// configured 判断邮件渠道是否已完整配置
func (c *EmailChannel) configured() bool {
	return c.host != "" && c.from != "" && len(c.to) > 0
}

// Send 发送告警邮件，未配置SMTP时跳过并记录警告
func (c *EmailChannel) Send(_ context.Context, alert *models.Alert) error {
	if !c.configured() {
		slog.Warn("邮件渠道未配置，跳过告警发送", "alert_id", alert.ID)
		return nil
	}

	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title)

	var body bytes.Buffer
	body.WriteString(fmt.Sprintf("From: %s\r\n", c.from))
	body.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(c.to, ", ")))
	body.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	body.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n")
	body.WriteString("<html><body>")
	body.WriteString(fmt.Sprintf("<h2>%s</h2>", alert.Title))
	body.WriteString(fmt.Sprintf("<p><b>级别:</b> %s</p>", alert.Severity))
	body.WriteString(fmt.Sprintf("<p><b>来源:</b> %s</p>", alert.Source))
	body.WriteString(fmt.Sprintf("<p><b>时间:</b> %s</p>", alert.Timestamp.Format(time.RFC3339)))
	body.WriteString(fmt.Sprintf("<p>%s</p>", alert.Message))
	if len(alert.Metadata) > 0 {
		if details, err := json.MarshalIndent(alert.Metadata, "", "  "); err == nil {
			body.WriteString("<h3>Additional Details</h3>")
			body.WriteString(fmt.Sprintf("<pre>%s</pre>", details))
		}
	}
	body.WriteString("</body></html>")

	var auth smtp.Auth
	if c.username != "" {
		auth = smtp.PlainAuth("", c.username, c.password, c.host)
	}

	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	if err := c.sendMail(addr, auth, c.from, c.to, body.Bytes()); err != nil {
		return fmt.Errorf("发送告警邮件失败: %w", err)
	}

	slog.Info("告警邮件发送成功", "alert_id", alert.ID, "recipients", len(c.to))
	return nil
}

// WebhookChannel Webhook通知渠道，向外部端点POST告警JSON
type WebhookChannel struct {
	url    string
	client *http.Client
}

// NewWebhookChannel 根据配置创建Webhook通知渠道
func NewWebhookChannel(cfg *config.MonitorConfig) *WebhookChannel {
	return &WebhookChannel{
		url: cfg.WebhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ChannelType 返回渠道类型标识
func (c *WebhookChannel) ChannelType() string {
	return ChannelWebhook
}

// Send 向Webhook端点POST告警，未配置URL时跳过并记录警告
func (c *WebhookChannel) Send(ctx context.Context, alert *models.Alert) error {
	if c.url == "" {
		slog.Warn("Webhook渠道未配置，跳过告警发送", "alert_id", alert.ID)
		return nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("序列化告警失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("构造Webhook请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("调用Webhook失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Webhook返回非成功状态码: %d", resp.StatusCode)
	}

	slog.Info("Webhook告警发送成功", "alert_id", alert.ID, "status_code", resp.StatusCode)
	return nil
}
