/*
 * @module service/monitoring/quality_alerter
 * @description 数据质量告警桥接器，周期性生成各数据源的质量报告并对劣化数据源发出质量告警
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow 质量报告生成 -> 等级判定 -> 质量告警合成 -> 渠道分发
 * @rules 整体等级与单项指标等级达到 poor/critical 均触发告警，单项告警按指标名去重；单数据源报告生成失败只记录日志并继续其余数据源
 * @dependencies procurement-monitor/service/models, procurement-monitor/service/config
 * @refs service/monitoring/pipeline_monitor.go, service/quality/quality_monitor.go
 */

package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"procurement-monitor/service/config"
	"procurement-monitor/service/models"
)

// QualityAlerter 数据质量告警桥接器
type QualityAlerter struct {
	cfg        *config.MonitorConfig
	reporter   QualityReporter
	dispatcher *AlertDispatcher
}

// NewQualityAlerter 创建质量告警桥接器实例
func NewQualityAlerter(cfg *config.MonitorConfig, reporter QualityReporter,
	dispatcher *AlertDispatcher) *QualityAlerter {
	return &QualityAlerter{
		cfg:        cfg,
		reporter:   reporter,
		dispatcher: dispatcher,
	}
}

// CheckAndAlert 为全部配置数据源生成质量报告，劣化的整体等级或单项指标触发质量告警
// 返回本周期生成的报告集合供调用方缓存或展示
func (a *QualityAlerter) CheckAndAlert(ctx context.Context) []*models.QualityReport {
	var reports []*models.QualityReport

	for _, source := range a.cfg.Sources {
		report, err := a.reporter.GenerateQualityReport(ctx, source, a.cfg.QualityWindowDays)
		if err != nil {
			slog.Error("质量告警检查失败", "source_system", source, "error", err)
			continue
		}
		reports = append(reports, report)

		if alerts := a.buildAlerts(source, report); len(alerts) > 0 {
			a.dispatcher.Dispatch(ctx, alerts)
		}
	}

	return reports
}

// buildAlerts 合成单数据源的质量告警：整体等级告警加上单项指标告警，指标按名去重
func (a *QualityAlerter) buildAlerts(source string, report *models.QualityReport) []*models.Alert {
	var alerts []*models.Alert
	now := time.Now()
	ts := now.Format("20060102_150405")

	if report.OverallLevel.AtWorstPoor() {
		alerts = append(alerts, &models.Alert{
			ID:       fmt.Sprintf("quality_%s_%s", source, ts),
			Type:     models.AlertTypeDataQuality,
			Severity: qualitySeverity(report.OverallLevel),
			Title:    fmt.Sprintf("Data Quality Degradation: %s", source),
			Message: fmt.Sprintf("Data quality for %s dropped to %s (score %.2f)",
				source, report.OverallLevel, report.OverallScore),
			Source:    source,
			Timestamp: now,
			Metadata: models.JSONB{
				"overall_score":         report.OverallScore,
				"overall_level":         string(report.OverallLevel),
				"metrics_count":         len(report.Metrics),
				"recommendations_count": len(report.Recommendations),
				"period_start":          report.PeriodStart.Format(time.RFC3339),
				"period_end":            report.PeriodEnd.Format(time.RFC3339),
			},
		})
	}

	seen := map[string]bool{}
	for _, metric := range report.Metrics {
		if !metric.Level.AtWorstPoor() || seen[metric.Name] {
			continue
		}
		seen[metric.Name] = true

		alerts = append(alerts, &models.Alert{
			ID:       fmt.Sprintf("quality_%s_%s_%s", source, metric.Name, ts),
			Type:     models.AlertTypeDataQuality,
			Severity: qualitySeverity(metric.Level),
			Title:    fmt.Sprintf("Data Quality Metric Degradation: %s", source),
			Message: fmt.Sprintf("Quality metric %s for %s dropped to %s (value %.2f)",
				metric.Name, source, metric.Level, metric.Value),
			Source:    source,
			Timestamp: now,
			Metadata: models.JSONB{
				"metric_name":  metric.Name,
				"metric_value": metric.Value,
				"metric_level": string(metric.Level),
				"threshold":    metric.Threshold,
			},
		})
	}

	return alerts
}

// qualitySeverity 质量等级到告警级别的映射
func qualitySeverity(level models.QualityLevel) models.AlertSeverity {
	if level == models.QualityCritical {
		return models.SeverityCritical
	}
	return models.SeverityHigh
}
