/*
 * @module service/quality/quality_monitor
 * @description 数据质量监控引擎，按完整性、准确性、一致性、时效性、唯一性五个维度计算质量指标，聚合加权总分并生成整改建议
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_req.md
 * @stateFlow 维度指标计算 -> 等级判定 -> 加权聚合 -> 建议生成 -> 报告输出
 * @rules 单维度计算失败只记录日志并跳过该维度，不中断整份报告；统计窗口必须显式给定并受上限约束
 * @dependencies procurement-monitor/service/models, gorm.io/gorm, github.com/google/uuid
 * @refs service/monitoring/pipeline_monitor.go, service/quality/validators.go
 */

package quality

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procurement-monitor/service/models"
)

// 时效性评分参考常量
const (
	maxAcceptableIngestion = 3600.0 // 可接受的单任务采集秒数
	maxAcceptableFreshness = 24.0   // 可接受的数据新鲜度小时数
)

// Monitor 数据质量监控引擎
type Monitor struct {
	db            *gorm.DB
	maxWindowDays int
}

// NewMonitor 创建数据质量监控引擎实例
func NewMonitor(db *gorm.DB, maxWindowDays int) *Monitor {
	if maxWindowDays <= 0 {
		maxWindowDays = 31
	}
	return &Monitor{
		db:            db,
		maxWindowDays: maxWindowDays,
	}
}

// GenerateQualityReport 生成指定数据源在统计窗口内的质量报告
// 窗口天数为必填参数：重复检测对窗口内记录数是 O(n²)，调用方必须限制窗口规模
func (m *Monitor) GenerateQualityReport(ctx context.Context, sourceSystem string, windowDays int) (*models.QualityReport, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("统计窗口天数必须大于0: %d", windowDays)
	}
	if windowDays > m.maxWindowDays {
		return nil, fmt.Errorf("统计窗口天数 %d 超过上限 %d", windowDays, m.maxWindowDays)
	}

	slog.Info("开始生成数据质量报告", "source_system", sourceSystem, "window_days", windowDays)

	endTime := time.Now()
	startTime := endTime.AddDate(0, 0, -windowDays)

	// 各维度独立计算，单维度失败只记录日志，不中断整份报告
	var metrics []models.QualityMetric

	calculators := []struct {
		dimension string
		calculate func(context.Context, string, time.Time, time.Time) ([]models.QualityMetric, error)
	}{
		{models.DimensionCompleteness, m.calculateCompletenessMetrics},
		{models.DimensionAccuracy, m.calculateAccuracyMetrics},
		{models.DimensionConsistency, m.calculateConsistencyMetrics},
		{models.DimensionTimeliness, m.calculateTimelinessMetrics},
		{models.DimensionUniqueness, m.calculateUniquenessMetrics},
	}

	for _, calculator := range calculators {
		dimensionMetrics, err := calculator.calculate(ctx, sourceSystem, startTime, endTime)
		if err != nil {
			slog.Error("质量维度计算失败", "dimension", calculator.dimension,
				"source_system", sourceSystem, "error", err)
			continue
		}
		metrics = append(metrics, dimensionMetrics...)
	}

	overallScore := calculateOverallScore(metrics)

	report := &models.QualityReport{
		ID:              uuid.New().String(),
		SourceSystem:    sourceSystem,
		OverallScore:    overallScore,
		OverallLevel:    determineOverallLevel(overallScore),
		Metrics:         metrics,
		Recommendations: generateRecommendations(metrics),
		GeneratedAt:     time.Now(),
		PeriodStart:     startTime,
		PeriodEnd:       endTime,
	}

	slog.Info("数据质量报告生成完成", "source_system", sourceSystem,
		"overall_score", report.OverallScore, "overall_level", report.OverallLevel,
		"metrics_count", len(report.Metrics))

	return report, nil
}

// loadTenders 加载窗口内的采购公告
func (m *Monitor) loadTenders(ctx context.Context, sourceSystem string, startTime, endTime time.Time, preloadAuthority bool) ([]models.Tender, error) {
	query := m.db.WithContext(ctx).
		Where("source_system = ? AND created_at >= ? AND created_at <= ?", sourceSystem, startTime, endTime)
	if preloadAuthority {
		query = query.Preload("ContractingAuthority")
	}

	var tenders []models.Tender
	if err := query.Find(&tenders).Error; err != nil {
		return nil, fmt.Errorf("查询采购公告失败: %w", err)
	}
	return tenders, nil
}

// requiredFields 完整性检查的必填字段集合
var requiredFields = []struct {
	name        string
	description string
	isComplete  func(*models.Tender) bool
}{
	{"title", "公告标题完整性", func(t *models.Tender) bool { return t.Title != "" }},
	{"description", "公告描述完整性", func(t *models.Tender) bool { return t.Description != "" }},
	{"estimated_value", "预估金额完整性", func(t *models.Tender) bool { return t.EstimatedValue != nil }},
	{"publication_date", "发布日期完整性", func(t *models.Tender) bool { return t.PublicationDate != nil }},
	{"submission_deadline", "投标截止日期完整性", func(t *models.Tender) bool { return t.SubmissionDeadline != nil }},
	{"contracting_authority_id", "采购机构完整性", func(t *models.Tender) bool { return t.ContractingAuthorityID != nil }},
}

// calculateCompletenessMetrics 计算完整性指标，每个必填字段产出一条指标
func (m *Monitor) calculateCompletenessMetrics(ctx context.Context, sourceSystem string, startTime, endTime time.Time) ([]models.QualityMetric, error) {
	tenders, err := m.loadTenders(ctx, sourceSystem, startTime, endTime, false)
	if err != nil {
		return nil, err
	}

	totalTenders := len(tenders)
	if totalTenders == 0 {
		return nil, nil
	}

	var metrics []models.QualityMetric
	for _, field := range requiredFields {
		completeCount := 0
		for i := range tenders {
			if field.isComplete(&tenders[i]) {
				completeCount++
			}
		}

		score := float64(completeCount) / float64(totalTenders)
		metrics = append(metrics, models.QualityMetric{
			Name:        field.name + "_completeness",
			Value:       score,
			Threshold:   goodThreshold(models.DimensionCompleteness),
			Level:       determineLevel(score, models.DimensionCompleteness),
			Description: field.description,
			Details: models.JSONB{
				"total_records":      totalTenders,
				"complete_records":   completeCount,
				"incomplete_records": totalTenders - completeCount,
			},
			MeasuredAt: time.Now(),
		})
	}

	return metrics, nil
}

// calculateAccuracyMetrics 计算准确性指标：邮箱格式、CUI格式、日期先后顺序
// 每项指标只在相关字段至少出现一次时产出，避免除零
func (m *Monitor) calculateAccuracyMetrics(ctx context.Context, sourceSystem string, startTime, endTime time.Time) ([]models.QualityMetric, error) {
	tenders, err := m.loadTenders(ctx, sourceSystem, startTime, endTime, true)
	if err != nil {
		return nil, err
	}

	if len(tenders) == 0 {
		return nil, nil
	}

	validEmails, totalEmails := 0, 0
	validCUIs, totalCUIs := 0, 0
	validDates, totalDates := 0, 0

	for i := range tenders {
		tender := &tenders[i]

		if authority := tender.ContractingAuthority; authority != nil {
			if authority.ContactEmail != "" {
				totalEmails++
				if isValidEmail(authority.ContactEmail) {
					validEmails++
				}
			}
			if authority.CUI != "" {
				totalCUIs++
				if isValidCUI(authority.CUI) {
					validCUIs++
				}
			}
		}

		// 投标截止日期必须严格晚于发布日期
		if tender.PublicationDate != nil && tender.SubmissionDeadline != nil {
			totalDates++
			if tender.SubmissionDeadline.After(*tender.PublicationDate) {
				validDates++
			}
		}
	}

	var metrics []models.QualityMetric
	now := time.Now()

	if totalEmails > 0 {
		score := float64(validEmails) / float64(totalEmails)
		metrics = append(metrics, models.QualityMetric{
			Name:        "email_accuracy",
			Value:       score,
			Threshold:   goodThreshold(models.DimensionAccuracy),
			Level:       determineLevel(score, models.DimensionAccuracy),
			Description: "联系邮箱格式准确性",
			Details: models.JSONB{
				"total_emails":   totalEmails,
				"valid_emails":   validEmails,
				"invalid_emails": totalEmails - validEmails,
			},
			MeasuredAt: now,
		})
	}

	if totalCUIs > 0 {
		score := float64(validCUIs) / float64(totalCUIs)
		metrics = append(metrics, models.QualityMetric{
			Name:        "cui_accuracy",
			Value:       score,
			Threshold:   goodThreshold(models.DimensionAccuracy),
			Level:       determineLevel(score, models.DimensionAccuracy),
			Description: "CUI财税码格式准确性",
			Details: models.JSONB{
				"total_cui":   totalCUIs,
				"valid_cui":   validCUIs,
				"invalid_cui": totalCUIs - validCUIs,
			},
			MeasuredAt: now,
		})
	}

	if totalDates > 0 {
		score := float64(validDates) / float64(totalDates)
		metrics = append(metrics, models.QualityMetric{
			Name:        "date_consistency",
			Value:       score,
			Threshold:   goodThreshold(models.DimensionAccuracy),
			Level:       determineLevel(score, models.DimensionAccuracy),
			Description: "日期先后顺序准确性",
			Details: models.JSONB{
				"total_date_pairs":   totalDates,
				"consistent_dates":   validDates,
				"inconsistent_dates": totalDates - validDates,
			},
			MeasuredAt: now,
		})
	}

	return metrics, nil
}

// calculateConsistencyMetrics 计算一致性指标：外部ID唯一性、状态与日期一致性
func (m *Monitor) calculateConsistencyMetrics(ctx context.Context, sourceSystem string, startTime, endTime time.Time) ([]models.QualityMetric, error) {
	var metrics []models.QualityMetric
	now := time.Now()

	// 外部ID按标识分组统计重复
	type idCount struct {
		ExternalID string
		Count      int
	}
	var idCounts []idCount
	err := m.db.WithContext(ctx).Model(&models.Tender{}).
		Select("external_id, count(id) as count").
		Where("source_system = ? AND created_at >= ? AND created_at <= ?", sourceSystem, startTime, endTime).
		Group("external_id").
		Scan(&idCounts).Error
	if err != nil {
		return nil, fmt.Errorf("统计外部ID分布失败: %w", err)
	}

	totalUniqueIDs := len(idCounts)
	if totalUniqueIDs > 0 {
		duplicateIDs := 0
		for _, entry := range idCounts {
			if entry.Count > 1 {
				duplicateIDs++
			}
		}

		score := float64(totalUniqueIDs-duplicateIDs) / float64(totalUniqueIDs)
		metrics = append(metrics, models.QualityMetric{
			Name:        "external_id_uniqueness",
			Value:       score,
			Threshold:   goodThreshold(models.DimensionUniqueness),
			Level:       determineLevel(score, models.DimensionUniqueness),
			Description: "外部ID唯一性",
			Details: models.JSONB{
				"total_unique_ids":      totalUniqueIDs,
				"duplicate_ids":         duplicateIDs,
				"uniqueness_percentage": score * 100,
			},
			MeasuredAt: now,
		})
	}

	// 状态与截止日期的一致性
	var tenders []models.Tender
	err = m.db.WithContext(ctx).
		Where("source_system = ? AND created_at >= ? AND created_at <= ? AND status IS NOT NULL",
			sourceSystem, startTime, endTime).
		Find(&tenders).Error
	if err != nil {
		return nil, fmt.Errorf("查询带状态的公告失败: %w", err)
	}

	totalWithStatus := len(tenders)
	if totalWithStatus > 0 {
		consistentCount := 0
		for i := range tenders {
			if isStatusConsistent(&tenders[i], now) {
				consistentCount++
			}
		}

		score := float64(consistentCount) / float64(totalWithStatus)
		metrics = append(metrics, models.QualityMetric{
			Name:        "status_consistency",
			Value:       score,
			Threshold:   goodThreshold(models.DimensionConsistency),
			Level:       determineLevel(score, models.DimensionConsistency),
			Description: "状态与日期一致性",
			Details: models.JSONB{
				"total_tenders":       totalWithStatus,
				"consistent_status":   consistentCount,
				"inconsistent_status": totalWithStatus - consistentCount,
			},
			MeasuredAt: now,
		})
	}

	return metrics, nil
}

// calculateTimelinessMetrics 计算时效性指标：采集任务平均耗时和数据新鲜度
func (m *Monitor) calculateTimelinessMetrics(ctx context.Context, sourceSystem string, startTime, endTime time.Time) ([]models.QualityMetric, error) {
	var metrics []models.QualityMetric
	now := time.Now()

	// 窗口内已完成采集任务的平均耗时
	var jobs []models.IngestionJob
	err := m.db.WithContext(ctx).
		Where("source_system = ? AND started_at >= ? AND started_at <= ? AND status = ?",
			sourceSystem, startTime, endTime, models.JobStatusCompleted).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("查询采集任务日志失败: %w", err)
	}

	var durations []float64
	for i := range jobs {
		if jobs[i].CompletedAt != nil {
			durations = append(durations, jobs[i].CompletedAt.Sub(jobs[i].StartedAt).Seconds())
		}
	}

	if len(durations) > 0 {
		sum, maxDuration, minDuration := 0.0, durations[0], durations[0]
		for _, d := range durations {
			sum += d
			if d > maxDuration {
				maxDuration = d
			}
			if d < minDuration {
				minDuration = d
			}
		}
		avgDuration := sum / float64(len(durations))

		score := 1 - avgDuration/maxAcceptableIngestion
		if score < 0 {
			score = 0
		}

		metrics = append(metrics, models.QualityMetric{
			Name:        "ingestion_timeliness",
			Value:       score,
			Threshold:   goodThreshold(models.DimensionTimeliness),
			Level:       determineLevel(score, models.DimensionTimeliness),
			Description: "数据采集时效性",
			Details: models.JSONB{
				"average_ingestion_time": avgDuration,
				"max_ingestion_time":     maxDuration,
				"min_ingestion_time":     minDuration,
				"total_ingestions":       len(durations),
			},
			MeasuredAt: now,
		})
	}

	// 最近一次抓取时间距今的新鲜度
	var latest models.Tender
	err = m.db.WithContext(ctx).
		Where("source_system = ? AND created_at >= ? AND created_at <= ? AND last_scraped_at IS NOT NULL",
			sourceSystem, startTime, endTime).
		Order("last_scraped_at DESC").
		First(&latest).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return metrics, fmt.Errorf("查询最近抓取记录失败: %w", err)
	}

	if err == nil && latest.LastScrapedAt != nil {
		hoursSinceScrape := now.Sub(*latest.LastScrapedAt).Hours()

		score := 1 - hoursSinceScrape/maxAcceptableFreshness
		if score < 0 {
			score = 0
		}

		metrics = append(metrics, models.QualityMetric{
			Name:        "data_freshness",
			Value:       score,
			Threshold:   goodThreshold(models.DimensionTimeliness),
			Level:       determineLevel(score, models.DimensionTimeliness),
			Description: "数据新鲜度",
			Details: models.JSONB{
				"hours_since_last_scrape": hoursSinceScrape,
				"last_scrape_time":        latest.LastScrapedAt.Format(time.RFC3339),
				"max_acceptable_hours":    maxAcceptableFreshness,
			},
			MeasuredAt: now,
		})
	}

	return metrics, nil
}

// calculateUniquenessMetrics 计算唯一性指标：基于标题相似度的疑似重复检测
// 对窗口内记录做两两比较，复杂度 O(n²)，由窗口上限约束规模
func (m *Monitor) calculateUniquenessMetrics(ctx context.Context, sourceSystem string, startTime, endTime time.Time) ([]models.QualityMetric, error) {
	tenders, err := m.loadTenders(ctx, sourceSystem, startTime, endTime, false)
	if err != nil {
		return nil, err
	}

	totalTenders := len(tenders)
	if totalTenders == 0 {
		return nil, nil
	}

	// 每条记录最多计入一次疑似重复
	potentialDuplicates := 0
	for i := range tenders {
		for j := i + 1; j < totalTenders; j++ {
			if areTendersSimilar(&tenders[i], &tenders[j]) {
				potentialDuplicates++
				break
			}
		}
	}

	score := 1 - float64(potentialDuplicates)/float64(totalTenders)
	if score < 0 {
		score = 0
	}

	return []models.QualityMetric{{
		Name:        "tender_uniqueness",
		Value:       score,
		Threshold:   goodThreshold(models.DimensionUniqueness),
		Level:       determineLevel(score, models.DimensionUniqueness),
		Description: "公告唯一性",
		Details: models.JSONB{
			"total_tenders":        totalTenders,
			"potential_duplicates": potentialDuplicates,
			"unique_tenders":       totalTenders - potentialDuplicates,
		},
		MeasuredAt: time.Now(),
	}}, nil
}
