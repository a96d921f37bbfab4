/*
 * @module service/models/quality_models
 * @description 数据质量评估相关模型定义，包括质量等级、质量指标和质量报告
 * @architecture DDD领域驱动设计 - 值对象
 * @documentReference dev_docs/model.md
 * @stateFlow 指标计算 -> 等级判定 -> 报告聚合，报告生成后不可变
 * @rules 质量等级只能由指标值和维度阈值表推导，禁止手工设置
 * @dependencies time
 * @refs service/quality/quality_monitor.go
 */

package models

import "time"

// QualityLevel 数据质量等级，从优到劣有序
type QualityLevel string

const (
	QualityExcellent QualityLevel = "excellent"
	QualityGood      QualityLevel = "good"
	QualityFair      QualityLevel = "fair"
	QualityPoor      QualityLevel = "poor"
	QualityCritical  QualityLevel = "critical"
)

// qualityLevelRank 质量等级排序值，数值越大质量越好
var qualityLevelRank = map[QualityLevel]int{
	QualityCritical:  0,
	QualityPoor:      1,
	QualityFair:      2,
	QualityGood:      3,
	QualityExcellent: 4,
}

// Rank 返回质量等级的排序值，用于等级比较
func (l QualityLevel) Rank() int {
	return qualityLevelRank[l]
}

// AtWorstPoor 判断质量等级是否处于 poor 或 critical
func (l QualityLevel) AtWorstPoor() bool {
	return l == QualityPoor || l == QualityCritical
}

// 质量维度常量，指标名称必须包含所属维度关键字
const (
	DimensionCompleteness = "completeness"
	DimensionAccuracy     = "accuracy"
	DimensionConsistency  = "consistency"
	DimensionTimeliness   = "timeliness"
	DimensionUniqueness   = "uniqueness"
)

// QualityMetric 单项质量指标，创建后不可变
type QualityMetric struct {
	Name        string       `json:"name"`      // 如 title_completeness
	Value       float64      `json:"value"`     // [0,1]，时效类比率下限截断为0
	Threshold   float64      `json:"threshold"` // 该维度 good 档参考阈值
	Level       QualityLevel `json:"level"`
	Description string       `json:"description"`
	Details     JSONB        `json:"details"`
	MeasuredAt  time.Time    `json:"measured_at"`
}

// QualityReport 单数据源单时间窗口的质量报告，生成后不可变
type QualityReport struct {
	ID              string          `json:"id"`
	SourceSystem    string          `json:"source_system"`
	OverallScore    float64         `json:"overall_score"`
	OverallLevel    QualityLevel    `json:"overall_level"`
	Metrics         []QualityMetric `json:"metrics"`
	Recommendations []string        `json:"recommendations"`
	GeneratedAt     time.Time       `json:"generated_at"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
}
