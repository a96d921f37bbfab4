/*
 * @module service/quality/thresholds
 * @description 质量维度阈值表和权重表定义，负责指标等级判定和总分等级判定
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/quality_req.md
 * @stateFlow 指标值 -> 维度阈值表比对 -> 质量等级
 * @rules 各维度使用独立的五档阈值表；总体等级使用固定绝对分段，与维度阈值表刻意不同，未经产品确认不得统一
 * @dependencies procurement-monitor/service/models
 * @refs service/quality/quality_monitor.go
 */

package quality

import (
	"strings"

	"procurement-monitor/service/models"
)

// levelThresholds 单维度五档阈值
type levelThresholds struct {
	Excellent float64
	Good      float64
	Fair      float64
	Poor      float64
}

// qualityThresholds 各维度独立阈值表
var qualityThresholds = map[string]levelThresholds{
	models.DimensionCompleteness: {Excellent: 0.95, Good: 0.85, Fair: 0.70, Poor: 0.50},
	models.DimensionAccuracy:     {Excellent: 0.98, Good: 0.90, Fair: 0.80, Poor: 0.60},
	models.DimensionConsistency:  {Excellent: 0.95, Good: 0.85, Fair: 0.75, Poor: 0.60},
	models.DimensionTimeliness:   {Excellent: 0.90, Good: 0.80, Fair: 0.70, Poor: 0.50},
	models.DimensionUniqueness:   {Excellent: 0.98, Good: 0.90, Fair: 0.80, Poor: 0.60},
}

// dimensionWeights 总分加权表，顺序即指标名关键字匹配顺序
var dimensionOrder = []string{
	models.DimensionCompleteness,
	models.DimensionAccuracy,
	models.DimensionConsistency,
	models.DimensionTimeliness,
	models.DimensionUniqueness,
}

var dimensionWeights = map[string]float64{
	models.DimensionCompleteness: 0.30,
	models.DimensionAccuracy:     0.25,
	models.DimensionConsistency:  0.20,
	models.DimensionTimeliness:   0.15,
	models.DimensionUniqueness:   0.10,
}

// determineLevel 根据维度阈值表判定指标等级
func determineLevel(score float64, dimension string) models.QualityLevel {
	thresholds, exists := qualityThresholds[dimension]
	if !exists {
		return models.QualityCritical
	}

	switch {
	case score >= thresholds.Excellent:
		return models.QualityExcellent
	case score >= thresholds.Good:
		return models.QualityGood
	case score >= thresholds.Fair:
		return models.QualityFair
	case score >= thresholds.Poor:
		return models.QualityPoor
	default:
		return models.QualityCritical
	}
}

// goodThreshold 返回维度的 good 档阈值，作为指标的参考阈值
func goodThreshold(dimension string) float64 {
	return qualityThresholds[dimension].Good
}

// determineOverallLevel 根据固定绝对分段判定总体等级
func determineOverallLevel(score float64) models.QualityLevel {
	switch {
	case score >= 0.90:
		return models.QualityExcellent
	case score >= 0.80:
		return models.QualityGood
	case score >= 0.70:
		return models.QualityFair
	case score >= 0.50:
		return models.QualityPoor
	default:
		return models.QualityCritical
	}
}

// matchDimension 按固定顺序对指标名做关键字匹配，返回所属维度
// 指标命名约定：指标名必须原样包含所属维度关键字，否则不参与加权
func matchDimension(metricName string) (string, bool) {
	for _, dimension := range dimensionOrder {
		if strings.Contains(metricName, dimension) {
			return dimension, true
		}
	}
	return "", false
}

// calculateOverallScore 计算总体加权分
// 无指标时返回0；所有指标都未匹配维度时退化为全量算术平均
func calculateOverallScore(metrics []models.QualityMetric) float64 {
	if len(metrics) == 0 {
		return 0.0
	}

	weightedSum := 0.0
	totalWeight := 0.0

	for _, metric := range metrics {
		if dimension, matched := matchDimension(metric.Name); matched {
			weight := dimensionWeights[dimension]
			weightedSum += metric.Value * weight
			totalWeight += weight
		}
	}

	if totalWeight > 0 {
		return weightedSum / totalWeight
	}

	sum := 0.0
	for _, metric := range metrics {
		sum += metric.Value
	}
	return sum / float64(len(metrics))
}

// recommendationTemplates 按维度的整改建议模板
var recommendationTemplates = map[string]string{
	models.DimensionCompleteness: "完善 %s：在采集流程中补充字段校验规则，确保必填字段有值",
	models.DimensionAccuracy:     "提升 %s：加强数据清洗流程，修正格式不合法的记录",
	models.DimensionConsistency:  "解决 %s 问题：统一数据表示标准，检查状态与日期的矛盾记录",
	models.DimensionTimeliness:   "优化 %s：排查采集管道性能，缩短数据更新延迟",
	models.DimensionUniqueness:   "降低重复数据：增强重复检测算法，排查同一机构的相似公告",
}

// generateRecommendations 为 poor/critical 指标生成整改建议，结果去重
func generateRecommendations(metrics []models.QualityMetric) []string {
	seen := make(map[string]struct{})
	var recommendations []string

	for _, metric := range metrics {
		if !metric.Level.AtWorstPoor() {
			continue
		}

		dimension, matched := matchDimension(metric.Name)
		if !matched {
			continue
		}

		template := recommendationTemplates[dimension]
		recommendation := template
		if strings.Contains(template, "%s") {
			recommendation = strings.Replace(template, "%s", strings.ToLower(metric.Description), 1)
		}

		if _, exists := seen[recommendation]; !exists {
			seen[recommendation] = struct{}{}
			recommendations = append(recommendations, recommendation)
		}
	}

	return recommendations
}
