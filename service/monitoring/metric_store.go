/*
 * @module service/monitoring/metric_store
 * @description 内存滚动指标存储，按指标名维护最近样本序列并提供统计摘要
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow 样本写入 -> 序列截断 -> 查询/摘要
 * @rules 每个指标序列最多保留 maxSamplesPerSeries 条样本，超出后淘汰最旧样本；指标名必须符合 Prometheus 命名规范
 * @dependencies procurement-monitor/service/models, github.com/prometheus/common/model
 * @refs service/monitoring/pipeline_monitor.go, service/event/event_service.go
 */

package monitoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/common/model"

	"procurement-monitor/service/models"
)

// 单个指标序列的最大样本数
const maxSamplesPerSeries = 1000

// MetricStore 内存滚动指标存储
type MetricStore struct {
	mu     sync.RWMutex
	series map[string][]models.MetricSample
}

// NewMetricStore 创建指标存储实例
func NewMetricStore() *MetricStore {
	return &MetricStore{
		series: make(map[string][]models.MetricSample),
	}
}

// Record 记录一条指标样本，序列超过容量上限时淘汰最旧样本
func (s *MetricStore) Record(name string, value float64, tags map[string]string) error {
	if !model.IsValidMetricName(model.LabelValue(name)) {
		return fmt.Errorf("非法指标名: %s", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	samples := append(s.series[name], models.MetricSample{
		Value:     value,
		Timestamp: time.Now(),
		Tags:      tags,
	})
	if len(samples) > maxSamplesPerSeries {
		samples = samples[len(samples)-maxSamplesPerSeries:]
	}
	s.series[name] = samples
	return nil
}

// GetMetric 返回指定指标在给定时间窗口内的最近 limit 条样本
// window<=0 时不做窗口过滤，limit<=0 时不限制条数
func (s *MetricStore) GetMetric(name string, window time.Duration, limit int) []models.MetricSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.series[name]
	if window > 0 {
		cutoff := time.Now().Add(-window)
		// 样本按写入时间有序，定位窗口内第一条即可
		start := len(samples)
		for i, sample := range samples {
			if !sample.Timestamp.Before(cutoff) {
				start = i
				break
			}
		}
		samples = samples[start:]
	}
	if limit > 0 && len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}

	result := make([]models.MetricSample, len(samples))
	copy(result, samples)
	return result
}

// GetMetricSummary 返回指定指标在给定时间窗口内的统计摘要
func (s *MetricStore) GetMetricSummary(name string, window time.Duration) models.MetricSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	summary := models.MetricSummary{}

	for _, sample := range s.series[name] {
		if sample.Timestamp.Before(cutoff) {
			continue
		}
		value := sample.Value
		summary.Count++
		if summary.Min == nil || value < *summary.Min {
			summary.Min = &value
		}
		if summary.Max == nil || value > *summary.Max {
			summary.Max = &value
		}
		if summary.Sum == nil {
			sum := value
			summary.Sum = &sum
		} else {
			*summary.Sum += value
		}
	}

	if summary.Count > 0 {
		avg := *summary.Sum / float64(summary.Count)
		summary.Avg = &avg
	}
	return summary
}

// MetricNames 返回当前存储的全部指标名
func (s *MetricStore) MetricNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	return names
}
