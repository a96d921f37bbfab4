/*
 * @module service/monitoring/metric_store_test
 * @description 内存指标存储的单元测试，覆盖容量淘汰、窗口摘要和并发写入
 * @architecture 测试层
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow 样本写入 -> 查询验证 -> 摘要验证
 * @rules 覆盖序列容量上限和非法指标名拒绝
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs service/monitoring/metric_store.go
 */

package monitoring

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-monitor/service/models"
)

// TestMetricStoreRecordAndGet 测试样本写入与读取
func TestMetricStoreRecordAndGet(t *testing.T) {
	store := NewMetricStore()

	require.NoError(t, store.Record("ingestion_failure_rate", 0.1, nil))
	require.NoError(t, store.Record("ingestion_failure_rate", 0.2,
		map[string]string{"source_system": "SICAP"}))

	samples := store.GetMetric("ingestion_failure_rate", 0, 0)
	require.Len(t, samples, 2)
	assert.Equal(t, 0.1, samples[0].Value)
	assert.Equal(t, 0.2, samples[1].Value)
	assert.Equal(t, "SICAP", samples[1].Tags["source_system"])
}

// TestMetricStoreInvalidName 非法指标名被拒绝
func TestMetricStoreInvalidName(t *testing.T) {
	store := NewMetricStore()

	assert.Error(t, store.Record("", 1.0, nil))
	assert.Error(t, store.Record("metric with spaces", 1.0, nil))
	assert.Error(t, store.Record("1starts_with_digit", 1.0, nil))
}

// TestMetricStoreCapacity 序列超过容量上限时淘汰最旧样本
func TestMetricStoreCapacity(t *testing.T) {
	store := NewMetricStore()

	for i := 0; i < maxSamplesPerSeries+50; i++ {
		require.NoError(t, store.Record("data_freshness_hours", float64(i), nil))
	}

	samples := store.GetMetric("data_freshness_hours", 0, 0)
	require.Len(t, samples, maxSamplesPerSeries)
	// 最旧的50条被淘汰
	assert.Equal(t, 50.0, samples[0].Value)
	assert.Equal(t, float64(maxSamplesPerSeries+49), samples[len(samples)-1].Value)
}

// TestMetricStoreGetWithLimit 读取时限定样本条数
func TestMetricStoreGetWithLimit(t *testing.T) {
	store := NewMetricStore()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Record("data_quality_score", float64(i), nil))
	}

	samples := store.GetMetric("data_quality_score", 0, 3)
	require.Len(t, samples, 3)
	assert.Equal(t, 7.0, samples[0].Value)

	assert.Empty(t, store.GetMetric("unknown_metric", 0, 3))
}

// TestMetricStoreGetWithWindow 读取时按时间窗口过滤样本
func TestMetricStoreGetWithWindow(t *testing.T) {
	store := NewMetricStore()

	// 直接预置窗口外的旧样本
	old := time.Now().Add(-2 * time.Hour)
	store.series["ingestion_failure_rate"] = []models.MetricSample{
		{Value: 0.5, Timestamp: old},
		{Value: 0.4, Timestamp: old.Add(time.Minute)},
	}
	require.NoError(t, store.Record("ingestion_failure_rate", 0.1, nil))

	samples := store.GetMetric("ingestion_failure_rate", time.Hour, 0)
	require.Len(t, samples, 1)
	assert.Equal(t, 0.1, samples[0].Value)

	// 无窗口时返回全部
	assert.Len(t, store.GetMetric("ingestion_failure_rate", 0, 0), 3)
	// 窗口与条数上限叠加
	assert.Len(t, store.GetMetric("ingestion_failure_rate", 3*time.Hour, 2), 2)

	// 全部样本都在窗口外
	store.series["data_quality_score"] = []models.MetricSample{{Value: 0.9, Timestamp: old}}
	assert.Empty(t, store.GetMetric("data_quality_score", time.Minute, 0))
}

// TestMetricStoreSummary 测试窗口统计摘要
func TestMetricStoreSummary(t *testing.T) {
	store := NewMetricStore()

	for _, value := range []float64{1, 2, 3, 4} {
		require.NoError(t, store.Record("ingestion_avg_duration_seconds", value, nil))
	}

	summary := store.GetMetricSummary("ingestion_avg_duration_seconds", time.Hour)
	assert.Equal(t, 4, summary.Count)
	require.NotNil(t, summary.Min)
	assert.Equal(t, 1.0, *summary.Min)
	assert.Equal(t, 4.0, *summary.Max)
	assert.Equal(t, 2.5, *summary.Avg)
	assert.Equal(t, 10.0, *summary.Sum)
}

// TestMetricStoreSummaryEmpty 无样本时摘要各统计值为空
func TestMetricStoreSummaryEmpty(t *testing.T) {
	store := NewMetricStore()

	summary := store.GetMetricSummary("unknown_metric", time.Hour)
	assert.Equal(t, 0, summary.Count)
	assert.Nil(t, summary.Min)
	assert.Nil(t, summary.Max)
	assert.Nil(t, summary.Avg)
	assert.Nil(t, summary.Sum)
}

// TestMetricStoreConcurrentAccess 并发读写不丢样本
func TestMetricStoreConcurrentAccess(t *testing.T) {
	store := NewMetricStore()

	var wg sync.WaitGroup
	for worker := 0; worker < 10; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			name := fmt.Sprintf("concurrent_metric_%d", worker)
			for i := 0; i < 50; i++ {
				_ = store.Record(name, float64(i), nil)
				store.GetMetricSummary(name, time.Minute)
			}
		}(worker)
	}
	wg.Wait()

	for worker := 0; worker < 10; worker++ {
		samples := store.GetMetric(fmt.Sprintf("concurrent_metric_%d", worker), 0, 0)
		assert.Len(t, samples, 50)
	}

	assert.Len(t, store.MetricNames(), 10)
}
