/*
 * @module service/cache/report_cache
 * @description 质量报告Redis缓存，缓存各数据源最近一次质量报告供API快速读取
 * @architecture 工具层 - 提供报告缓存能力
 * @documentReference dev_docs/quality_req.md
 * @stateFlow 报告生成 -> JSON序列化 -> Redis写入 -> API读取
 * @rules Redis未配置时缓存退化为空操作，读取返回未命中；缓存失败不影响报告生成主流程
 * @dependencies procurement-monitor/service/models, github.com/go-redis/redis/v8
 * @refs service/scheduler/scheduler_service.go, api/controllers/quality_controller.go
 */

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"procurement-monitor/service/models"
)

// 报告缓存有效期
const reportTTL = 26 * time.Hour

// ReportCache 质量报告缓存
type ReportCache struct {
	client *redis.Client
}

// NewReportCache 创建报告缓存实例，addr为空时返回空操作缓存
func NewReportCache(addr, password string) *ReportCache {
	if addr == "" {
		slog.Warn("Redis未配置，质量报告缓存已禁用")
		return &ReportCache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis连接失败，质量报告缓存已禁用", "addr", addr, "error", err)
		return &ReportCache{}
	}

	slog.Info("质量报告缓存初始化成功", "redis_addr", addr)
	return &ReportCache{client: client}
}

// reportKey 构造数据源报告的缓存键
func reportKey(sourceSystem string) string {
	return fmt.Sprintf("quality:report:%s", sourceSystem)
}

// Put 写入数据源的最新质量报告
func (c *ReportCache) Put(ctx context.Context, report *models.QualityReport) error {
	if c.client == nil {
		return nil
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("序列化质量报告失败: %w", err)
	}

	if err := c.client.Set(ctx, reportKey(report.SourceSystem), payload, reportTTL).Err(); err != nil {
		return fmt.Errorf("写入报告缓存失败: %w", err)
	}
	return nil
}

// Get 读取数据源的最新质量报告，未命中时返回 (nil, nil)
func (c *ReportCache) Get(ctx context.Context, sourceSystem string) (*models.QualityReport, error) {
	if c.client == nil {
		return nil, nil
	}

	payload, err := c.client.Get(ctx, reportKey(sourceSystem)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取报告缓存失败: %w", err)
	}

	var report models.QualityReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("反序列化质量报告失败: %w", err)
	}
	return &report, nil
}
