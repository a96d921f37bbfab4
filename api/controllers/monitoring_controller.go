/*
 * @module api/controllers/monitoring_controller
 * @description 管道监控控制器，提供管道健康报告、单任务状态和监控指标查询接口
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/monitoring_req.md
 * @stateFlow HTTP请求 -> 服务调用 -> 统一响应
 * @rules 健康检查接口优先返回最近一次调度周期的缓存报告，refresh=true时同步执行新周期
 * @dependencies procurement-monitor/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/monitoring/pipeline_monitor.go
 */

package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"procurement-monitor/service"
)

// MonitoringController 管道监控控制器
type MonitoringController struct{}

// NewMonitoringController 创建管道监控控制器实例
func NewMonitoringController() *MonitoringController {
	return &MonitoringController{}
}

// GetPipelineHealth 获取管道健康报告
// @Summary 获取管道健康报告
// @Description 返回最近一次调度周期的健康报告，refresh=true时同步执行一次新的检查周期
// @Tags 监控
// @Produce json
// @Param refresh query bool false "是否强制执行新的检查周期"
// @Success 200 {object} APIResponse
// @Router /monitoring/health [get]
func (c *MonitoringController) GetPipelineHealth(w http.ResponseWriter, r *http.Request) {
	refresh := cast.ToBool(r.URL.Query().Get("refresh"))

	if !refresh {
		if report := service.GlobalSchedulerService.LastHealthReport(); report != nil {
			render.JSON(w, r, SuccessResponse("获取管道健康报告成功", report))
			return
		}
	}

	report := service.GlobalPipelineMonitor.MonitorPipelineHealth(r.Context())
	render.JSON(w, r, SuccessResponse("获取管道健康报告成功", report))
}

// GetJobStatus 获取单个采集任务状态
// @Summary 获取采集任务状态
// @Description 按任务ID查询采集任务的运行状态快照
// @Tags 监控
// @Produce json
// @Param job_id path string true "采集任务ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /monitoring/jobs/{job_id} [get]
func (c *MonitoringController) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		render.JSON(w, r, BadRequestResponse("任务ID不能为空", nil))
		return
	}

	snapshot, err := service.GlobalPipelineMonitor.MonitorSpecificJob(r.Context(), jobID)
	if err == gorm.ErrRecordNotFound {
		render.JSON(w, r, NotFoundResponse("采集任务不存在: "+jobID))
		return
	}
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询采集任务失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取采集任务状态成功", snapshot))
}

// GetMetric 查询监控指标样本
// @Summary 查询监控指标
// @Description 返回指定指标的最近样本和窗口统计摘要
// @Tags 监控
// @Produce json
// @Param name path string true "指标名"
// @Param limit query int false "样本条数上限，默认100"
// @Param window_minutes query int false "样本与摘要统计窗口分钟数，默认60"
// @Success 200 {object} APIResponse
// @Router /monitoring/metrics/{name} [get]
func (c *MonitoringController) GetMetric(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		render.JSON(w, r, BadRequestResponse("指标名不能为空", nil))
		return
	}

	limit := cast.ToInt(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	windowMinutes := cast.ToInt(r.URL.Query().Get("window_minutes"))
	if windowMinutes <= 0 {
		windowMinutes = 60
	}

	window := time.Duration(windowMinutes) * time.Minute
	store := service.GlobalMetricStore
	result := map[string]interface{}{
		"name":    name,
		"samples": store.GetMetric(name, window, limit),
		"summary": store.GetMetricSummary(name, window),
	}

	render.JSON(w, r, SuccessResponse("获取监控指标成功", result))
}

// ListMetrics 列出全部监控指标名
// @Summary 列出监控指标
// @Description 返回当前存储的全部指标名
// @Tags 监控
// @Produce json
// @Success 200 {object} APIResponse
// @Router /monitoring/metrics [get]
func (c *MonitoringController) ListMetrics(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取指标列表成功", service.GlobalMetricStore.MetricNames()))
}
