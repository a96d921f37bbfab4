/*
 * @module api/controllers/quality_controller
 * @description 数据质量控制器，提供质量报告生成和缓存读取接口
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/quality_req.md
 * @stateFlow HTTP请求 -> 缓存读取/引擎调用 -> 统一响应
 * @rules 默认优先返回缓存的调度周期报告；指定days参数时绕过缓存同步生成
 * @dependencies procurement-monitor/service, github.com/go-chi/render
 * @refs service/quality/quality_monitor.go
 */

package controllers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/spf13/cast"

	"procurement-monitor/service"
)

// QualityController 数据质量控制器
type QualityController struct{}

// NewQualityController 创建数据质量控制器实例
func NewQualityController() *QualityController {
	return &QualityController{}
}

// GetQualityReport 获取数据源质量报告
// @Summary 获取数据质量报告
// @Description 返回指定数据源的质量报告，未指定days时优先返回缓存的调度周期报告
// @Tags 数据质量
// @Produce json
// @Param source query string true "数据源系统标识"
// @Param days query int false "统计窗口天数，指定时同步生成新报告"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /quality/report [get]
func (c *QualityController) GetQualityReport(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		render.JSON(w, r, BadRequestResponse("数据源标识不能为空", nil))
		return
	}

	daysParam := r.URL.Query().Get("days")

	// 未显式指定窗口时优先使用调度周期缓存的报告
	if daysParam == "" {
		cached, err := service.GlobalReportCache.Get(r.Context(), source)
		if err != nil {
			slog.Warn("读取质量报告缓存失败", "source_system", source, "error", err)
		}
		if cached != nil {
			render.JSON(w, r, SuccessResponse("获取数据质量报告成功", cached))
			return
		}
	}

	days := cast.ToInt(daysParam)
	if days <= 0 {
		days = service.GlobalConfig.QualityWindowDays
	}

	report, err := service.GlobalQualityMonitor.GenerateQualityReport(r.Context(), source, days)
	if err != nil {
		render.JSON(w, r, BadRequestResponse("生成数据质量报告失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取数据质量报告成功", report))
}

// ListSources 列出监控的数据源
// @Summary 列出监控数据源
// @Description 返回当前配置的全部被监控数据源系统标识
// @Tags 数据质量
// @Produce json
// @Success 200 {object} APIResponse
// @Router /quality/sources [get]
func (c *QualityController) ListSources(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SuccessResponse("获取数据源列表成功", service.GlobalConfig.Sources))
}
