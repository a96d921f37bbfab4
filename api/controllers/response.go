/*
 * @module api/controllers/response
 * @description 统一API响应结构和构造辅助函数
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 无状态响应构造
 * @rules 所有接口统一返回 APIResponse 结构，status 使用HTTP状态码语义
 * @dependencies net/http
 * @refs api/routes.go
 */

package controllers

import "net/http"

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"200"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// SuccessResponse 构造成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{
		Status: http.StatusOK,
		Msg:    msg,
		Data:   data,
	}
}

// BadRequestResponse 构造参数错误响应
func BadRequestResponse(msg string, err error) *APIResponse {
	return errorResponse(http.StatusBadRequest, msg, err)
}

// NotFoundResponse 构造资源不存在响应
func NotFoundResponse(msg string) *APIResponse {
	return &APIResponse{
		Status: http.StatusNotFound,
		Msg:    msg,
	}
}

// InternalErrorResponse 构造服务内部错误响应
func InternalErrorResponse(msg string, err error) *APIResponse {
	return errorResponse(http.StatusInternalServerError, msg, err)
}

func errorResponse(status int, msg string, err error) *APIResponse {
	response := &APIResponse{
		Status: status,
		Msg:    msg,
	}
	if err != nil {
		response.Data = err.Error()
	}
	return response
}
