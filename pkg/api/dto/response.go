package dto

import (
	"github.com/LENAX/searchd-sidecar/pkg/core/task"
)

// APIResponse 通用API响应结构
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{
		Code:    code,
		Message: message,
	}
}

// QueryResponse 同步查询响应
type QueryResponse struct {
	Total   int            `json:"total"`
	Results []*task.Result `json:"results"`
}

// DeferredResponse 延迟执行响应
type DeferredResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskStatusResponse Task状态查询响应
type TaskStatusResponse struct {
	TaskID  string         `json:"task_id"`
	Status  string         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Results []*task.Result `json:"results,omitempty"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Daemon    string `json:"daemon"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}
