package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/searchd-sidecar/pkg/api/dto"
	"github.com/LENAX/searchd-sidecar/pkg/client"
)

// Version 版本号（编译时注入）
var Version = "1.0.0"

// HealthHandler 健康检查处理器
type HealthHandler struct {
	daemon    *client.Searchd
	startedAt time.Time
}

// NewHealthHandler 创建HealthHandler
func NewHealthHandler(daemon *client.Searchd) *HealthHandler {
	return &HealthHandler{
		daemon:    daemon,
		startedAt: time.Now(),
	}
}

// Check 健康检查
// GET /health
// 守护进程探活失败时降级为degraded，HTTP状态仍为200
func (h *HealthHandler) Check(c *gin.Context) {
	status := "ok"
	daemonStatus := "ok"
	if err := h.daemon.Ping(c.Request.Context()); err != nil {
		status = "degraded"
		daemonStatus = err.Error()
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.HealthResponse{
		Status:    status,
		Version:   Version,
		Daemon:    daemonStatus,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}

// Ready 就绪检查
// GET /ready
// 守护进程不可达时返回503，供编排层摘除流量
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.daemon.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(503, err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse("ready"))
}
