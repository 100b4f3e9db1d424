// Package api 提供旁路助手的HTTP查询服务
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/LENAX/searchd-sidecar/pkg/api/handler"
	"github.com/LENAX/searchd-sidecar/pkg/api/middleware"
)

// SetupRouter 组装路由（对外导出）
func SetupRouter(query *handler.QueryHandler, health *handler.HealthHandler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(), middleware.Recovery())

	r.GET("/health", health.Check)
	r.GET("/ready", health.Ready)

	// 守护进程侧转发约定的短路径
	r.POST("/sql", query.Execute)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/query", query.Execute)
		v1.GET("/tasks/:id", query.GetTask)
	}

	return r
}
