// Package middleware 提供HTTP服务的gin中间件
package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/searchd-sidecar/pkg/api/dto"
)

// Recovery 捕获处理器panic并返回500响应
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("❌ [API] 处理器panic: %v", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					dto.NewErrorResponse(500, "内部错误"))
			}
		}()
		c.Next()
	}
}

// Logger 请求访问日志
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[API] %s %s %d %v",
			c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	}
}
