package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// Server HTTP查询服务（对外导出）
// 实现supervisor.Runner契约，作为受监督Worker运行
type Server struct {
	addr   string
	router *gin.Engine
	http   *http.Server
}

// NewServer 创建HTTP服务（对外导出）
func NewServer(addr, mode string, router *gin.Engine) *Server {
	gin.SetMode(mode)
	return &Server{
		addr:   addr,
		router: router,
	}
}

// Init 初始化监听器（实现supervisor.Runner接口）
func (s *Server) Init() error {
	if s.addr == "" {
		return fmt.Errorf("监听地址不能为空")
	}
	s.http = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}
	return nil
}

// Run 阻塞服务直到Stop（实现supervisor.Runner接口）
func (s *Server) Run(ctx context.Context) error {
	log.Printf("🚀 [API] HTTP服务启动: %s", s.addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP服务异常退出: %w", err)
	}
	return nil
}

// Stop 优雅关闭服务（实现supervisor.Runner接口）
// 双路径调用安全：重复Shutdown是空操作
func (s *Server) Stop() {
	if s.http == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		log.Printf("⚠️  [API] HTTP服务关闭失败: %v", err)
	}
}
