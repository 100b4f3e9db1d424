package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/searchd-sidecar/pkg/api/dto"
	"github.com/LENAX/searchd-sidecar/pkg/core/cache"
	"github.com/LENAX/searchd-sidecar/pkg/core/task"
	"github.com/LENAX/searchd-sidecar/pkg/plugin"
	"github.com/LENAX/searchd-sidecar/pkg/sqlproc"
)

// QueryHandler SQL查询API处理器
// 语句经预处理后逐条路由到插件，整个请求包装为一个Task执行
type QueryHandler struct {
	runtime  *task.Runtime
	manager  plugin.Manager
	cache    cache.QueryCache
	cacheTTL time.Duration

	mu    sync.RWMutex
	tasks map[string]*task.Task // 延迟执行的Task，按ID查询
}

// NewQueryHandler 创建QueryHandler
func NewQueryHandler(rt *task.Runtime, manager plugin.Manager) *QueryHandler {
	return &QueryHandler{
		runtime: rt,
		manager: manager,
		tasks:   make(map[string]*task.Task),
	}
}

// WithCache 启用只读语句的结果缓存，支持链式调用
func (h *QueryHandler) WithCache(c cache.QueryCache, ttl time.Duration) *QueryHandler {
	h.cache = c
	h.cacheTTL = ttl
	return h
}

// Execute 执行SQL
// POST /api/v1/query
func (h *QueryHandler) Execute(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求参数错误: %v", err)))
		return
	}

	stmts, err := sqlproc.Prepare(req.SQL)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, err.Error()))
		return
	}

	tk := h.runtime.Create(h.queryJob, context.Background(), stmts)

	if req.Deferred {
		tk.Defer()
		if err := tk.Run(); err != nil {
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(503, fmt.Sprintf("任务调度失败: %v", err)))
			return
		}
		h.mu.Lock()
		h.tasks[tk.ID()] = tk
		h.mu.Unlock()

		c.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.DeferredResponse{
			TaskID: tk.ID(),
			Status: string(tk.GetStatus()),
		}))
		return
	}

	if err := tk.Run(); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(503, fmt.Sprintf("任务调度失败: %v", err)))
		return
	}
	if err := tk.Wait(true); err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, err.Error()))
		return
	}

	result, err := tk.GetResult()
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(toQueryResponse(result)))
}

// GetTask 查询延迟执行Task的状态与结果
// GET /api/v1/tasks/:id
func (h *QueryHandler) GetTask(c *gin.Context) {
	id := c.Param("id")

	h.mu.RLock()
	tk, exists := h.tasks[id]
	h.mu.RUnlock()
	if !exists {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, fmt.Sprintf("Task %s 不存在", id)))
		return
	}

	status := tk.GetStatus()
	resp := dto.TaskStatusResponse{
		TaskID: id,
		Status: string(status),
	}
	if status != task.StatusPending && status != task.StatusRunning {
		if tk.IsSucceed() {
			if result, err := tk.GetResult(); err == nil {
				resp.Results = toQueryResponse(result).Results
			}
		} else if taskErr, err := tk.GetError(); err == nil {
			resp.Error = taskErr.Error()
		}
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// queryJob 整个请求的Task执行体
// 逐语句路由到插件，任一语句失败立即终止
func (h *QueryHandler) queryJob(args ...any) (*task.Result, error) {
	ctx := args[0].(context.Context)
	stmts := args[1].([]string)

	results := make([]*task.Result, 0, len(stmts))
	for _, stmt := range stmts {
		if r, hit := h.cachedResult(stmt); hit {
			results = append(results, r)
			continue
		}
		r, err := h.manager.Route(ctx, stmt)
		if err != nil {
			return nil, fmt.Errorf("语句执行失败: %w", err)
		}
		h.storeResult(stmt, r)
		results = append(results, r)
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return task.Raw(results), nil
}

// cachedResult 只读语句查缓存
func (h *QueryHandler) cachedResult(stmt string) (*task.Result, bool) {
	if h.cache == nil || !isReadOnly(stmt) {
		return nil, false
	}
	return h.cache.Get(stmt)
}

// storeResult 只读语句的无错结果进缓存
func (h *QueryHandler) storeResult(stmt string, r *task.Result) {
	if h.cache == nil || !isReadOnly(stmt) || r.ErrorMessage() != "" {
		return
	}
	h.cache.Set(stmt, r, h.cacheTTL)
}

func isReadOnly(stmt string) bool {
	switch sqlproc.Classify(stmt) {
	case sqlproc.KindSelect, sqlproc.KindShow, sqlproc.KindDescribe:
		return true
	default:
		return false
	}
}

// toQueryResponse 把Task结果展开为响应体
// 多语句请求的结果以raw负载承载
func toQueryResponse(r *task.Result) dto.QueryResponse {
	if r.HasRaw() {
		if list, ok := r.RawPayload().([]*task.Result); ok {
			return dto.QueryResponse{Total: len(list), Results: list}
		}
	}
	return dto.QueryResponse{Total: 1, Results: []*task.Result{r}}
}
