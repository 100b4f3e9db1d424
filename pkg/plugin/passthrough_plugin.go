package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/LENAX/searchd-sidecar/pkg/client"
	"github.com/LENAX/searchd-sidecar/pkg/core/task"
)

// PassthroughPlugin 透传插件（对外导出）
// 把语句原样转发给searchd守护进程，作为路由链的兜底插件注册
type PassthroughPlugin struct {
	name    string
	daemon  *client.Searchd
	enabled bool
}

// NewPassthroughPlugin 创建透传插件（对外导出）
func NewPassthroughPlugin() Plugin {
	return &PassthroughPlugin{
		name:    "passthrough",
		enabled: false,
	}
}

// Name 插件名称（实现Plugin接口）
func (p *PassthroughPlugin) Name() string {
	return p.name
}

// Init 初始化插件（实现Plugin接口）
func (p *PassthroughPlugin) Init(params map[string]string) error {
	baseURL := params["base_url"]
	if baseURL == "" {
		return fmt.Errorf("base_url参数不能为空")
	}

	// 请求超时（默认30秒）
	timeout := 30 * time.Second
	if timeoutStr := params["timeout"]; timeoutStr != "" {
		d, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("timeout参数格式错误: %w", err)
		}
		timeout = d
	}

	p.daemon = client.New(baseURL).WithTimeout(timeout)
	p.enabled = true
	return nil
}

// CanHandle 透传插件处理一切语句（实现Plugin接口）
func (p *PassthroughPlugin) CanHandle(stmt string) bool {
	return p.enabled
}

// Execute 转发语句到守护进程（实现Plugin接口）
func (p *PassthroughPlugin) Execute(ctx context.Context, stmt string) (*task.Result, error) {
	if !p.enabled {
		return nil, fmt.Errorf("插件 %s 未初始化", p.name)
	}
	return p.daemon.QueryOne(ctx, stmt)
}
