// Package plugin 提供查询插件机制：按语句路由到可插拔的处理实现
package plugin

import (
	"context"

	"github.com/LENAX/searchd-sidecar/pkg/core/task"
)

// Plugin 查询插件接口（对外导出）
type Plugin interface {
	// Name 插件名称
	Name() string
	// Init 初始化插件
	Init(params map[string]string) error
	// CanHandle 判断插件是否能处理该语句
	CanHandle(stmt string) bool
	// Execute 执行语句并返回结果
	Execute(ctx context.Context, stmt string) (*task.Result, error)
}

// Refreshable 需要周期刷新内部状态的插件额外实现该接口（对外导出）
// 由Refresher按Cron表达式驱动
type Refreshable interface {
	Refresh(ctx context.Context) error
}
