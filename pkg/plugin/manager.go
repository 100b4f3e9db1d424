package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/LENAX/searchd-sidecar/pkg/core/task"
)

// Manager 插件管理器接口（对外导出）
type Manager interface {
	// Register 注册插件
	Register(plugin Plugin) error
	// RegisterWithInit 注册并初始化插件
	RegisterWithInit(plugin Plugin, params map[string]string) error
	// Route 按注册序找到首个能处理该语句的插件并执行
	Route(ctx context.Context, stmt string) (*task.Result, error)
	// GetPlugin 获取已注册的插件
	GetPlugin(name string) (Plugin, bool)
	// ListPlugins 按注册序列出所有已注册的插件
	ListPlugins() []string
	// Unregister 取消注册插件
	Unregister(name string) error
}

// managerImpl 插件管理器实现（内部实现）
type managerImpl struct {
	plugins map[string]Plugin // 已注册的插件（插件名称 -> 插件实例）
	order   []string          // 注册序，决定Route的匹配优先级
	mu      sync.RWMutex      // 读写锁
}

// NewManager 创建插件管理器（对外导出）
func NewManager() Manager {
	return &managerImpl{
		plugins: make(map[string]Plugin),
	}
}

// Register 注册插件（实现Manager接口）
func (m *managerImpl) Register(plugin Plugin) error {
	if plugin == nil {
		return fmt.Errorf("插件不能为空")
	}

	name := plugin.Name()
	if name == "" {
		return fmt.Errorf("插件名称不能为空")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.plugins[name]; exists {
		return fmt.Errorf("插件 %s 已注册", name)
	}

	m.plugins[name] = plugin
	m.order = append(m.order, name)
	return nil
}

// RegisterWithInit 注册并初始化插件（实现Manager接口）
func (m *managerImpl) RegisterWithInit(plugin Plugin, params map[string]string) error {
	if err := m.Register(plugin); err != nil {
		return err
	}

	// 初始化插件
	if err := plugin.Init(params); err != nil {
		// 初始化失败，移除已注册的插件
		m.mu.Lock()
		delete(m.plugins, plugin.Name())
		m.order = removeName(m.order, plugin.Name())
		m.mu.Unlock()
		return fmt.Errorf("插件 %s 初始化失败: %w", plugin.Name(), err)
	}

	return nil
}

// Route 路由语句到插件（实现Manager接口）
// 按注册序匹配，首个CanHandle为真的插件胜出
func (m *managerImpl) Route(ctx context.Context, stmt string) (*task.Result, error) {
	m.mu.RLock()
	candidates := make([]Plugin, 0, len(m.order))
	for _, name := range m.order {
		candidates = append(candidates, m.plugins[name])
	}
	m.mu.RUnlock()

	for _, p := range candidates {
		if p.CanHandle(stmt) {
			return p.Execute(ctx, stmt)
		}
	}
	return nil, fmt.Errorf("没有插件能处理该语句")
}

// GetPlugin 获取已注册的插件（实现Manager接口）
func (m *managerImpl) GetPlugin(name string) (Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plugin, exists := m.plugins[name]
	return plugin, exists
}

// ListPlugins 列出所有已注册的插件（实现Manager接口）
func (m *managerImpl) ListPlugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.order...)
}

// Unregister 取消注册插件（实现Manager接口）
func (m *managerImpl) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.plugins[name]; !exists {
		return fmt.Errorf("插件 %s 未注册", name)
	}

	delete(m.plugins, name)
	m.order = removeName(m.order, name)
	return nil
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
