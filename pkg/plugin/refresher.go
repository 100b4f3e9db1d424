package plugin

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Refresher 插件周期刷新器（对外导出）
// 按Cron表达式驱动实现了Refreshable的插件刷新内部状态
type Refresher struct {
	cron    *cron.Cron
	manager Manager
	entries map[string]cron.EntryID // 插件名称 -> cron.EntryID映射
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRefresher 创建插件刷新器（对外导出）
func NewRefresher(manager Manager) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		cron:    cron.New(cron.WithSeconds()), // 支持秒级精度
		manager: manager,
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Schedule 为插件登记刷新计划（对外导出）
func (r *Refresher) Schedule(pluginName, cronExpr string) error {
	p, exists := r.manager.GetPlugin(pluginName)
	if !exists {
		return fmt.Errorf("插件 %s 未注册", pluginName)
	}
	refreshable, ok := p.(Refreshable)
	if !ok {
		return fmt.Errorf("插件 %s 不支持周期刷新", pluginName)
	}
	if cronExpr == "" {
		return fmt.Errorf("插件 %s 未设置Cron表达式", pluginName)
	}

	// 验证Cron表达式（使用Parser支持秒级精度）
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cronExpr); err != nil {
		return fmt.Errorf("插件 %s 的Cron表达式无效: %w", pluginName, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[pluginName]; exists {
		return fmt.Errorf("插件 %s 已登记刷新计划", pluginName)
	}

	entryID, err := r.cron.AddFunc(cronExpr, func() {
		if err := refreshable.Refresh(r.ctx); err != nil {
			log.Printf("⚠️  [插件刷新器] 插件 %s 刷新失败: %v", pluginName, err)
		}
	})
	if err != nil {
		return fmt.Errorf("添加Cron任务失败: %w", err)
	}

	r.entries[pluginName] = entryID
	log.Printf("✅ [插件刷新器] 已登记插件刷新: Name=%s, CronExpr=%s", pluginName, cronExpr)
	return nil
}

// Unschedule 撤销插件的刷新计划（对外导出）
func (r *Refresher) Unschedule(pluginName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entryID, exists := r.entries[pluginName]
	if !exists {
		return fmt.Errorf("插件 %s 未登记刷新计划", pluginName)
	}

	r.cron.Remove(entryID)
	delete(r.entries, pluginName)
	return nil
}

// Start 启动刷新器（对外导出）
func (r *Refresher) Start() {
	r.cron.Start()
	log.Printf("🚀 [插件刷新器] 已启动")
}

// Stop 停止刷新器并等待在途刷新结束（对外导出）
func (r *Refresher) Stop() {
	r.cancel()
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	log.Printf("✅ [插件刷新器] 已停止")
}
