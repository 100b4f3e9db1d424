package task

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// ExecutionMode 任务执行后端能力枚举（对外导出）
type ExecutionMode string

const (
	// ModeCooperative 协作式：任务与调用方共享调度器，创建/join处让出控制权
	ModeCooperative ExecutionMode = "cooperative"
	// ModeIsolated 隔离式：任务独占一条锁定的OS线程，完成状态只能通过done查询观察
	ModeIsolated ExecutionMode = "isolated"
)

const (
	// defaultMaxContexts 默认可同时占用的执行上下文数
	defaultMaxContexts = 1024
	// DefaultChannelCapacity 持续任务通道的默认容量
	DefaultChannelCapacity = 100
)

// Runtime 任务运行时（对外导出）
// 负责按执行模式为Task分配执行上下文；上下文总量受令牌池约束，
// 池耗尽视为调度失败
type Runtime struct {
	mode     ExecutionMode
	capacity int           // 持续任务通道容量
	tokens   chan struct{} // 执行上下文令牌池
	bus      *EventBus     // 可选：任务终态事件总线
}

// NewRuntime 创建任务运行时（对外导出）
func NewRuntime(mode ExecutionMode) *Runtime {
	return &Runtime{
		mode:     mode,
		capacity: DefaultChannelCapacity,
		tokens:   make(chan struct{}, defaultMaxContexts),
	}
}

// WithMaxContexts 设置可同时占用的执行上下文数，支持链式调用（对外导出）
func (rt *Runtime) WithMaxContexts(n int) *Runtime {
	if n >= 0 {
		rt.tokens = make(chan struct{}, n)
	}
	return rt
}

// WithChannelCapacity 设置持续任务通道容量，支持链式调用（对外导出）
func (rt *Runtime) WithChannelCapacity(n int) *Runtime {
	if n > 0 {
		rt.capacity = n
	}
	return rt
}

// WithEventBus 挂接任务终态事件总线，支持链式调用（对外导出）
func (rt *Runtime) WithEventBus(bus *EventBus) *Runtime {
	rt.bus = bus
	return rt
}

// Mode 当前执行模式（对外导出）
func (rt *Runtime) Mode() ExecutionMode {
	return rt.mode
}

// acquireContext 分配一个执行上下文，令牌池耗尽即调度失败
func (rt *Runtime) acquireContext() (executionContext, error) {
	select {
	case rt.tokens <- struct{}{}:
	default:
		return nil, fmt.Errorf("执行上下文令牌池已耗尽（上限%d）", cap(rt.tokens))
	}

	switch rt.mode {
	case ModeIsolated:
		return &isolatedContext{rt: rt}, nil
	default:
		return &cooperativeContext{rt: rt, done: make(chan struct{})}, nil
	}
}

// executionContext 一个执行上下文的统一句柄
// 两种后端共享同一状态机与回调管线，调用方只能通过wait/poll成本察觉差异
type executionContext interface {
	// start 提交工作后立即返回，不等待完成
	start(job func())
	// joinable 是否支持原生阻塞join
	joinable() bool
	// join 阻塞直至工作结束；仅joinable()为真时可用
	join()
	// finished 非阻塞done查询
	finished() bool
	// release 归还执行上下文令牌；幂等
	release()
}

// cooperativeContext 协作式上下文：同进程goroutine，join阻塞在done通道上
type cooperativeContext struct {
	rt       *Runtime
	done     chan struct{}
	released atomic.Bool
}

func (c *cooperativeContext) start(job func()) {
	go func() {
		defer close(c.done)
		job()
	}()
}

func (c *cooperativeContext) joinable() bool {
	return true
}

func (c *cooperativeContext) join() {
	<-c.done
}

func (c *cooperativeContext) finished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *cooperativeContext) release() {
	if c.released.CompareAndSwap(false, true) {
		<-c.rt.tokens
	}
}

// isolatedContext 隔离式上下文：工作独占一条锁定的OS线程，
// 不提供阻塞join，完成状态只能通过done标志轮询
type isolatedContext struct {
	rt       *Runtime
	doneFlag atomic.Bool
	released atomic.Bool
}

func (c *isolatedContext) start(job func()) {
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer c.doneFlag.Store(true)
		job()
	}()
}

func (c *isolatedContext) joinable() bool {
	return false
}

func (c *isolatedContext) join() {
	// 隔离后端没有原生阻塞原语，join由调用方的轮询替代
	panic("隔离执行上下文不支持join")
}

func (c *isolatedContext) finished() bool {
	return c.doneFlag.Load()
}

func (c *isolatedContext) release() {
	if c.released.CompareAndSwap(false, true) {
		<-c.rt.tokens
	}
}
