// Package supervisor 提供旁路助手进程的进程监督核心：
// 受监督子执行体、命名Worker生命周期与管道远程调用分发
package supervisor

import (
	"context"
	"log"
	"sync"
)

// Runner 三段式Worker契约（对外导出）
// 子执行体依次调用Init、Run；Stop在Run正常返回与终止信号两条路径下
// 都会被调用，必须对双路径重复调用幂等
type Runner interface {
	Init() error
	Run(ctx context.Context) error
	Stop()
}

// Worker 受监督进程内一个可独立启停的命名执行单元（对外导出）
// 两种等价形态：裸函数加OnStart/OnStop钩子列表，或Runner契约实现。
// 终止信号建模为context取消，信号处理与Run并发执行（异步抢占）
type Worker struct {
	id     string
	fn     func(ctx context.Context)
	runner Runner

	mu      sync.Mutex
	onStart []func()
	onStop  []func()
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewWorker 以裸函数形态创建Worker（对外导出）
func NewWorker(id string, fn func(ctx context.Context)) *Worker {
	return &Worker{id: id, fn: fn}
}

// NewRunnerWorker 以Runner契约形态创建Worker（对外导出）
func NewRunnerWorker(id string, runner Runner) *Worker {
	return &Worker{id: id, runner: runner}
}

// ID Worker标识（对外导出）
func (w *Worker) ID() string {
	return w.id
}

// OnStart 注册启动钩子，按注册序在执行单元启动后立即执行，支持链式调用（对外导出）
func (w *Worker) OnStart(fn func()) *Worker {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onStart = append(w.onStart, fn)
	return w
}

// OnStop 注册停止钩子，按注册序在执行单元拆除前执行，支持链式调用（对外导出）
func (w *Worker) OnStop(fn func()) *Worker {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onStop = append(w.onStop, fn)
	return w
}

// Start 启动执行单元（对外导出）
// 已在运行时为幂等空操作
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	w.running = true

	go w.main(ctx, done)
	return nil
}

// main 执行单元主体
func (w *Worker) main(ctx context.Context, done chan struct{}) {
	defer close(done)

	w.mu.Lock()
	starts := append([]func(){}, w.onStart...)
	w.mu.Unlock()
	for _, fn := range starts {
		fn()
	}

	if w.runner != nil {
		w.runRunner(ctx)
	} else if w.fn != nil {
		w.fn(ctx)
	}

	w.mu.Lock()
	stops := append([]func(){}, w.onStop...)
	w.mu.Unlock()
	for _, fn := range stops {
		fn()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// runRunner 按Init→Run→Stop的契约驱动Runner
// 终止信号异步抢占：信号监听不等Run让出，直接并发调用Stop
func (w *Worker) runRunner(ctx context.Context) {
	if err := w.runner.Init(); err != nil {
		log.Printf("❌ Worker %s 初始化失败: %v", w.id, err)
		return
	}

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(w.runner.Stop)
	}

	sigDone := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			stop()
		case <-sigDone:
		}
	}()

	if err := w.runner.Run(ctx); err != nil {
		log.Printf("⚠️  Worker %s 运行结束带错: %v", w.id, err)
	}
	close(sigDone)
	wg.Wait()

	// Run正常返回路径同样调用Stop；stopOnce保证双路径只执行一次
	stop()
}

// Stop 向执行单元发送终止信号，不等待其退出（对外导出）
// 已停止时为幂等空操作
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// IsRunning 非阻塞存活探测（对外导出）
// 不回收执行单元也不阻塞调用方
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Done 执行单元退出通知，供调用方选择性等待（对外导出）
func (w *Worker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}
