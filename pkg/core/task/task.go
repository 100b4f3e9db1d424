// Package task 提供旁路助手进程的异步任务执行核心：
// 统一的future式任务句柄、双调度后端与通道驱动的持续任务
package task

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"
	"time"
)

// TaskStatus 任务状态（对外导出）
type TaskStatus string

const (
	// StatusPending 已创建未启动
	StatusPending TaskStatus = "PENDING"
	// StatusRunning 工作已提交执行上下文
	StatusRunning TaskStatus = "RUNNING"
	// StatusFinished 执行上下文已终止（正常或带错）
	StatusFinished TaskStatus = "FINISHED"
	// StatusFailed 调度失败，任务从未进入RUNNING
	StatusFailed TaskStatus = "FAILED"
)

// 回调命名空间
const (
	NamespaceSuccess = "success"
	NamespaceFailure = "failure"
)

const (
	// pollBaseInterval 隔离后端Wait轮询的基础间隔
	pollBaseInterval = 500 * time.Microsecond
	// pollMaxInterval 轮询退避上限
	pollMaxInterval = 50 * time.Millisecond
)

// JobFunc 任务工作函数（对外导出）
// 持续任务的工作函数首个参数为 <-chan any 类型的输入通道
type JobFunc func(args ...any) (*Result, error)

// Task 一个工作单元及其future式完成句柄（对外导出）
// 状态机: PENDING → RUNNING → {FINISHED, FAILED}；调度失败时PENDING直接到FAILED。
// 终态不可离开。result与error二者至多其一。
type Task struct {
	id     string
	rt     *Runtime
	job    JobFunc
	args   []any
	looped bool

	mu            sync.Mutex
	status        TaskStatus
	deferred      bool
	ctx           executionContext
	result        *Result
	err           *Error
	completed     bool // 终态提交与回调触发的一次性闸
	onSuccess     []func(*Task)
	onFailure     []func(*Task)
	channel       chan any // 持续任务的输入通道
	channelClosed bool
	sent          int // Transmit计数，驱动存活检查节奏
}

// newTaskID 从单调高精度时钟派生任务ID
// 亚微秒创建频率下唯一性是尽力而为
func newTaskID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// Create 创建任务，不启动（对外导出）
func (rt *Runtime) Create(job JobFunc, args ...any) *Task {
	return &Task{
		id:     newTaskID(),
		rt:     rt,
		job:    job,
		args:   args,
		status: StatusPending,
	}
}

// CreateLooped 创建持续任务（对外导出）
// 额外分配输入通道并把它作为首个位置参数传给工作函数，
// 工作函数在自己的循环里从通道读取
func (rt *Runtime) CreateLooped(job JobFunc, args ...any) *Task {
	t := rt.Create(job, args...)
	t.looped = true
	t.channel = make(chan any, rt.capacity)
	t.args = append([]any{(<-chan any)(t.channel)}, args...)
	return t
}

// ID 任务ID（对外导出）
func (t *Task) ID() string {
	return t.id
}

// Defer 标记调用方不等待完成即可向上游应答，纯建议性，不改变调度（对外导出）
func (t *Task) Defer() *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deferred = true
	return t
}

// IsDeferred 是否为deferred任务（对外导出）
func (t *Task) IsDeferred() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deferred
}

// IsLooped 是否为持续任务（对外导出）
func (t *Task) IsLooped() bool {
	return t.looped
}

// Run 在执行上下文中启动工作（对外导出）
// 上下文接受工作后即返回，不等待完成；
// 无法获取上下文时状态转为FAILED并记录引用任务ID的合成错误，之后不再有任何转移
func (t *Task) Run() error {
	t.mu.Lock()
	if t.status == StatusRunning {
		t.mu.Unlock()
		return fmt.Errorf("任务 %s 已在运行", t.id)
	}
	if t.completed && !t.looped {
		t.mu.Unlock()
		return fmt.Errorf("任务 %s 已结束，不能重新启动", t.id)
	}
	// 持续任务重启：先归还旧上下文的令牌
	if t.looped && t.ctx != nil {
		t.ctx.release()
	}

	ctx, err := t.rt.acquireContext()
	if err != nil {
		t.status = StatusFailed
		t.err = NewError("RuntimeError", fmt.Sprintf("无法为任务 %s 获取执行上下文: %v", t.id, err))
		// 持续任务重启路径上completed还停留在上次崩溃的终态提交，
		// 不复位的话FAILED提交会被一次性闸吞掉，失败回调与事件都不触发
		t.completed = false
		t.mu.Unlock()
		t.commit()
		return fmt.Errorf("任务 %s 调度失败: %w", t.id, err)
	}

	t.ctx = ctx
	t.completed = false
	t.err = nil
	t.status = StatusRunning
	args := t.args
	t.mu.Unlock()

	ctx.start(func() {
		t.invoke(args)
	})
	return nil
}

// invoke 在执行上下文内运行工作项
// 这里是工作项抛出的任何错误与任务统一错误表示之间的唯一翻译点
func (t *Task) invoke(args []any) {
	defer func() {
		if r := recover(); r != nil {
			t.setOutcome(nil, captureError(r))
		}
		// 协作后端：上下文终止自身提交终态；隔离后端由调用方惰性提交
		t.mu.Lock()
		c := t.ctx
		t.mu.Unlock()
		if c != nil && c.joinable() {
			t.commit()
		}
	}()

	res, err := t.job(args...)
	if err != nil {
		t.setOutcome(nil, captureError(err))
		return
	}
	t.setOutcome(res, nil)
}

// setOutcome 记录结果或错误，维持二者至多其一的不变量
func (t *Task) setOutcome(res *Result, err *Error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.result = nil
		t.err = err
		return
	}
	t.err = nil
	t.result = res
}

// commit 提交终态并触发恰好一个回调列表，幂等
func (t *Task) commit() {
	t.mu.Lock()
	if t.completed {
		t.mu.Unlock()
		return
	}
	t.completed = true
	if t.status != StatusFailed {
		t.status = StatusFinished
	}
	if t.ctx != nil {
		t.ctx.release()
	}

	var callbacks []func(*Task)
	if t.err == nil {
		callbacks = append(callbacks, t.onSuccess...)
	} else {
		callbacks = append(callbacks, t.onFailure...)
	}
	status := t.status
	errMsg := ""
	if t.err != nil {
		errMsg = t.err.Error()
	}
	t.mu.Unlock()

	// 回调严格在终态之后、按注册序执行
	for _, cb := range callbacks {
		cb(t)
	}

	t.publishEvent(status, errMsg)
}

// GetStatus 当前状态（对外导出）
// 隔离后端在此惰性执行done检查并恰好一次提交RUNNING→FINISHED，重复调用幂等
func (t *Task) GetStatus() TaskStatus {
	t.mu.Lock()
	status := t.status
	c := t.ctx
	t.mu.Unlock()

	if status == StatusRunning && c != nil && c.finished() {
		t.commit()
		t.mu.Lock()
		status = t.status
		t.mu.Unlock()
	}
	return status
}

// Wait 阻塞调用方直至任务离开RUNNING（对外导出）
// 协作后端join底层上下文；隔离后端没有原生阻塞原语，
// 以随轮询次数对数增长的退避自旋，长任务抑制CPU空转，短任务保持响应。
// exceptionOnError为真且任务未成功时返回所存错误
func (t *Task) Wait(exceptionOnError bool) error {
	t.mu.Lock()
	c := t.ctx
	t.mu.Unlock()

	if c != nil && c.joinable() {
		c.join()
		t.commit()
	} else {
		for polls := 1; t.GetStatus() == StatusRunning; polls++ {
			backoff := time.Duration(float64(pollBaseInterval) * (1 + math.Log2(float64(polls+1))))
			if backoff > pollMaxInterval {
				backoff = pollMaxInterval
			}
			time.Sleep(backoff)
		}
	}

	if exceptionOnError && !t.IsSucceed() {
		t.mu.Lock()
		err := t.err
		t.mu.Unlock()
		if err != nil {
			return err
		}
		return fmt.Errorf("任务 %s 未成功", t.id)
	}
	return nil
}

// IsSucceed 任务已离开RUNNING且未记录错误（对外导出）
func (t *Task) IsSucceed() bool {
	status := t.GetStatus()
	t.mu.Lock()
	defer t.mu.Unlock()
	return status != StatusRunning && t.err == nil
}

// On 按命名空间注册回调（对外导出）
// 成功列表在未记录错误时执行，否则执行失败列表；单任务每个回调至多触发一次
func (t *Task) On(namespace string, fn func(*Task)) error {
	switch namespace {
	case NamespaceSuccess:
		t.OnSuccess(fn)
	case NamespaceFailure:
		t.OnFailure(fn)
	default:
		return fmt.Errorf("未知的回调命名空间: %s", namespace)
	}
	return nil
}

// OnSuccess 注册成功回调，支持链式调用（对外导出）
func (t *Task) OnSuccess(fn func(*Task)) *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSuccess = append(t.onSuccess, fn)
	return t
}

// OnFailure 注册失败回调，支持链式调用（对外导出）
func (t *Task) OnFailure(fn func(*Task)) *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFailure = append(t.onFailure, fn)
	return t
}

// GetResult 读取结果（对外导出）
// 终态之前或结果未设置时立即报错，调用方应先检查IsSucceed
func (t *Task) GetResult() (*Result, error) {
	status := t.GetStatus()
	t.mu.Lock()
	defer t.mu.Unlock()
	if status == StatusPending || status == StatusRunning {
		return nil, fmt.Errorf("任务 %s 尚未结束，不能读取结果", t.id)
	}
	if t.result == nil {
		return nil, fmt.Errorf("任务 %s 未设置结果", t.id)
	}
	return t.result, nil
}

// GetError 读取错误（对外导出）
// 终态之前或错误未设置时立即报错
func (t *Task) GetError() (*Error, error) {
	status := t.GetStatus()
	t.mu.Lock()
	defer t.mu.Unlock()
	if status == StatusPending || status == StatusRunning {
		return nil, fmt.Errorf("任务 %s 尚未结束，不能读取错误", t.id)
	}
	if t.err == nil {
		return nil, fmt.Errorf("任务 %s 未记录错误", t.id)
	}
	return t.err, nil
}

// Transmit 向持续任务的输入通道发送数据（对外导出）
// 通道满时阻塞形成背压。每capacity次发送顺带检查一次执行上下文是否已退出，
// 已退出则先重启再入队——存活检查的成本被摊到每capacity条消息一次
func (t *Task) Transmit(data any) error {
	if !t.looped {
		return fmt.Errorf("任务 %s 不是持续任务，不能Transmit", t.id)
	}

	t.mu.Lock()
	if t.channelClosed {
		t.mu.Unlock()
		return fmt.Errorf("任务 %s 的输入通道已关闭", t.id)
	}
	t.sent++
	needCheck := t.sent%cap(t.channel) == 0
	t.mu.Unlock()

	// 存活检查走GetStatus而非直接探ctx done：隔离后端的RUNNING→FINISHED
	// 提交是惰性的，必须先提交，Run的已在运行闸才会放行重启
	if needCheck && t.GetStatus() != StatusRunning {
		log.Printf("⚠️  持续任务 %s 的执行上下文已退出，自动重启", t.id)
		if err := t.Run(); err != nil {
			return err
		}
	}

	t.channel <- data
	return nil
}

// Close 显式拆除持续任务：关闭输入通道并归还执行上下文（对外导出）
func (t *Task) Close() error {
	if !t.looped {
		return fmt.Errorf("任务 %s 不是持续任务", t.id)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.channelClosed {
		return nil
	}
	t.channelClosed = true
	close(t.channel)
	if t.ctx != nil {
		t.ctx.release()
	}
	return nil
}

// publishEvent 向事件总线发布终态事件，失败只记日志
func (t *Task) publishEvent(status TaskStatus, errMsg string) {
	if t.rt == nil || t.rt.bus == nil {
		return
	}
	topic := TopicTaskFinished
	if errMsg != "" {
		topic = TopicTaskFailed
	}
	if err := t.rt.bus.PublishTaskEvent(topic, t, status, errMsg); err != nil {
		log.Printf("警告: 任务 %s 的终态事件发布失败: %v", t.id, err)
	}
}
