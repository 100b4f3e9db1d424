package supervisor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder 并发安全的事件记录器
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.events...)
}

func TestWorker_CallbackShape(t *testing.T) {
	rec := &recorder{}

	w := NewWorker("pipeline", func(ctx context.Context) {
		rec.add("fn")
		<-ctx.Done()
	})
	w.OnStart(func() { rec.add("start1") }).
		OnStart(func() { rec.add("start2") }).
		OnStop(func() { rec.add("stop1") }).
		OnStop(func() { rec.add("stop2") })

	require.NoError(t, w.Start())
	require.Eventually(t, w.IsRunning, time.Second, time.Millisecond)

	w.Stop()
	require.Eventually(t, func() bool { return !w.IsRunning() }, time.Second, time.Millisecond)
	<-w.Done()

	// 启动钩子在执行体启动后立即执行，停止钩子在拆除前执行，均按注册序
	assert.Equal(t, []string{"start1", "start2", "fn", "stop1", "stop2"}, rec.snapshot())
}

func TestWorker_StartIdempotent(t *testing.T) {
	rec := &recorder{}

	w := NewWorker("idem", func(ctx context.Context) {
		<-ctx.Done()
	})
	w.OnStart(func() { rec.add("start") })

	require.NoError(t, w.Start())
	require.NoError(t, w.Start()) // 已运行：幂等空操作
	require.NoError(t, w.Start())

	w.Stop()
	require.Eventually(t, func() bool { return !w.IsRunning() }, time.Second, time.Millisecond)
	<-w.Done()

	assert.Equal(t, []string{"start"}, rec.snapshot())
}

// testRunner Init/Run/Stop三段契约的测试实现
// Stop自身幂等：关闭unblock通道让Run返回
type testRunner struct {
	mu        sync.Mutex
	initCount int
	runCount  int
	stopCount int
	blockRun  bool
	unblock   chan struct{}
	stopOnce  sync.Once
}

func newTestRunner(blockRun bool) *testRunner {
	return &testRunner{blockRun: blockRun, unblock: make(chan struct{})}
}

func (r *testRunner) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initCount++
	return nil
}

func (r *testRunner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.runCount++
	r.mu.Unlock()
	if r.blockRun {
		<-r.unblock
	}
	return nil
}

func (r *testRunner) Stop() {
	r.mu.Lock()
	r.stopCount++
	r.mu.Unlock()
	r.stopOnce.Do(func() { close(r.unblock) })
}

func (r *testRunner) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initCount, r.runCount, r.stopCount
}

func TestWorker_RunnerNormalReturn(t *testing.T) {
	r := newTestRunner(false)
	w := NewRunnerWorker("runner", r)

	require.NoError(t, w.Start())
	require.Eventually(t, func() bool { return !w.IsRunning() }, time.Second, time.Millisecond)
	<-w.Done()

	// Run正常返回路径：Init→Run→Stop各恰好一次
	inits, runs, stops := r.counts()
	assert.Equal(t, 1, inits)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, stops)
}

func TestWorker_RunnerSignalPreemption(t *testing.T) {
	r := newTestRunner(true)
	w := NewRunnerWorker("runner", r)

	require.NoError(t, w.Start())
	require.Eventually(t, func() bool {
		_, runs, _ := r.counts()
		return runs == 1
	}, time.Second, time.Millisecond)

	// 终止信号异步抢占Run：Stop并发执行并解除Run的阻塞
	w.Stop()
	require.Eventually(t, func() bool { return !w.IsRunning() }, time.Second, time.Millisecond)
	<-w.Done()

	// 信号路径与正常返回路径都会触碰Stop，但只执行一次
	_, _, stops := r.counts()
	assert.Equal(t, 1, stops)
}

func TestWorker_DoubleStopSafe(t *testing.T) {
	w := NewWorker("stoppable", func(ctx context.Context) {
		<-ctx.Done()
	})
	require.NoError(t, w.Start())

	w.Stop()
	w.Stop() // 已停止：幂等空操作
	require.Eventually(t, func() bool { return !w.IsRunning() }, time.Second, time.Millisecond)
	<-w.Done()

	// 未启动过的Worker Stop也不应panic
	idle := NewWorker("idle", nil)
	idle.Stop()
	assert.False(t, idle.IsRunning())
}

type failingInitRunner struct {
	testRunner
}

func (r *failingInitRunner) Init() error {
	return fmt.Errorf("配置缺失")
}

func TestWorker_RunnerInitFailure(t *testing.T) {
	r := &failingInitRunner{testRunner: *newTestRunner(false)}
	w := NewRunnerWorker("bad-init", r)

	require.NoError(t, w.Start())
	require.Eventually(t, func() bool { return !w.IsRunning() }, time.Second, time.Millisecond)
	<-w.Done()

	// Init失败后Run不执行
	_, runs, _ := r.counts()
	assert.Equal(t, 0, runs)
}
