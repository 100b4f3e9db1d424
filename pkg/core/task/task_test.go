package task

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_SuccessFlow(t *testing.T) {
	for _, mode := range []ExecutionMode{ModeCooperative, ModeIsolated} {
		t.Run(string(mode), func(t *testing.T) {
			rt := NewRuntime(mode)

			tk := rt.Create(func(args ...any) (*Result, error) {
				return WithRow(map[string]any{"a": 1}), nil
			})
			require.NoError(t, tk.Run())
			require.NoError(t, tk.Wait(true))

			// Wait返回后任务必然离开RUNNING
			assert.NotEqual(t, StatusRunning, tk.GetStatus())
			assert.Equal(t, StatusFinished, tk.GetStatus())
			assert.True(t, tk.IsSucceed())

			res, err := tk.GetResult()
			require.NoError(t, err)
			assert.Equal(t, 1, res.Total())
			require.Len(t, res.Data(), 1)
			assert.Equal(t, map[string]any{"a": 1}, res.Data()[0])
		})
	}
}

func TestTask_WorkItemError(t *testing.T) {
	for _, mode := range []ExecutionMode{ModeCooperative, ModeIsolated} {
		t.Run(string(mode), func(t *testing.T) {
			rt := NewRuntime(mode)

			tk := rt.Create(func(args ...any) (*Result, error) {
				return nil, NewError("Exception", "boom")
			})
			require.NoError(t, tk.Run())
			require.NoError(t, tk.Wait(false))

			// 工作跑完但抛错：状态是FINISHED而非FAILED
			assert.Equal(t, StatusFinished, tk.GetStatus())
			assert.False(t, tk.IsSucceed())

			taskErr, err := tk.GetError()
			require.NoError(t, err)
			assert.Equal(t, "Exception: boom", taskErr.Error())
			assert.Equal(t, "boom", taskErr.ResponseMessage)

			// result与error不能同时存在
			_, err = tk.GetResult()
			assert.Error(t, err)
		})
	}
}

func TestTask_WaitExceptionOnError(t *testing.T) {
	rt := NewRuntime(ModeCooperative)

	tk := rt.Create(func(args ...any) (*Result, error) {
		return nil, fmt.Errorf("查询执行失败")
	})
	require.NoError(t, tk.Run())

	err := tk.Wait(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "查询执行失败")
}

func TestTask_PanicCapturedAtBoundary(t *testing.T) {
	rt := NewRuntime(ModeIsolated)

	tk := rt.Create(func(args ...any) (*Result, error) {
		panic(NewError("ParseError", "unexpected token"))
	})
	require.NoError(t, tk.Run())
	require.NoError(t, tk.Wait(false))

	// 隔离上下文内的panic不能弄崩调用方，只转为结构化错误
	assert.False(t, tk.IsSucceed())
	taskErr, err := tk.GetError()
	require.NoError(t, err)
	assert.Equal(t, "ParseError: unexpected token", taskErr.Error())
}

func TestTask_SchedulingFailure(t *testing.T) {
	rt := NewRuntime(ModeCooperative).WithMaxContexts(0)

	var failureFired bool
	tk := rt.Create(func(args ...any) (*Result, error) {
		t.Fatal("令牌池耗尽时工作函数不应被执行")
		return nil, nil
	})
	tk.OnFailure(func(*Task) { failureFired = true })

	err := tk.Run()
	require.Error(t, err)

	// 调度失败直接PENDING→FAILED，任务从未进入RUNNING
	assert.Equal(t, StatusFailed, tk.GetStatus())
	assert.False(t, tk.IsSucceed())
	assert.True(t, failureFired)

	taskErr, gerr := tk.GetError()
	require.NoError(t, gerr)
	assert.Contains(t, taskErr.Message, tk.ID())

	// FAILED是终态，不能重新启动
	assert.Error(t, tk.Run())
	assert.Equal(t, StatusFailed, tk.GetStatus())
}

func TestTask_CallbacksExactlyOneList(t *testing.T) {
	rt := NewRuntime(ModeCooperative)

	t.Run("成功只触发成功列表且按注册序", func(t *testing.T) {
		var mu sync.Mutex
		var order []string
		tk := rt.Create(func(args ...any) (*Result, error) {
			return None(), nil
		})
		tk.OnSuccess(func(*Task) { mu.Lock(); order = append(order, "s1"); mu.Unlock() })
		tk.OnSuccess(func(*Task) { mu.Lock(); order = append(order, "s2"); mu.Unlock() })
		tk.OnFailure(func(*Task) { mu.Lock(); order = append(order, "f1"); mu.Unlock() })

		require.NoError(t, tk.Run())
		require.NoError(t, tk.Wait(true))
		// 重复观察不得再次触发
		tk.GetStatus()
		require.NoError(t, tk.Wait(false))

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"s1", "s2"}, order)
	})

	t.Run("失败只触发失败列表", func(t *testing.T) {
		var mu sync.Mutex
		var order []string
		tk := rt.Create(func(args ...any) (*Result, error) {
			return nil, NewError("Exception", "boom")
		})
		require.NoError(t, tk.On(NamespaceSuccess, func(*Task) { mu.Lock(); order = append(order, "s1"); mu.Unlock() }))
		require.NoError(t, tk.On(NamespaceFailure, func(*Task) { mu.Lock(); order = append(order, "f1"); mu.Unlock() }))
		require.NoError(t, tk.On(NamespaceFailure, func(*Task) { mu.Lock(); order = append(order, "f2"); mu.Unlock() }))

		require.NoError(t, tk.Run())
		require.NoError(t, tk.Wait(false))
		tk.GetStatus()

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"f1", "f2"}, order)
	})
}

func TestTask_OnUnknownNamespace(t *testing.T) {
	rt := NewRuntime(ModeCooperative)
	tk := rt.Create(func(args ...any) (*Result, error) { return None(), nil })

	assert.Error(t, tk.On("bogus", func(*Task) {}))
}

func TestTask_PrematureAccessorsFailFast(t *testing.T) {
	rt := NewRuntime(ModeIsolated)

	started := make(chan struct{})
	release := make(chan struct{})
	tk := rt.Create(func(args ...any) (*Result, error) {
		close(started)
		<-release
		return None(), nil
	})

	// 启动前
	_, err := tk.GetResult()
	assert.Error(t, err)
	_, err = tk.GetError()
	assert.Error(t, err)

	require.NoError(t, tk.Run())
	<-started

	// 运行中
	_, err = tk.GetResult()
	assert.Error(t, err)
	_, err = tk.GetError()
	assert.Error(t, err)

	close(release)
	require.NoError(t, tk.Wait(true))
}

func TestTask_DeferAdvisoryOnly(t *testing.T) {
	rt := NewRuntime(ModeCooperative)

	tk := rt.Create(func(args ...any) (*Result, error) {
		return WithTotal(3), nil
	}).Defer()

	assert.True(t, tk.IsDeferred())
	require.NoError(t, tk.Run())
	require.NoError(t, tk.Wait(true))

	res, err := tk.GetResult()
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total())
}

func TestTask_ArgsArePassedThrough(t *testing.T) {
	rt := NewRuntime(ModeIsolated)

	tk := rt.Create(func(args ...any) (*Result, error) {
		return WithRow(map[string]any{"sum": args[0].(int) + args[1].(int)}), nil
	}, 40, 2)
	require.NoError(t, tk.Run())
	require.NoError(t, tk.Wait(true))

	res, err := tk.GetResult()
	require.NoError(t, err)
	assert.Equal(t, 42, res.Data()[0]["sum"])
}

func TestTask_GetStatusIdempotentCommit(t *testing.T) {
	rt := NewRuntime(ModeIsolated)

	var fired int
	var mu sync.Mutex
	tk := rt.Create(func(args ...any) (*Result, error) { return None(), nil })
	tk.OnSuccess(func(*Task) { mu.Lock(); fired++; mu.Unlock() })
	require.NoError(t, tk.Run())

	// 隔离后端：GetStatus惰性提交RUNNING→FINISHED，重复调用幂等
	require.Eventually(t, func() bool {
		return tk.GetStatus() == StatusFinished
	}, time.Second, time.Millisecond)

	for i := 0; i < 10; i++ {
		assert.Equal(t, StatusFinished, tk.GetStatus())
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, fired)
}

func TestTask_Looped_ChannelIsFirstArg(t *testing.T) {
	rt := NewRuntime(ModeCooperative).WithChannelCapacity(8)

	var mu sync.Mutex
	var received []any
	tk := rt.CreateLooped(func(args ...any) (*Result, error) {
		ch := args[0].(<-chan any)
		tag := args[1].(string)
		for v := range ch {
			mu.Lock()
			received = append(received, fmt.Sprintf("%s:%v", tag, v))
			mu.Unlock()
		}
		return None(), nil
	}, "feed")

	assert.True(t, tk.IsLooped())
	require.NoError(t, tk.Run())
	require.NoError(t, tk.Transmit(1))
	require.NoError(t, tk.Transmit(2))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []any{"feed:1", "feed:2"}, received)
	mu.Unlock()

	require.NoError(t, tk.Close())
	require.NoError(t, tk.Close()) // 重复Close幂等
}

func TestTask_Looped_CrashRecovery(t *testing.T) {
	const capacity = 4
	rt := NewRuntime(ModeIsolated).WithChannelCapacity(capacity)

	var mu sync.Mutex
	var received []any
	tk := rt.CreateLooped(func(args ...any) (*Result, error) {
		ch := args[0].(<-chan any)
		for v := range ch {
			if v == "crash" {
				// 模拟隔离上下文崩溃
				return nil, NewError("RuntimeError", "worker crashed")
			}
			mu.Lock()
			received = append(received, v)
			mu.Unlock()
		}
		return None(), nil
	})
	require.NoError(t, tk.Run())

	require.NoError(t, tk.Transmit("a"))
	require.NoError(t, tk.Transmit("b"))
	require.NoError(t, tk.Transmit("crash"))

	// 等待崩溃被观察到（惰性done检查）
	require.Eventually(t, func() bool {
		return tk.GetStatus() == StatusFinished
	}, time.Second, time.Millisecond)

	// 后续capacity次发送内必然触发透明重启，且重启后的消息不丢
	require.NoError(t, tk.Transmit("c"))
	require.NoError(t, tk.Transmit("d"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 4
	}, 2*time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []any{"a", "b", "c", "d"}, received)
	mu.Unlock()

	require.NoError(t, tk.Close())
}

func TestTask_Looped_RecoveryWithoutStatusPolling(t *testing.T) {
	const capacity = 4
	rt := NewRuntime(ModeIsolated).WithChannelCapacity(capacity)

	var mu sync.Mutex
	var received []any
	tk := rt.CreateLooped(func(args ...any) (*Result, error) {
		ch := args[0].(<-chan any)
		for v := range ch {
			if v == "crash" {
				return nil, NewError("RuntimeError", "worker crashed")
			}
			mu.Lock()
			received = append(received, v)
			mu.Unlock()
		}
		return None(), nil
	})
	require.NoError(t, tk.Run())

	require.NoError(t, tk.Transmit("crash"))
	// 给隔离上下文退出留时间；期间不做任何GetStatus/Wait观察，
	// RUNNING→FINISHED的惰性提交只能由Transmit内部的存活检查完成
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < capacity; i++ {
		require.NoError(t, tk.Transmit(i))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == capacity
	}, 2*time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []any{0, 1, 2, 3}, received)
	mu.Unlock()

	require.NoError(t, tk.Close())
}

func TestTask_Looped_RestartScheduleFailureFiresCallbacks(t *testing.T) {
	rt := NewRuntime(ModeCooperative).WithMaxContexts(1).WithChannelCapacity(2)

	var mu sync.Mutex
	var failures int
	tk := rt.CreateLooped(func(args ...any) (*Result, error) {
		ch := args[0].(<-chan any)
		for v := range ch {
			if v == "crash" {
				return nil, NewError("RuntimeError", "worker crashed")
			}
		}
		return None(), nil
	})
	tk.OnFailure(func(*Task) { mu.Lock(); failures++; mu.Unlock() })
	require.NoError(t, tk.Run())

	require.NoError(t, tk.Transmit("crash"))
	require.Eventually(t, func() bool {
		return tk.GetStatus() == StatusFinished
	}, time.Second, time.Millisecond)

	// 崩溃提交触发第一次失败回调
	mu.Lock()
	assert.Equal(t, 1, failures)
	mu.Unlock()

	// 占满令牌池，让重启拿不到执行上下文
	release := make(chan struct{})
	blocker := rt.Create(func(args ...any) (*Result, error) {
		<-release
		return None(), nil
	})
	require.NoError(t, blocker.Run())

	err := tk.Run()
	require.Error(t, err)
	assert.Equal(t, StatusFailed, tk.GetStatus())

	// 重启调度失败的FAILED提交必须再次触发失败回调，不能被上次的终态提交吞掉
	mu.Lock()
	assert.Equal(t, 2, failures)
	mu.Unlock()

	close(release)
	require.NoError(t, blocker.Wait(true))
}

func TestTask_TransmitOnNonLooped(t *testing.T) {
	rt := NewRuntime(ModeCooperative)
	tk := rt.Create(func(args ...any) (*Result, error) { return None(), nil })

	assert.Error(t, tk.Transmit("x"))
	assert.Error(t, tk.Close())
}

func TestTask_IDsAreClockDerived(t *testing.T) {
	rt := NewRuntime(ModeCooperative)

	a := rt.Create(func(args ...any) (*Result, error) { return None(), nil })
	time.Sleep(time.Microsecond)
	b := rt.Create(func(args ...any) (*Result, error) { return None(), nil })

	assert.NotEmpty(t, a.ID())
	assert.NotEmpty(t, b.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
