package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_TaskFinishedEvent(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	finished, err := bus.Subscribe(ctx, TopicTaskFinished)
	require.NoError(t, err)

	rt := NewRuntime(ModeCooperative).WithEventBus(bus)
	tk := rt.Create(func(args ...any) (*Result, error) {
		return WithTotal(1), nil
	})
	require.NoError(t, tk.Run())
	require.NoError(t, tk.Wait(true))

	select {
	case msg := <-finished:
		msg.Ack()
		ev, derr := DecodeEvent(msg.Payload)
		require.NoError(t, derr)
		assert.Equal(t, tk.ID(), ev.TaskID)
		assert.Equal(t, StatusFinished, ev.Status)
		assert.Empty(t, ev.Error)
		assert.NotEmpty(t, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("超时未收到task.finished事件")
	}
}

func TestEventBus_TaskFailedEvent(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failed, err := bus.Subscribe(ctx, TopicTaskFailed)
	require.NoError(t, err)

	rt := NewRuntime(ModeCooperative).WithEventBus(bus)
	tk := rt.Create(func(args ...any) (*Result, error) {
		return nil, NewError("Exception", "boom")
	})
	require.NoError(t, tk.Run())
	require.NoError(t, tk.Wait(false))

	select {
	case msg := <-failed:
		msg.Ack()
		ev, derr := DecodeEvent(msg.Payload)
		require.NoError(t, derr)
		assert.Equal(t, tk.ID(), ev.TaskID)
		assert.Equal(t, "Exception: boom", ev.Error)
	case <-time.After(time.Second):
		t.Fatal("超时未收到task.failed事件")
	}
}
