package task

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/LENAX/searchd-sidecar/pkg/ipc"
)

// 任务终态事件主题
const (
	TopicTaskFinished = "task.finished" // 任务完成（无错误）
	TopicTaskFailed   = "task.failed"   // 任务带错结束或调度失败
)

// Event 任务终态事件（对外导出）
type Event struct {
	ID        string     `json:"id"`      // 事件ID（UUID）
	TaskID    string     `json:"task_id"` // 关联任务ID
	Status    TaskStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	Deferred  bool       `json:"deferred"`
	Looped    bool       `json:"looped"`
	Timestamp time.Time  `json:"timestamp"`
}

// EventBus 进程内任务事件总线（对外导出）
// watermill gochannel Pub/Sub的薄封装
type EventBus struct {
	pubsub *gochannel.GoChannel
}

// NewEventBus 创建事件总线（对外导出）
func NewEventBus() *EventBus {
	return &EventBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, watermill.NopLogger{}),
	}
}

// Publish 发布事件（对外导出）
func (b *EventBus) Publish(topic string, ev *Event) error {
	payload, err := ipc.Marshal(ev)
	if err != nil {
		return err
	}
	return b.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload))
}

// PublishTaskEvent 从任务终态构造并发布事件（对外导出）
func (b *EventBus) PublishTaskEvent(topic string, t *Task, status TaskStatus, errMsg string) error {
	return b.Publish(topic, &Event{
		ID:        uuid.NewString(),
		TaskID:    t.ID(),
		Status:    status,
		Error:     errMsg,
		Deferred:  t.IsDeferred(),
		Looped:    t.IsLooped(),
		Timestamp: time.Now(),
	})
}

// Subscribe 订阅主题（对外导出）
func (b *EventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close 关闭总线（对外导出）
func (b *EventBus) Close() error {
	return b.pubsub.Close()
}

// DecodeEvent 解码事件负载（对外导出）
func DecodeEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := ipc.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
