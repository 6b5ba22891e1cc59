package eventbus

import (
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
)

// Bus is a synchronous in-process event bus. Handlers run on the publisher's goroutine.
// Each topic gets its own underlying bus: a handler may publish to other topics,
// never to the topic it is handling.
type Bus struct {
	mu     sync.Mutex
	topics map[string]evbus.Bus
	now    func() time.Time
}

// New 创建新的同步事件总线
func New() *Bus {
	return &Bus{topics: make(map[string]evbus.Bus), now: time.Now}
}

func (b *Bus) topic(name string) evbus.Bus {
	b.mu.Lock()
	defer b.mu.Unlock()
	bus, ok := b.topics[name]
	if !ok {
		bus = evbus.New()
		b.topics[name] = bus
	}
	return bus
}

// Publish 发布同步事件
func (b *Bus) Publish(topic string, args ...interface{}) {
	if b == nil {
		return
	}
	b.topic(topic).Publish(topic, args...)
}

// Subscribe 订阅同步事件
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.topic(topic).Subscribe(topic, fn)
}

// Unsubscribe 取消订阅
func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.topic(topic).Unsubscribe(topic, fn)
}

// HasCallback 检查是否有订阅者
func (b *Bus) HasCallback(topic string) bool {
	return b.topic(topic).HasCallback(topic)
}

// Notify publishes a toast.
func (b *Bus) Notify(level Level, title, description string) {
	if b == nil {
		return
	}
	b.Publish(TopicNotification, Notification{
		Level:       level,
		Title:       title,
		Description: description,
		At:          b.now(),
	})
}

func (b *Bus) Success(title, description string) { b.Notify(LevelSuccess, title, description) }

func (b *Bus) Error(title, description string) { b.Notify(LevelError, title, description) }

func (b *Bus) Info(title, description string) { b.Notify(LevelInfo, title, description) }
