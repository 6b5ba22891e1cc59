package eventbus

import (
	"sync"
)

// Logger is the subset of the platform logger used by the inbox.
type Logger interface {
	InfoTag(tag, msg string, args ...any)
	WarnTag(tag, msg string, args ...any)
}

// Inbox keeps the most recent notifications so a console can render them.
type Inbox struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
	logger   Logger
}

// NewInbox creates an inbox bounded to capacity entries.
func NewInbox(capacity int, logger Logger) *Inbox {
	if capacity <= 0 {
		capacity = 50
	}
	return &Inbox{capacity: capacity, logger: logger}
}

// Attach subscribes the inbox to toast notifications on bus.
func (i *Inbox) Attach(bus *Bus) error {
	return bus.Subscribe(TopicNotification, i.handle)
}

func (i *Inbox) handle(n Notification) {
	if i.logger != nil {
		if n.Level == LevelError {
			i.logger.WarnTag("通知", "%s: %s", n.Title, n.Description)
		} else {
			i.logger.InfoTag("通知", "%s: %s", n.Title, n.Description)
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = append(i.items, n)
	if over := len(i.items) - i.capacity; over > 0 {
		i.items = append(i.items[:0:0], i.items[over:]...)
	}
}

// Recent returns a copy of the retained notifications, oldest first.
func (i *Inbox) Recent() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Notification, len(i.items))
	copy(out, i.items)
	return out
}

// Drain returns and clears the retained notifications.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	return out
}
