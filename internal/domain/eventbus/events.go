package eventbus

import "time"

// 事件主题
const (
	// TopicNotification carries user-facing toasts.
	TopicNotification = "notify:toast"
	// TopicUnauthorized fires when the backend rejected a request that carried a token.
	TopicUnauthorized = "api:unauthorized"
	// TopicSessionChanged fires after login, logout or rehydration.
	TopicSessionChanged = "session:changed"
)

// Level is the severity of a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notification is a transient user-facing message.
type Notification struct {
	Level       Level     `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"at"`
}

// UnauthorizedEvent describes a 401 answered to an authenticated request.
type UnauthorizedEvent struct {
	Token  string
	Method string
	Path   string
}

// SessionEvent is published whenever the auth state flips.
// Replaced is set when a login took over a session opened with another token.
type SessionEvent struct {
	Authenticated bool
	Replaced      bool
	Reason        string
}
