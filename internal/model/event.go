package model

import "time"

// Log event level constants. These mirror the levels the frontend renders
// with distinct styling, so they are part of the wire contract.
const (
	LevelDebug    = "debug"
	LevelInfo     = "info"
	LevelQuestion = "question"
	LevelWarning  = "warning"
	LevelError    = "error"
	LevelSuccess  = "success"
	LevelTool     = "tool"
	LevelStep     = "step"
	LevelResult   = "result"
)

// LogEvent is a single timestamped, leveled message produced during a task's
// execution. Events are immutable once appended to a task's log channel.
type LogEvent struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLogEvent creates a log event stamped with the current time.
func NewLogEvent(level, message string) LogEvent {
	return LogEvent{
		Level:     level,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}
