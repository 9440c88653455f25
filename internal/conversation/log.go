package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	ErrOutOfRange  = errors.New("message index out of range")
	ErrUnknownRole = errors.New("unknown message role")
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single role-tagged entry of a conversation. It is never modified after append.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is an append-only ordered list of messages owned by one session.
// It is not safe for concurrent use; the owning session serializes access.
type Log struct {
	messages []Message
	now      func() time.Time
}

func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append adds a message at the end of the log and returns it.
func (l *Log) Append(role Role, content string) (Message, error) {
	if !role.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	now := time.Now
	if l.now != nil {
		now = l.now
	}

	msg := Message{Role: role, Content: content, CreatedAt: now()}
	l.messages = append(l.messages, msg)

	return msg, nil
}

func (l *Log) Len() int {
	return len(l.messages)
}

// At returns the message at index. Negative indexes count from the end, so -1 is the last message.
func (l *Log) At(index int) (Message, error) {
	i := index
	if i < 0 {
		i += len(l.messages)
	}
	if i < 0 || i >= len(l.messages) {
		return Message{}, fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, index, len(l.messages))
	}

	return l.messages[i], nil
}

// Tail returns a copy of the last n messages, or fewer when the log is shorter.
func (l *Log) Tail(n int) []Message {
	if n <= 0 {
		return []Message{}
	}
	if n > len(l.messages) {
		n = len(l.messages)
	}

	out := make([]Message, n)
	copy(out, l.messages[len(l.messages)-n:])

	return out
}

// Messages returns a copy of the whole log.
func (l *Log) Messages() []Message {
	return l.Tail(len(l.messages))
}

// Contents joins the content of the given messages with newlines.
func Contents(messages []Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}

	return strings.Join(parts, "\n")
}
