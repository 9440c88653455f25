// Package session holds the per-user state the workflows operate on.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/conversation"
)

var (
	ErrBusy     = errors.New("session is processing another request")
	ErrNotFound = errors.New("session not found")
)

// Stage is the outer interview state.
type Stage int

const (
	StageStart Stage = iota
	StageAwaitingAnswer
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageAwaitingAnswer:
		return "awaiting_answer"
	default:
		return "unknown"
	}
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	switch string(text) {
	case "start":
		*s = StageStart
	case "awaiting_answer":
		*s = StageAwaitingAnswer
	default:
		return fmt.Errorf("unknown stage %q", text)
	}
	return nil
}

// Session scopes one conversation log and its configuration.
// run serializes workflow invocations; mu guards the fields below it.
type Session struct {
	ID        string
	Config    Config
	CreatedAt time.Time

	run sync.Mutex

	// set once the store has handed the session to its close hook
	closed atomic.Bool

	mu       sync.RWMutex
	log      *conversation.Log
	stage    Stage
	question string
}

func New(cfg Config) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
		log:       conversation.NewLog(),
		stage:     StageStart,
	}
}

// Lock reserves the session for one workflow invocation. It never blocks:
// a concurrent caller gets ErrBusy. The returned function releases the session.
func (s *Session) Lock() (func(), error) {
	if !s.run.TryLock() {
		return nil, ErrBusy
	}
	return s.run.Unlock, nil
}

func (s *Session) Append(role conversation.Role, content string) (conversation.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Append(role, content)
}

func (s *Session) At(index int) (conversation.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.At(index)
}

func (s *Session) Tail(n int) []conversation.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Tail(n)
}

func (s *Session) Messages() []conversation.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Messages()
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Len()
}

func (s *Session) Stage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// Question returns the interview question currently awaiting an answer.
func (s *Session) Question() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.question
}

// Ask records question as the open question and moves the session to StageAwaitingAnswer.
func (s *Session) Ask(question string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.question = question
	s.stage = StageAwaitingAnswer
}

// Transcript is a point-in-time copy of a session used for archiving and rendering.
type Transcript struct {
	ID        string                 `json:"id"`
	Config    Config                 `json:"config"`
	Stage     Stage                  `json:"stage"`
	CreatedAt time.Time              `json:"created_at"`
	Messages  []conversation.Message `json:"messages"`
}

func (s *Session) Transcript() Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Transcript{
		ID:        s.ID,
		Config:    s.Config,
		Stage:     s.stage,
		CreatedAt: s.CreatedAt,
		Messages:  s.log.Messages(),
	}
}
