// Package session keeps the ordered chat between the user and the assistant
// and persists it after every change.
package session

import (
	"context"
	"sync"
	"time"

	"aidance/internal/bridge"
	"aidance/internal/core"
	applog "aidance/internal/log"
	"aidance/internal/storage"
)

const (
	WelcomeID   = "welcome"
	WelcomeText = "您好！我是您的智能管家艾登斯。今天过得怎么样？"
)

// State is Idle or AwaitingReply.
type State int

const (
	Idle State = iota
	AwaitingReply
)

func (s State) String() string {
	if s == AwaitingReply {
		return "awaiting_reply"
	}
	return "idle"
}

// Session is safe for concurrent use. It does not prevent overlapping
// SendTurn calls; callers that need that guard it themselves.
type Session struct {
	mu       sync.Mutex
	store    *storage.Store
	messages []core.Message
	state    State
	now      func() time.Time
	logger   *applog.Logger
}

type Option func(*Session)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Session) { s.logger = l.WithComponent(applog.ComponentSession) }
}

func New(store *storage.Store, opts ...Option) *Session {
	s := &Session{
		store:  store,
		now:    time.Now,
		logger: applog.Default(applog.ComponentSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the persisted conversation, or starts it with the welcome
// message when there is none. The welcome message is not persisted until
// the first save.
func (s *Session) Load(ctx context.Context) {
	msgs := s.store.Messages(ctx)
	if len(msgs) == 0 {
		msgs = []core.Message{{
			ID:        WelcomeID,
			Role:      core.RoleModel,
			Content:   WelcomeText,
			Timestamp: s.now().UnixMilli(),
		}}
	}
	s.mu.Lock()
	s.messages = msgs
	s.mu.Unlock()
	s.logger.DebugContext(ctx, "Session loaded", applog.FieldCount, len(msgs))
}

// AppendUserTurn records a user message and persists the conversation. A
// failed save is returned but the message stays in memory.
func (s *Session) AppendUserTurn(ctx context.Context, text string, images []string) (core.Message, error) {
	msg := core.Message{
		ID:        core.NewID(),
		Role:      core.RoleUser,
		Content:   text,
		Images:    append([]string(nil), images...),
		Timestamp: s.now().UnixMilli(),
	}
	if len(msg.Images) == 0 {
		msg.Images = nil
	}

	s.mu.Lock()
	s.appendLocked(msg)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	return msg, s.store.SaveMessages(ctx, snapshot)
}

// SendTurn asks classifier about the current conversation. The session is
// AwaitingReply until the call returns.
func (s *Session) SendTurn(ctx context.Context, classifier bridge.Classifier, todos core.TodoList) bridge.Result {
	s.mu.Lock()
	s.state = AwaitingReply
	history := s.snapshotLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = Idle
		s.mu.Unlock()
	}()

	return classifier.Classify(ctx, history, todos)
}

// AppendReply adds the model reply and then every distinct alert, and
// persists the conversation. It returns the messages it added.
func (s *Session) AppendReply(ctx context.Context, reply string, alerts []string) ([]core.Message, error) {
	now := s.now().UnixMilli()
	added := []core.Message{{ID: core.NewID(), Role: core.RoleModel, Content: reply, Timestamp: now}}

	seen := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		if _, dup := seen[a]; dup || a == "" {
			continue
		}
		seen[a] = struct{}{}
		added = append(added, core.Message{
			ID:        core.NewID(),
			Role:      core.RoleModel,
			Content:   a,
			Timestamp: now + 100,
			IsAlert:   true,
		})
	}

	s.mu.Lock()
	s.appendLocked(added...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	return added, s.store.SaveMessages(ctx, snapshot)
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Reset drops the in-memory conversation back to the welcome message.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
	s.Load(ctx)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// appendLocked keeps at most storage.MaxMessages in memory, the same window
// that survives a reload.
func (s *Session) appendLocked(msgs ...core.Message) {
	s.messages = append(s.messages, msgs...)
	if n := len(s.messages); n > storage.MaxMessages {
		s.messages = append([]core.Message(nil), s.messages[n-storage.MaxMessages:]...)
	}
}

func (s *Session) snapshotLocked() []core.Message {
	return append([]core.Message(nil), s.messages...)
}
