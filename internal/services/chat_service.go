package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"aidance/internal/aggregate"
	"aidance/internal/bridge"
	"aidance/internal/core"
	applog "aidance/internal/log"
	"aidance/internal/session"
	"aidance/internal/storage"
)

// QuotaNotice is shown to the user when the store refuses a write.
const QuotaNotice = "存储空间已满，请清理旧数据或减少图片使用。"

var (
	ErrEmptyInput     = errors.New("empty message")
	ErrSendInProgress = errors.New("a message is already being sent")
	ErrTodoNotFound   = errors.New("todo not found")
)

// RecordPublisher announces saved records. Implemented by amqp.Client.
type RecordPublisher interface {
	PublishRecordCreated(ctx context.Context, r core.Record) error
}

// SendResult is everything one chat turn produced.
type SendResult struct {
	Messages []core.Message  `json:"messages"`
	Records  []core.Record   `json:"records"`
	NewTodos []core.TodoItem `json:"newTodos"`
	Todos    core.TodoList   `json:"todos"`
	Alerts   []string        `json:"alerts"`
	Notice   string          `json:"notice,omitempty"`
}

// Dashboard is the month view plus the filtered record list.
type Dashboard struct {
	Overview   core.MonthOverview `json:"overview"`
	Budget     core.BudgetConfig  `json:"budget"`
	Tab        aggregate.Tab      `json:"tab"`
	Category   string             `json:"category"`
	Categories []string           `json:"categories"`
	Records    []core.Record      `json:"records"`
}

// ChatService runs chat turns and the record, todo and budget operations
// around them. At most one Send runs at a time.
type ChatService struct {
	store      *storage.Store
	session    *session.Session
	classifier bridge.Classifier
	publisher  RecordPublisher
	budgetOpts aggregate.Options
	loc        *time.Location
	now        func() time.Time
	logger     *applog.Logger

	sending atomic.Bool
	// todoMu serializes read-modify-write of the todo collection.
	todoMu sync.Mutex
}

type Option func(*ChatService)

// WithPublisher enables record events. A nil publisher disables them.
func WithPublisher(p RecordPublisher) Option {
	return func(s *ChatService) { s.publisher = p }
}

func WithBudgetOptions(o aggregate.Options) Option {
	return func(s *ChatService) { s.budgetOpts = o }
}

// WithLocation sets the zone used for calendar months.
func WithLocation(loc *time.Location) Option {
	return func(s *ChatService) { s.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *ChatService) { s.now = now }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *ChatService) { s.logger = l.WithComponent(applog.ComponentChat) }
}

func NewChatService(store *storage.Store, sess *session.Session, classifier bridge.Classifier, opts ...Option) *ChatService {
	s := &ChatService{
		store:      store,
		session:    sess,
		classifier: classifier,
		budgetOpts: aggregate.DefaultOptions(),
		loc:        time.Local,
		now:        time.Now,
		logger:     applog.Default(applog.ComponentChat),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sending reports whether a Send is outstanding.
func (s *ChatService) Sending() bool {
	return s.sending.Load()
}

// Send runs one chat turn. It fails fast with ErrEmptyInput or
// ErrSendInProgress. Otherwise the result is always returned; a non-nil
// error then reports writes the store refused, and processing carried on
// past them.
func (s *ChatService) Send(ctx context.Context, text string, images []string) (*SendResult, error) {
	if strings.TrimSpace(text) == "" && len(images) == 0 {
		return nil, ErrEmptyInput
	}
	if !s.sending.CompareAndSwap(false, true) {
		return nil, ErrSendInProgress
	}
	defer s.sending.Store(false)

	var errs []error
	keep := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	userMsg, err := s.session.AppendUserTurn(ctx, text, images)
	keep(err)

	shown := s.store.Todos(ctx)
	reply := s.session.SendTurn(ctx, s.classifier, shown)

	now := s.now()
	base := core.RecordBase{Timestamp: now.UnixMilli(), RawInput: text, Images: userMsg.Images}
	out := bridge.Materialize(reply, base, shown)
	if out.Dropped > 0 {
		s.logger.WarnContext(ctx, "Dropped invalid items from reply", applog.FieldCount, out.Dropped)
	}

	budget := s.store.Budget(ctx)
	local := now.In(s.loc)
	monthly := aggregate.MonthlyExpenses(s.store.Records(ctx), local.Month(), local.Year(), s.loc)

	alerts := []string{}
	saved := make([]core.Record, 0, len(out.Records))
	for _, r := range out.Records {
		if err := s.store.AddRecord(ctx, r); err != nil {
			keep(err)
			continue
		}
		saved = append(saved, r)
		if r.Expense == nil {
			continue
		}
		if alert, ok := aggregate.CheckBudget(*r.Expense, budget, monthly, s.budgetOpts); ok {
			alerts = append(alerts, alert)
		}
		monthly = append(monthly, r)
	}

	// The list may have changed while the model was answering.
	s.todoMu.Lock()
	todos, changed := out.ApplyTodos(s.store.Todos(ctx))
	if changed {
		keep(s.store.SaveTodos(ctx, todos))
	}
	s.todoMu.Unlock()

	added, err := s.session.AppendReply(ctx, reply.Reply, alerts)
	keep(err)

	for _, r := range saved {
		s.publish(ctx, r)
	}

	res := &SendResult{
		Messages: append([]core.Message{userMsg}, added...),
		Records:  saved,
		NewTodos: out.NewTodos,
		Todos:    todos,
		Alerts:   alerts,
	}

	s.logger.InfoContext(ctx, "Chat turn completed",
		"records", len(saved), "alerts", len(alerts), "new_todos", len(out.NewTodos))

	if len(errs) == 0 {
		return res, nil
	}
	err = errors.Join(errs...)
	if errors.Is(err, storage.ErrQuotaExceeded) {
		res.Notice = QuotaNotice
	}
	return res, fmt.Errorf("persist chat turn: %w", err)
}

func (s *ChatService) publish(ctx context.Context, r core.Record) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordCreated(ctx, r); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish record event",
			applog.FieldOperation, applog.OpPublish, applog.FieldRecordID, r.ID, applog.FieldError, err)
	}
}

// Messages returns the conversation.
func (s *ChatService) Messages() []core.Message {
	return s.session.Messages()
}

// Records returns the stored records for a tab and category, newest first.
func (s *ChatService) Records(ctx context.Context, tab aggregate.Tab, category string) []core.Record {
	return aggregate.FilterByTab(s.store.Records(ctx), tab, category)
}

func (s *ChatService) DeleteRecord(ctx context.Context, id string) error {
	return s.store.DeleteRecord(ctx, id)
}

// Dashboard builds the month view. A zero year or month means the current
// one.
func (s *ChatService) Dashboard(ctx context.Context, year int, month time.Month, tab aggregate.Tab, category string) Dashboard {
	now := s.now().In(s.loc)
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = now.Month()
	}
	if category == "" {
		category = aggregate.AllCategories
	}

	records := s.store.Records(ctx)
	budget := s.store.Budget(ctx)
	return Dashboard{
		Overview:   aggregate.Overview(records, budget, year, month, s.loc),
		Budget:     budget.Normalized(),
		Tab:        tab,
		Category:   category,
		Categories: aggregate.Categories(records, tab),
		Records:    aggregate.FilterByTab(records, tab, category),
	}
}

func (s *ChatService) Budget(ctx context.Context) core.BudgetConfig {
	return s.store.Budget(ctx).Normalized()
}

func (s *ChatService) SaveBudget(ctx context.Context, b core.BudgetConfig) error {
	return s.store.SaveBudget(ctx, b)
}

func (s *ChatService) Todos(ctx context.Context) core.TodoList {
	return s.store.Todos(ctx)
}

// AddTodo creates an open todo at the top of the list.
func (s *ChatService) AddTodo(ctx context.Context, text string) (core.TodoItem, error) {
	item := core.TodoItem{ID: core.NewID(), Text: strings.TrimSpace(text), Timestamp: s.now().UnixMilli()}
	s.todoMu.Lock()
	defer s.todoMu.Unlock()
	if err := s.store.AddTodo(ctx, item); err != nil {
		return core.TodoItem{}, err
	}
	return item, nil
}

func (s *ChatService) ToggleTodo(ctx context.Context, id string) (core.TodoItem, error) {
	s.todoMu.Lock()
	defer s.todoMu.Unlock()
	todos := s.store.Todos(ctx)
	if _, ok := todos.Find(id); !ok {
		return core.TodoItem{}, ErrTodoNotFound
	}
	todos = todos.Toggle(id)
	if err := s.store.SaveTodos(ctx, todos); err != nil {
		return core.TodoItem{}, err
	}
	item, _ := todos.Find(id)
	return item, nil
}

func (s *ChatService) DeleteTodo(ctx context.Context, id string) error {
	s.todoMu.Lock()
	defer s.todoMu.Unlock()
	todos := s.store.Todos(ctx)
	if _, ok := todos.Find(id); !ok {
		return ErrTodoNotFound
	}
	return s.store.SaveTodos(ctx, todos.Remove(id))
}

// ClearAll wipes every collection and restarts the conversation.
func (s *ChatService) ClearAll(ctx context.Context) error {
	s.todoMu.Lock()
	err := s.store.Clear(ctx)
	s.todoMu.Unlock()
	s.session.Reset(ctx)
	s.logger.InfoContext(ctx, "All data cleared", applog.FieldOperation, applog.OpClear)
	return err
}
