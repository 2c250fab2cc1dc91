package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"aidance/internal/core"
	applog "aidance/internal/log"
)

// MaxMessages is the number of chat messages kept on save.
const MaxMessages = 50

// Store is the typed view over a KV. Reads never fail: a missing or
// malformed value reads as the empty collection.
type Store struct {
	kv     KV
	logger *applog.Logger
}

func NewStore(kv KV, logger *applog.Logger) *Store {
	if logger == nil {
		logger = applog.Default(applog.ComponentStorage)
	}
	return &Store{kv: kv, logger: logger.WithComponent(applog.ComponentStorage)}
}

// KV exposes the underlying backend.
func (s *Store) KV() KV { return s.kv }

// Records returns the stored records, newest first. Entries that fail to
// decode are skipped.
func (s *Store) Records(ctx context.Context) []core.Record {
	var raw []json.RawMessage
	if !s.load(ctx, KeyRecords, &raw) {
		return []core.Record{}
	}
	out := make([]core.Record, 0, len(raw))
	for _, item := range raw {
		var r core.Record
		if err := json.Unmarshal(item, &r); err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed record",
				applog.FieldKey, KeyRecords, applog.FieldError, err)
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *Store) SaveRecords(ctx context.Context, records []core.Record) error {
	if records == nil {
		records = []core.Record{}
	}
	return s.save(ctx, KeyRecords, records)
}

// AddRecord puts r in front of the stored records.
func (s *Store) AddRecord(ctx context.Context, r core.Record) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("add record: %w", err)
	}
	existing := s.Records(ctx)
	records := make([]core.Record, 0, len(existing)+1)
	records = append(records, r)
	records = append(records, existing...)
	return s.SaveRecords(ctx, records)
}

// DeleteRecord removes the record with id; unknown ids are ignored.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	existing := s.Records(ctx)
	kept := make([]core.Record, 0, len(existing))
	for _, r := range existing {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(existing) {
		return nil
	}
	return s.SaveRecords(ctx, kept)
}

func (s *Store) Messages(ctx context.Context) []core.Message {
	var msgs []core.Message
	if !s.load(ctx, KeyMessages, &msgs) || msgs == nil {
		return []core.Message{}
	}
	return msgs
}

// SaveMessages persists the last MaxMessages entries of msgs.
func (s *Store) SaveMessages(ctx context.Context, msgs []core.Message) error {
	if len(msgs) > MaxMessages {
		msgs = msgs[len(msgs)-MaxMessages:]
	}
	if msgs == nil {
		msgs = []core.Message{}
	}
	return s.save(ctx, KeyMessages, msgs)
}

func (s *Store) Todos(ctx context.Context) core.TodoList {
	var todos core.TodoList
	if !s.load(ctx, KeyTodos, &todos) || todos == nil {
		return core.TodoList{}
	}
	return todos
}

func (s *Store) SaveTodos(ctx context.Context, todos core.TodoList) error {
	if todos == nil {
		todos = core.TodoList{}
	}
	return s.save(ctx, KeyTodos, todos)
}

// AddTodo prepends t to the stored list.
func (s *Store) AddTodo(ctx context.Context, t core.TodoItem) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("add todo: %w", err)
	}
	return s.SaveTodos(ctx, s.Todos(ctx).Add(t))
}

func (s *Store) Budget(ctx context.Context) core.BudgetConfig {
	var b core.BudgetConfig
	if !s.load(ctx, KeyBudget, &b) {
		return core.BudgetConfig{}
	}
	return b
}

func (s *Store) SaveBudget(ctx context.Context, b core.BudgetConfig) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return s.save(ctx, KeyBudget, b.Normalized())
}

// Clear removes every collection. A failing key does not stop the others.
func (s *Store) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range AllKeys {
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) load(ctx context.Context, key string, dst any) bool {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.ErrorContext(ctx, "Failed to read key",
				applog.FieldOperation, applog.OpRead, applog.FieldKey, key, applog.FieldError, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.WarnContext(ctx, "Malformed stored value, using empty default",
			applog.FieldKey, key, applog.FieldError, err)
		return false
	}
	return true
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("write %s (%d bytes): %w", key, len(data), err)
	}
	s.logger.DebugContext(ctx, "Wrote key", applog.FieldKey, key, applog.FieldBytes, len(data))
	return nil
}
