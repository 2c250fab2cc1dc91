package storage

import (
	"context"
	"errors"
)

// Keys of the four persisted collections.
const (
	KeyRecords  = "butler_app_records"
	KeyMessages = "butler_app_messages"
	KeyBudget   = "butler_app_budget"
	KeyTodos    = "butler_app_todos"
)

// AllKeys lists every key the Store writes.
var AllKeys = []string{KeyRecords, KeyMessages, KeyBudget, KeyTodos}

var (
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Set when the write would push the
	// backend past its byte quota. The previous value is kept.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// KV is a string-keyed blob store. Each Set replaces the value atomically;
// deleting an absent key is not an error.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
