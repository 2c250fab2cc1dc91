package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RecordMood    RecordType = "MOOD"
	RecordExpense RecordType = "EXPENSE"
	RecordEvent   RecordType = "EVENT"
)

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// DefaultCurrency is applied to expenses the model reports without one.
const DefaultCurrency = "¥"

type (
	RecordType string

	Role string

	Mood struct {
		Mood        string   `json:"mood"`
		Score       int      `json:"score"`
		Emoji       string   `json:"emoji"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	}

	Expense struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		Category string  `json:"category"`
		Item     string  `json:"item"`
	}

	Event struct {
		Title    string `json:"title"`
		Details  string `json:"details"`
		Category string `json:"category"`
		Time     string `json:"time,omitempty"`
	}

	// Record is a persisted mood, expense or event. Exactly one of the
	// variant pointers is set, the one matching Type.
	Record struct {
		ID        string
		Timestamp int64 // milliseconds since epoch
		Type      RecordType
		RawInput  string
		Images    []string

		Mood    *Mood
		Expense *Expense
		Event   *Event
	}

	Message struct {
		ID        string   `json:"id"`
		Role      Role     `json:"role"`
		Content   string   `json:"content"`
		Images    []string `json:"images,omitempty"`
		Timestamp int64    `json:"timestamp"`
		IsAlert   bool     `json:"isAlert,omitempty"`
	}

	// RecordBase carries the fields shared by every record derived from one
	// user message.
	RecordBase struct {
		Timestamp int64
		RawInput  string
		Images    []string
	}
)

var (
	ErrUnknownRecordType = errors.New("unknown record type")
	ErrVariantMismatch   = errors.New("record variant does not match type")
	ErrEmptyID           = errors.New("empty id")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyMood         = errors.New("empty mood label")
	ErrEmptyTitle        = errors.New("empty event title")
	ErrInvalidRole       = errors.New("invalid role")
)

// ExpenseCategories lists the categories the assistant is told to use.
// Records with other categories are accepted.
var ExpenseCategories = []string{"餐饮", "交通", "购物", "娱乐", "居家", "医疗", "其他"}

// EventCategories lists the suggested event categories.
var EventCategories = []string{"工作", "生活", "娱乐", "学习", "健康", "其他"}

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.NewString()
}

// NowMillis returns t as milliseconds since epoch.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// TimeOf converts a millisecond timestamp to a time in loc.
func TimeOf(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc)
}

func (t RecordType) IsValid() bool {
	switch t {
	case RecordMood, RecordExpense, RecordEvent:
		return true
	default:
		return false
	}
}

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleModel
}

func NewMoodRecord(id string, base RecordBase, m Mood) Record {
	if m.Tags == nil {
		m.Tags = []string{}
	}
	return Record{ID: id, Timestamp: base.Timestamp, Type: RecordMood, RawInput: base.RawInput, Images: cloneStrings(base.Images), Mood: &m}
}

func NewExpenseRecord(id string, base RecordBase, e Expense) Record {
	if strings.TrimSpace(e.Currency) == "" {
		e.Currency = DefaultCurrency
	}
	return Record{ID: id, Timestamp: base.Timestamp, Type: RecordExpense, RawInput: base.RawInput, Images: cloneStrings(base.Images), Expense: &e}
}

func NewEventRecord(id string, base RecordBase, e Event) Record {
	return Record{ID: id, Timestamp: base.Timestamp, Type: RecordEvent, RawInput: base.RawInput, Images: cloneStrings(base.Images), Event: &e}
}

func (m Mood) Validate() error {
	if strings.TrimSpace(m.Mood) == "" {
		return ErrEmptyMood
	}
	return nil
}

func (e Expense) Validate() error {
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) || e.Amount < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Validate checks the common fields and that only the variant named by
// Type is populated.
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	if r.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}
	switch r.Type {
	case RecordMood:
		if r.Mood == nil || r.Expense != nil || r.Event != nil {
			return ErrVariantMismatch
		}
		return r.Mood.Validate()
	case RecordExpense:
		if r.Expense == nil || r.Mood != nil || r.Event != nil {
			return ErrVariantMismatch
		}
		return r.Expense.Validate()
	case RecordEvent:
		if r.Event == nil || r.Mood != nil || r.Expense != nil {
			return ErrVariantMismatch
		}
		return r.Event.Validate()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRecordType, r.Type)
	}
}

// Category returns the expense or event category; mood records have none.
func (r Record) Category() string {
	switch {
	case r.Expense != nil:
		return r.Expense.Category
	case r.Event != nil:
		return r.Event.Category
	default:
		return ""
	}
}

type recordHeader struct {
	ID        string     `json:"id"`
	Timestamp int64      `json:"timestamp"`
	Type      RecordType `json:"type"`
	RawInput  string     `json:"rawInput"`
	Images    []string   `json:"images,omitempty"`
}

// MarshalJSON writes the flat shape the stored collections use, with the
// variant fields alongside the common ones.
func (r Record) MarshalJSON() ([]byte, error) {
	h := recordHeader{ID: r.ID, Timestamp: r.Timestamp, Type: r.Type, RawInput: r.RawInput, Images: r.Images}
	switch {
	case r.Type == RecordMood && r.Mood != nil:
		return json.Marshal(struct {
			recordHeader
			Mood
		}{h, *r.Mood})
	case r.Type == RecordExpense && r.Expense != nil:
		return json.Marshal(struct {
			recordHeader
			Expense
		}{h, *r.Expense})
	case r.Type == RecordEvent && r.Event != nil:
		return json.Marshal(struct {
			recordHeader
			Event
		}{h, *r.Event})
	}
	return nil, fmt.Errorf("marshal record %s: %w", r.ID, ErrVariantMismatch)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var h recordHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	out := Record{ID: h.ID, Timestamp: h.Timestamp, Type: h.Type, RawInput: h.RawInput, Images: h.Images}
	switch h.Type {
	case RecordMood:
		var m Mood
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		if m.Tags == nil {
			m.Tags = []string{}
		}
		out.Mood = &m
	case RecordExpense:
		var e Expense
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		out.Expense = &e
	case RecordEvent:
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		out.Event = &e
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRecordType, h.Type)
	}
	*r = out
	return nil
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return ErrEmptyID
	}
	if !m.Role.IsValid() {
		return ErrInvalidRole
	}
	return nil
}

// HasImages reports whether the message carries attachments.
func (m Message) HasImages() bool {
	return len(m.Images) > 0
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
