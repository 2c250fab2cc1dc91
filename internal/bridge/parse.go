package bridge

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"aidance/internal/core"
)

// Fixed replies used when the model cannot be reached or says nothing.
const (
	ReplyNetworkFailure = "噗，网线被拔了吗？（网络请求失败）"
	ReplyEmpty          = "（艾登斯走神了）"
	apiErrorFormat      = "噗，脑子短路了（API Error: %d）。"
)

// Todo update actions.
const (
	ActionComplete   = "COMPLETE"
	ActionUncomplete = "UNCOMPLETE"
	ActionDelete     = "DELETE"
)

var (
	fenceRe  = regexp.MustCompile("```json\\n?|```")
	objectRe = regexp.MustCompile(`\{[\s\S]*\}`)
)

type (
	MoodItem struct {
		Mood        string
		Score       int
		Emoji       string
		Description string
		Tags        []string
	}

	ExpenseItem struct {
		Amount   float64
		Currency string
		Category string
		Item     string
	}

	EventItem struct {
		Title    string `json:"title"`
		Details  string `json:"details"`
		Category string `json:"category"`
		Time     string `json:"time"`
	}

	TodoDraft struct {
		Text string `json:"text"`
	}

	TodoUpdate struct {
		OriginalText string `json:"originalText"`
		Action       string `json:"action"`
	}

	// Result is the structured reply of one classification call. The slices
	// are never nil.
	Result struct {
		Reply       string
		Moods       []MoodItem
		Expenses    []ExpenseItem
		Events      []EventItem
		Todos       []TodoDraft
		TodoUpdates []TodoUpdate
	}
)

// Fallback returns a Result carrying only reply.
func Fallback(reply string) Result {
	return Result{
		Reply:       reply,
		Moods:       []MoodItem{},
		Expenses:    []ExpenseItem{},
		Events:      []EventItem{},
		Todos:       []TodoDraft{},
		TodoUpdates: []TodoUpdate{},
	}
}

// ParseReply extracts the structured reply from model output. Code fences
// are stripped and the widest {...} span is decoded; output that does not
// decode becomes the reply verbatim. Array elements that do not decode are
// skipped.
func ParseReply(content string) Result {
	clean := strings.TrimSpace(fenceRe.ReplaceAllString(content, ""))
	candidate := clean
	if m := objectRe.FindString(clean); m != "" {
		candidate = m
	}

	var probe json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return Fallback(content)
	}

	probe = bytes.TrimSpace(probe)
	switch {
	case len(probe) > 0 && probe[0] == '"':
		var s string
		_ = json.Unmarshal(probe, &s)
		if s == "" {
			s = ReplyEmpty
		}
		return Fallback(s)
	case len(probe) == 0 || probe[0] != '{':
		return Fallback(ReplyEmpty)
	}

	var wire struct {
		Reply       json.RawMessage   `json:"reply"`
		Moods       []json.RawMessage `json:"moods"`
		Expenses    []json.RawMessage `json:"expenses"`
		Events      []json.RawMessage `json:"events"`
		Todos       []json.RawMessage `json:"todos"`
		TodoUpdates []json.RawMessage `json:"todoUpdates"`
	}
	// Mistyped arrays are treated as absent.
	_ = json.Unmarshal(probe, &wire)

	res := Fallback(ReplyEmpty)
	var reply string
	if json.Unmarshal(wire.Reply, &reply) == nil && reply != "" {
		res.Reply = reply
	}
	res.Moods = decodeEach(wire.Moods, decodeMood)
	res.Expenses = decodeEach(wire.Expenses, decodeExpense)
	res.Events = decodeEach(wire.Events, decodeJSON[EventItem])
	res.Todos = decodeEach(wire.Todos, decodeJSON[TodoDraft])
	res.TodoUpdates = decodeEach(wire.TodoUpdates, decodeJSON[TodoUpdate])
	return res
}

func decodeEach[T any](raw []json.RawMessage, decode func(json.RawMessage) (T, bool)) []T {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		if v, ok := decode(r); ok {
			out = append(out, v)
		}
	}
	return out
}

func decodeJSON[T any](raw json.RawMessage) (T, bool) {
	var v T
	return v, json.Unmarshal(raw, &v) == nil
}

// number accepts JSON numbers and numeric strings.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		*n = number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = number(f)
	return nil
}

func decodeMood(raw json.RawMessage) (MoodItem, bool) {
	var w struct {
		Mood        string   `json:"mood"`
		Score       number   `json:"score"`
		Emoji       string   `json:"emoji"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
	}
	if json.Unmarshal(raw, &w) != nil {
		return MoodItem{}, false
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	return MoodItem{Mood: w.Mood, Score: int(math.Round(float64(w.Score))), Emoji: w.Emoji, Description: w.Description, Tags: w.Tags}, true
}

func decodeExpense(raw json.RawMessage) (ExpenseItem, bool) {
	var w struct {
		Amount   number `json:"amount"`
		Currency string `json:"currency"`
		Category string `json:"category"`
		Item     string `json:"item"`
	}
	if json.Unmarshal(raw, &w) != nil {
		return ExpenseItem{}, false
	}
	return ExpenseItem{Amount: float64(w.Amount), Currency: w.Currency, Category: w.Category, Item: w.Item}, true
}

func (m MoodItem) toCore() core.Mood {
	return core.Mood{Mood: m.Mood, Score: m.Score, Emoji: m.Emoji, Description: m.Description, Tags: append([]string{}, m.Tags...)}
}

func (e ExpenseItem) toCore() core.Expense {
	return core.Expense{Amount: e.Amount, Currency: e.Currency, Category: e.Category, Item: e.Item}
}

func (e EventItem) toCore() core.Event {
	return core.Event{Title: e.Title, Details: e.Details, Category: e.Category, Time: e.Time}
}
