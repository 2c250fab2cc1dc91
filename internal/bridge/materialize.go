package bridge

import (
	"strings"

	"aidance/internal/core"
)

// Outcome is what a Result turns into once validated against the todo
// list the model was shown.
type Outcome struct {
	Records  []core.Record
	NewTodos []core.TodoItem
	// Changes are the todo updates resolved to ids, in reply order.
	Changes []TodoChange
	// Dropped counts elements that failed validation.
	Dropped int
}

// TodoChange is a todo update bound to the id it matched.
type TodoChange struct {
	ID     string
	Action string
}

// Materialize builds validated records and todo changes from r. Every record
// shares base; records come out grouped moods, expenses, events in reply
// order. Updates are matched against todos, the list sent with the request.
func Materialize(r Result, base core.RecordBase, todos core.TodoList) Outcome {
	out := Outcome{Records: []core.Record{}, NewTodos: []core.TodoItem{}, Changes: []TodoChange{}}

	keep := func(rec core.Record) {
		if rec.Validate() != nil {
			out.Dropped++
			return
		}
		out.Records = append(out.Records, rec)
	}
	for _, m := range r.Moods {
		keep(core.NewMoodRecord(core.NewID(), base, m.toCore()))
	}
	for _, e := range r.Expenses {
		keep(core.NewExpenseRecord(core.NewID(), base, e.toCore()))
	}
	for _, e := range r.Events {
		keep(core.NewEventRecord(core.NewID(), base, e.toCore()))
	}

	for _, d := range r.Todos {
		item := core.TodoItem{ID: core.NewID(), Text: strings.TrimSpace(d.Text), Timestamp: base.Timestamp}
		if item.Validate() != nil {
			out.Dropped++
			continue
		}
		out.NewTodos = append(out.NewTodos, item)
	}

	for _, u := range r.TodoUpdates {
		action := strings.ToUpper(strings.TrimSpace(u.Action))
		switch action {
		case ActionComplete, ActionUncomplete, ActionDelete:
		default:
			continue
		}
		if target, ok := MatchTodo(todos, u.OriginalText); ok {
			out.Changes = append(out.Changes, TodoChange{ID: target.ID, Action: action})
		}
	}
	return out
}

// ApplyTodos adds the new todos to list and applies the changes to it.
// Changes whose todo is no longer in list are skipped. It reports whether
// the result differs from list, which is not modified.
func (o Outcome) ApplyTodos(list core.TodoList) (core.TodoList, bool) {
	out := append(core.TodoList{}, list...)
	changed := false
	for _, item := range o.NewTodos {
		out = out.Add(item)
		changed = true
	}
	for _, c := range o.Changes {
		current, ok := out.Find(c.ID)
		if !ok {
			continue
		}
		switch c.Action {
		case ActionDelete:
			out = out.Remove(c.ID)
			changed = true
		case ActionComplete:
			if !current.Completed {
				out = out.SetCompleted(c.ID, true)
				changed = true
			}
		case ActionUncomplete:
			if current.Completed {
				out = out.SetCompleted(c.ID, false)
				changed = true
			}
		}
	}
	return out, changed
}

// MatchTodo returns the first todo whose text contains text or is contained
// in it. Blank text matches nothing.
func MatchTodo(todos core.TodoList, text string) (core.TodoItem, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.TodoItem{}, false
	}
	for _, t := range todos {
		if t.Text == "" {
			continue
		}
		if strings.Contains(t.Text, text) || strings.Contains(text, t.Text) {
			return t, true
		}
	}
	return core.TodoItem{}, false
}
