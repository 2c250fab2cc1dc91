package core

import (
	"errors"
	"strings"
)

var ErrEmptyTodo = errors.New("empty todo text")

type TodoItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Timestamp int64  `json:"timestamp"`
}

// TodoList is an ordered todo collection, newest first. Every method
// returns a new list and leaves the receiver untouched.
type TodoList []TodoItem

func (t TodoItem) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(t.Text) == "" {
		return ErrEmptyTodo
	}
	return nil
}

// Add prepends item.
func (l TodoList) Add(item TodoItem) TodoList {
	out := make(TodoList, 0, len(l)+1)
	out = append(out, item)
	return append(out, l...)
}

// Toggle flips the completion flag of the item with the given id.
func (l TodoList) Toggle(id string) TodoList {
	out := l.clone()
	for i := range out {
		if out[i].ID == id {
			out[i].Completed = !out[i].Completed
		}
	}
	return out
}

// SetCompleted sets the completion flag of the item with the given id.
func (l TodoList) SetCompleted(id string, completed bool) TodoList {
	out := l.clone()
	for i := range out {
		if out[i].ID == id {
			out[i].Completed = completed
		}
	}
	return out
}

// Remove drops the item with the given id.
func (l TodoList) Remove(id string) TodoList {
	out := make(TodoList, 0, len(l))
	for _, t := range l {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// Find returns the item with the given id.
func (l TodoList) Find(id string) (TodoItem, bool) {
	for _, t := range l {
		if t.ID == id {
			return t, true
		}
	}
	return TodoItem{}, false
}

func (l TodoList) clone() TodoList {
	return append(TodoList(nil), l...)
}
