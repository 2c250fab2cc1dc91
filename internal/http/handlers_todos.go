package http

import (
	"net/http"

	"aidance/internal/core"
)

type todoRequest struct {
	Text string `json:"text"`
}

type todosResponse struct {
	Todos core.TodoList `json:"todos"`
}

func (s *Server) handleTodos(w http.ResponseWriter, r *http.Request) {
	todos := s.svc.Todos(r.Context())
	if todos == nil {
		todos = core.TodoList{}
	}
	writeJSON(w, http.StatusOK, todosResponse{Todos: todos})
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req todoRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	item, err := s.svc.AddTodo(r.Context(), sanitizeInput(req.Text))
	if err != nil {
		s.writeServiceError(w, r, "add_todo", err)
		return
	}
	s.publishTodos(r)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.ToggleTodo(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, "toggle_todo", err)
		return
	}
	s.publishTodos(r)
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTodo(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, "delete_todo", err)
		return
	}
	s.publishTodos(r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Budget(r.Context()))
}

func (s *Server) handlePutBudget(w http.ResponseWriter, r *http.Request) {
	var b core.BudgetConfig
	if err := s.decodeJSON(w, r, &b); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := s.svc.SaveBudget(r.Context(), b); err != nil {
		s.writeServiceError(w, r, "save_budget", err)
		return
	}
	budget := s.svc.Budget(r.Context())
	s.events.publish(r.Context(), Event{Type: EventBudget, Data: budget})
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearAll(r.Context()); err != nil {
		s.writeServiceError(w, r, "clear", err)
		return
	}
	s.events.publish(r.Context(), Event{Type: EventCleared})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) publishTodos(r *http.Request) {
	s.events.publish(r.Context(), Event{Type: EventTodos, Data: s.svc.Todos(r.Context())})
}
