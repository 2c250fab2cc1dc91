package http

import (
	"errors"
	"net/http"

	"aidance/internal/core"
	applog "aidance/internal/log"
	"aidance/internal/services"
	"aidance/internal/storage"
)

type chatRequest struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
}

type messagesResponse struct {
	Messages []core.Message `json:"messages"`
	Sending  bool           `json:"sending"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messagesResponse{Messages: s.svc.Messages(), Sending: s.svc.Sending()})
}

// handleChat runs one turn. When the store refused some writes the turn
// result is still returned, with 507 for a full store.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	res, err := s.svc.Send(r.Context(), sanitizeInput(req.Text), req.Images)
	if res != nil {
		s.events.publish(r.Context(), Event{Type: EventChat, Data: res})
	}
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	if res == nil {
		s.writeServiceError(w, r, "chat", err)
		return
	}

	logger := applog.FromContext(r.Context())
	if errors.Is(err, storage.ErrQuotaExceeded) {
		logger.WarnContext(r.Context(), "Chat turn hit storage quota", applog.FieldError, err)
		writeJSON(w, http.StatusInsufficientStorage, res)
		return
	}
	logger.ErrorContext(r.Context(), "Chat turn partially persisted", applog.FieldError, err)
	writeJSON(w, http.StatusInternalServerError, res)
}

// compile-time check that the service satisfies the handler surface
var _ ChatAPI = (*services.ChatService)(nil)
