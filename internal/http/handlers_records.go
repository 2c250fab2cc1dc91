package http

import (
	"net/http"
	"strings"

	"aidance/internal/aggregate"
	"aidance/internal/core"
)

type recordsResponse struct {
	Tab      aggregate.Tab `json:"tab"`
	Category string        `json:"category"`
	Records  []core.Record `json:"records"`
}

func tabAndCategory(r *http.Request) (aggregate.Tab, string) {
	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	if category == "" {
		category = aggregate.AllCategories
	}
	return aggregate.ParseTab(q.Get("tab")), category
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	tab, category := tabAndCategory(r)
	writeJSON(w, http.StatusOK, recordsResponse{
		Tab:      tab,
		Category: category,
		Records:  s.svc.Records(r.Context(), tab, category),
	})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing record id")
		return
	}
	if err := s.svc.DeleteRecord(r.Context(), id); err != nil {
		s.writeServiceError(w, r, "delete_record", err)
		return
	}
	s.events.publish(r.Context(), Event{Type: EventRecordDeleted, Data: map[string]string{"id": id}})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tab, category := tabAndCategory(r)
	writeJSON(w, http.StatusOK, s.svc.Dashboard(r.Context(), year, month, tab, category))
}
