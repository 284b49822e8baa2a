package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"churchconnect/internal/dashboard"
	"churchconnect/internal/model"
)

func (s *Server) handleListVolunteers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListVolunteers(r.URL.Query().Get("search")))
}

func (s *Server) handleAddVolunteer(w http.ResponseWriter, r *http.Request) {
	var in dashboard.VolunteerInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	v, err := s.svc.AddVolunteer(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// GET /api/attendees?search=&eventId=
func (s *Server) handleListAttendees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.svc.ListAttendees(dashboard.AttendeeFilter{
		Search:  q.Get("search"),
		EventID: model.ID(q.Get("eventId")),
	}))
}

func (s *Server) handleUpdateAttendee(w http.ResponseWriter, r *http.Request) {
	var a model.Attendee
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	a.ID = model.ID(chi.URLParam(r, "id"))
	out, err := s.svc.UpdateAttendee(r.Context(), a)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCheckIn toggles check-in for the primary registrant, or for the
// group member at ?member=N.
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var member *int
	if raw := r.URL.Query().Get("member"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "member must be an integer")
			return
		}
		member = &n
	}
	a, err := s.svc.ToggleCheckIn(r.Context(), model.ID(chi.URLParam(r, "id")), member)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListCommunications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListCommunications())
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var in dashboard.MessageInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := s.svc.SendMessage(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
