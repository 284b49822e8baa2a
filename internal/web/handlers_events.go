package web

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"churchconnect/internal/calendar"
	"churchconnect/internal/dashboard"
	"churchconnect/internal/ics"
	appLog "churchconnect/internal/log"
	"churchconnect/internal/model"
)

// calendarResponse is the JSON shape for /api/calendar.
type calendarResponse struct {
	Title    string        `json:"title"`
	Year     int           `json:"year"`
	Month    int           `json:"month"`
	Weekdays []string      `json:"weekdays"`
	Leading  int           `json:"leading"`
	Days     []calendarDay `json:"days"`
}

type calendarDay struct {
	Day    int         `json:"day"`
	Date   string      `json:"date"`
	Events []gridEvent `json:"events"`
}

type gridEvent struct {
	ID          model.ID `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	StartTime   string   `json:"startTime,omitempty"`
	Dates       string   `json:"dates"`
	Registrants int      `json:"registrants"`
	Volunteers  int      `json:"volunteers"`
}

// handleCalendar returns the month grid.
//
// GET /api/calendar?year=2025&month=8
//   - year:  defaults to the current year
//   - month: 1-12, defaults to the current month
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.loc)
	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), now.Year())
	month := parseIntDefault(q.Get("month"), int(now.Month()))
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	mv := s.svc.MonthView(year, time.Month(month))
	resp := calendarResponse{
		Title:    mv.Grid.Title(),
		Year:     mv.Grid.Year,
		Month:    int(mv.Grid.Month),
		Weekdays: calendar.WeekdayNames[:],
		Leading:  mv.Grid.Leading(),
		Days:     make([]calendarDay, 0, len(mv.Grid.Cells)),
	}
	for _, c := range mv.Grid.Cells {
		if c.Empty() {
			continue
		}
		day := calendarDay{Day: c.Day, Date: calendar.DateKey(c.Date), Events: []gridEvent{}}
		for _, ev := range c.Events {
			st := mv.Stats[ev.ID]
			day.Events = append(day.Events, gridEvent{
				ID:          ev.ID,
				Name:        ev.Name,
				Status:      ev.Status,
				StartTime:   ev.StartTime,
				Dates:       calendar.FormatEventDates(ev),
				Registrants: st.Registrants,
				Volunteers:  st.Volunteers,
			})
		}
		resp.Days = append(resp.Days, day)
	}
	writeJSON(w, http.StatusOK, resp)
}

func eventID(r *http.Request) model.ID {
	return model.ID(chi.URLParam(r, "id"))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	evs := s.svc.ListEvents(dashboard.EventFilter{Search: q.Get("search"), Status: q.Get("status")})
	writeJSON(w, http.StatusOK, evs)
}

// handleCreateEvent creates an event. ?template=dinner|feast|retreat|service
// prefills defaults before validation.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in dashboard.EventInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if key := r.URL.Query().Get("template"); key != "" {
		var err error
		if in, err = dashboard.ApplyTemplate(in, key); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	ev, err := s.svc.CreateEvent(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.svc.GetEvent(eventID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEvent(r.Context(), eventID(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEventStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ev, err := s.svc.SetEventStatus(r.Context(), eventID(r), body.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleToggleVolunteer(w http.ResponseWriter, r *http.Request) {
	vid := model.ID(chi.URLParam(r, "volunteerID"))
	ev, err := s.svc.ToggleVolunteerAssignment(r.Context(), eventID(r), vid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in dashboard.AttendeeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reg, err := s.svc.RegisterAttendee(r.Context(), eventID(r), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.SendVolunteerReminders(r.Context(), eventID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleImport reads an ICS document from the request body and adds its
// events.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	parsed, err := ics.ParseICS(ics.Source{ID: "upload"}, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	evs := make([]model.Event, 0, len(parsed))
	for _, p := range parsed {
		evs = append(evs, p.ToEvent(s.loc))
	}
	out, err := s.svc.ImportEvents(r.Context(), evs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	appLog.Info("events imported", "parsed", len(parsed), "added", len(out))
	writeJSON(w, http.StatusOK, out)
}
