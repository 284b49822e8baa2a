package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"churchconnect/internal/dashboard"
	"churchconnect/internal/ics"
	"churchconnect/internal/model"
	"churchconnect/internal/share"
)

func writeICS(w http.ResponseWriter, exp dashboard.Export) {
	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, exp.Content)
}

func (s *Server) handleEventICS(w http.ResponseWriter, r *http.Request) {
	exp, err := s.svc.ExportEvent(eventID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeICS(w, exp)
}

func (s *Server) handleExportAll(w http.ResponseWriter, _ *http.Request) {
	exp, err := s.svc.ExportAll()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeICS(w, exp)
}

func (s *Server) handleEventLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.svc.Links(eventID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// handleEventQR renders the event's add-to-calendar link as a PNG.
//
// GET /api/events/{id}/qr.png?service=google&size=256
func (s *Server) handleEventQR(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	service := ics.Service(q.Get("service"))
	if service == "" {
		service = ics.Google
	}
	link, err := s.svc.Link(eventID(r), service)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	png, err := share.QRCode(link, parseIntDefault(q.Get("size"), share.DefaultSize))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// exportRequest is a caller-supplied event with string timestamps.
type exportRequest struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	AllDay       bool   `json:"allDay"`
	Created      string `json:"created,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

func (s *Server) toExportable(in exportRequest) (model.ExportableEvent, error) {
	start, err := ics.ParseTimestamp("startDate", in.StartDate, s.loc)
	if err != nil {
		return model.ExportableEvent{}, err
	}
	end, err := ics.ParseTimestamp("endDate", in.EndDate, s.loc)
	if err != nil {
		return model.ExportableEvent{}, err
	}
	ev := model.ExportableEvent{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartDate:   start,
		EndDate:     end,
		AllDay:      in.AllDay,
	}
	if in.Created != "" {
		if ev.Created, err = ics.ParseTimestamp("created", in.Created, s.loc); err != nil {
			return model.ExportableEvent{}, err
		}
	}
	if in.LastModified != "" {
		if ev.LastModified, err = ics.ParseTimestamp("lastModified", in.LastModified, s.loc); err != nil {
			return model.ExportableEvent{}, err
		}
	}
	return ev, nil
}

// decodeExportables accepts a single event object or an array of them.
func (s *Server) decodeExportables(r *http.Request) ([]model.ExportableEvent, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, false, err
	}
	body = bytes.TrimSpace(body)

	var reqs []exportRequest
	bulk := len(body) > 0 && body[0] == '['
	if bulk {
		err = json.Unmarshal(body, &reqs)
	} else {
		var one exportRequest
		err = json.Unmarshal(body, &one)
		reqs = []exportRequest{one}
	}
	if err != nil {
		return nil, false, err
	}

	out := make([]model.ExportableEvent, 0, len(reqs))
	for _, req := range reqs {
		ev, err := s.toExportable(req)
		if err != nil {
			return nil, false, err
		}
		out = append(out, ev)
	}
	return out, bulk, nil
}

// handleExportICS serializes caller-supplied events.
//
// POST /api/export/ics   body: {...} or [{...}, ...]
func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	evs, bulk, err := s.decodeExportables(r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	var content, filename string
	if bulk {
		content, err = s.svc.Serializer.Bulk(evs)
		filename = ics.BulkFilename(s.svc.Clock.Now())
	} else {
		content, err = s.svc.Serializer.Event(evs[0])
		filename = ics.Filename(evs[0].Title)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeICS(w, dashboard.Export{Filename: filename, Content: content})
}

// handleExportLinks builds calendar-service links for one caller-supplied
// event. With ?service= only that link is returned.
func (s *Server) handleExportLinks(w http.ResponseWriter, r *http.Request) {
	evs, bulk, err := s.decodeExportables(r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	if bulk {
		writeError(w, http.StatusBadRequest, "links take a single event")
		return
	}

	if svc := r.URL.Query().Get("service"); svc != "" {
		link, err := s.svc.LinkBuilder.Build(evs[0], ics.Service(svc))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"service": svc, "url": link})
		return
	}

	links, err := s.svc.LinkBuilder.All(evs[0])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var serr *ics.SerializationError
	if errors.As(err, &serr) {
		writeServiceError(w, err)
		return
	}
	writeError(w, http.StatusBadRequest, "invalid JSON body")
}
