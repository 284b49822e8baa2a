package calendar

import (
	"time"

	"churchconnect/internal/model"
)

// WeekdayNames are the grid column headers; the week starts on Sunday.
var WeekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Cell is one grid position. Day is 0 for leading padding cells.
type Cell struct {
	Day    int
	Date   time.Time
	Events []model.Event
}

// Empty reports whether the cell is padding.
func (c Cell) Empty() bool {
	return c.Day == 0
}

// Grid is a month laid out Sunday-first: weekday-of-day-1 padding cells
// followed by one cell per day. The final week is not padded.
type Grid struct {
	Year  int
	Month time.Month
	Cells []Cell
}

// BuildMonth builds the grid for year/month with the default matcher.
func BuildMonth(year int, month time.Month, events []model.Event) Grid {
	return Matcher{}.BuildMonth(year, month, events)
}

// BuildMonth builds the grid for year/month, attaching to each day the
// events that occur on it. Dates are local-time midnights. events is not
// modified.
func (m Matcher) BuildMonth(year int, month time.Month, events []model.Event) Grid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	// Normalize out-of-range months (e.g. 13) the same way time.Date does.
	year, month = first.Year(), first.Month()

	lead := int(first.Weekday())
	days := DaysInMonth(year, month)

	g := Grid{
		Year:  year,
		Month: month,
		Cells: make([]Cell, 0, lead+days),
	}
	for i := 0; i < lead; i++ {
		g.Cells = append(g.Cells, Cell{})
	}
	for day := 1; day <= days; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
		g.Cells = append(g.Cells, Cell{
			Day:    day,
			Date:   date,
			Events: m.EventsOn(events, date),
		})
	}
	return g
}

// Leading returns the number of padding cells before day 1.
func (g Grid) Leading() int {
	n := 0
	for _, c := range g.Cells {
		if !c.Empty() {
			break
		}
		n++
	}
	return n
}

// Cell returns the cell for day, if the month has it.
func (g Grid) Cell(day int) (Cell, bool) {
	if day < 1 {
		return Cell{}, false
	}
	i := g.Leading() + day - 1
	if i >= len(g.Cells) {
		return Cell{}, false
	}
	return g.Cells[i], true
}

// Weeks splits the cells into rows of seven; the last row may be short.
func (g Grid) Weeks() [][]Cell {
	var rows [][]Cell
	for i := 0; i < len(g.Cells); i += 7 {
		end := i + 7
		if end > len(g.Cells) {
			end = len(g.Cells)
		}
		rows = append(rows, g.Cells[i:end])
	}
	return rows
}

// Title renders e.g. "August 2025".
func (g Grid) Title() string {
	return time.Date(g.Year, g.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}

// EventStats are the per-event counters shown on each grid entry.
type EventStats struct {
	Registrants int `json:"registrants"`
	Volunteers  int `json:"volunteers"`
}

// StatsFor computes registrant and volunteer counts for every event.
// Registrants count each attendee plus their group members.
func StatsFor(events []model.Event, attendees []model.Attendee) map[model.ID]EventStats {
	out := make(map[model.ID]EventStats, len(events))
	for _, ev := range events {
		out[ev.ID] = EventStats{Volunteers: len(ev.Volunteers)}
	}
	for _, a := range attendees {
		s, ok := out[a.EventID]
		if !ok {
			continue
		}
		s.Registrants += a.PartySize()
		out[a.EventID] = s
	}
	return out
}
