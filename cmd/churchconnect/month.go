package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"churchconnect/internal/calendar"
	"churchconnect/internal/dashboard"
	"churchconnect/internal/model"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	headColor  = color.New(color.FgWhite, color.Bold)
	eventColor = color.New(color.FgGreen, color.Bold)
	todayColor = color.New(color.FgBlack, color.BgYellow)
	closed     = color.New(color.FgRed)
)

// printMonth renders the grid, marking days with events (*) and today,
// followed by the events of the month in date order.
func printMonth(w io.Writer, mv dashboard.MonthView, now time.Time) {
	g := mv.Grid
	titleColor.Fprintf(w, "%s\n", g.Title())
	for _, d := range calendar.WeekdayNames {
		headColor.Fprintf(w, "%-5s", d)
	}
	fmt.Fprintln(w)

	today := calendar.DateKey(now)
	for _, week := range g.Weeks() {
		for _, c := range week {
			if c.Empty() {
				fmt.Fprint(w, "     ")
				continue
			}
			mark := " "
			if len(c.Events) > 0 {
				mark = "*"
			}
			cell := fmt.Sprintf("%2d%s", c.Day, mark)
			switch {
			case calendar.DateKey(c.Date) == today:
				todayColor.Fprint(w, cell)
			case len(c.Events) > 0:
				eventColor.Fprint(w, cell)
			default:
				fmt.Fprint(w, cell)
			}
			fmt.Fprint(w, "  ")
		}
		fmt.Fprintln(w)
	}

	type line struct {
		date string
		ev   model.Event
	}
	seen := map[string]bool{}
	var lines []line
	for _, c := range g.Cells {
		for _, ev := range c.Events {
			key := calendar.DateKey(c.Date) + "/" + string(ev.ID)
			if seen[key] {
				continue
			}
			seen[key] = true
			lines = append(lines, line{date: calendar.DateKey(c.Date), ev: ev})
		}
	}
	if len(lines) == 0 {
		return
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].date < lines[j].date })

	fmt.Fprintln(w)
	for _, l := range lines {
		st := mv.Stats[l.ev.ID]
		name := l.ev.Name
		if l.ev.Status != model.StatusActive {
			name = closed.Sprintf("%s (%s)", name, l.ev.Status)
		}
		details := []string{fmt.Sprintf("%d registered", st.Registrants), fmt.Sprintf("%d volunteers", st.Volunteers)}
		if l.ev.StartTime != "" {
			details = append([]string{l.ev.StartTime}, details...)
		}
		fmt.Fprintf(w, "%s  %s  %s\n", l.date, name, strings.Join(details, ", "))
	}
}
