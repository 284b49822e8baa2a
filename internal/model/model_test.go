package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{"id": 1754000000000, "volunteers": [1, "abc"], "dates": ["2025-08-15"]}`), &ev)
	require.NoError(t, err)
	assert.Equal(t, ID("1754000000000"), ev.ID)
	assert.Equal(t, []ID{"1", "abc"}, ev.Volunteers)

	var a Attendee
	require.NoError(t, json.Unmarshal([]byte(`{"id": "x", "eventId": null}`), &a))
	assert.Equal(t, ID("x"), a.ID)
	assert.Equal(t, ID(""), a.EventID)

	assert.Error(t, json.Unmarshal([]byte(`{"id": true}`), &a))
}

func TestPartySizeAndHasVolunteer(t *testing.T) {
	a := Attendee{GroupMembers: []GroupMember{{Name: "Jane"}, {Name: "Tim"}}}
	assert.Equal(t, 3, a.PartySize())

	ev := Event{Volunteers: []ID{"1", "2"}}
	assert.True(t, ev.HasVolunteer("2"))
	assert.False(t, ev.HasVolunteer("3"))
}

func TestToExportableAllDay(t *testing.T) {
	loc := time.UTC
	ev := Event{ID: "1", Name: "Youth Summer Retreat", DateType: DateSingle, Dates: []string{"2025-08-15"}, Location: "Camp"}

	out := ToExportable(ev, loc)
	require.Len(t, out, 1)
	x := out[0]
	assert.Equal(t, "1", x.ID)
	assert.True(t, x.AllDay)
	assert.Equal(t, time.Date(2025, 8, 15, 0, 0, 0, 0, loc), x.StartDate)
	assert.Equal(t, time.Date(2025, 8, 16, 0, 0, 0, 0, loc), x.EndDate)
	assert.Equal(t, "Camp", x.Location)
}

func TestToExportableTimedMultiple(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	ev := Event{
		ID: "7", Name: "Choir", DateType: DateMultiple,
		Dates:     []string{"2025-08-01", "not-a-date", "2025-08-15"},
		StartTime: "18:30", EndTime: "8:00 PM",
	}
	out := ToExportable(ev, loc)
	require.Len(t, out, 2)
	assert.Equal(t, "7-1", out[0].ID)
	assert.Equal(t, "7-2", out[1].ID)
	assert.False(t, out[0].AllDay)
	assert.Equal(t, time.Date(2025, 8, 1, 18, 30, 0, 0, loc), out[0].StartDate)
	assert.Equal(t, time.Date(2025, 8, 15, 20, 0, 0, 0, loc), out[1].EndDate)
}

func TestToExportableOvernight(t *testing.T) {
	ev := Event{ID: "9", DateType: DateSingle, Dates: []string{"2025-12-31"}, StartTime: "22:00", EndTime: "01:00"}
	out := ToExportable(ev, time.UTC)
	require.Len(t, out, 1)
	assert.Equal(t, time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), out[0].EndDate)
}

func TestToExportableSkipsUndated(t *testing.T) {
	assert.Empty(t, ToExportable(Event{DateType: DateRecurring, RecurrencePattern: "weekly"}, time.UTC))
	assert.Empty(t, ToExportable(Event{DateType: DateOngoing}, time.UTC))
	assert.Empty(t, ToExportable(Event{DateType: DateSingle}, nil))
}
