// Package message renders the dashboard's mail templates.
//
// Templates use {key} placeholders. Only a fixed set of keys is ever
// substituted; anything else in braces is left untouched so free-form
// messages can contain literal braces.
package message

import (
	"regexp"
	"strconv"

	"churchconnect/internal/calendar"
	"churchconnect/internal/model"
)

// Vars maps placeholder keys to values.
type Vars map[string]string

// Known placeholder keys.
const (
	KeyName          = "name"
	KeyEventName     = "eventName"
	KeyEventDate     = "eventDate"
	KeyEventLocation = "eventLocation"
	KeyEventFee      = "eventFee"
	KeyUpdateMessage = "updateMessage"
	KeyAmount        = "amount"
)

var known = map[string]bool{
	KeyName:          true,
	KeyEventName:     true,
	KeyEventDate:     true,
	KeyEventLocation: true,
	KeyEventFee:      true,
	KeyUpdateMessage: true,
	KeyAmount:        true,
}

var placeholderRE = regexp.MustCompile(`\{([A-Za-z]+)\}`)

// Render substitutes known placeholders present in vars. The text is
// scanned once, so values containing {key} are inserted literally.
func Render(text string, vars Vars) string {
	if len(vars) == 0 {
		return text
	}
	return placeholderRE.ReplaceAllStringFunc(text, func(m string) string {
		key := m[1 : len(m)-1]
		if !known[key] {
			return m
		}
		if v, ok := vars[key]; ok {
			return v
		}
		return m
	})
}

// Placeholders lists the known keys used in text, in first-use order.
func Placeholders(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range placeholderRE.FindAllStringSubmatch(text, -1) {
		key := m[1]
		if known[key] && !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

// EventVars returns the event-related placeholders for ev.
func EventVars(ev model.Event) Vars {
	loc := ev.Location
	if loc == "" {
		loc = "TBD"
	}
	return Vars{
		KeyEventName:     ev.Name,
		KeyEventDate:     calendar.FormatEventDates(ev),
		KeyEventLocation: loc,
		KeyEventFee:      FormatFee(ev.RegistrationFee),
	}
}

// FormatFee renders a registration fee, "Free" when zero.
func FormatFee(fee float64) string {
	if fee <= 0 {
		return "Free"
	}
	return FormatAmount(fee)
}

// FormatAmount renders a dollar amount without trailing zeros ($75,
// $12.5).
func FormatAmount(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', -1, 64)
}

// With returns a copy of v with the given pairs set.
func (v Vars) With(key, value string) Vars {
	out := make(Vars, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	out[key] = value
	return out
}
