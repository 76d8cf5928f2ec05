package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "medula/internal/log"
	"medula/internal/model"
)

// ParseICS turns every VEVENT of an ICS payload into an event input.
//
//   - SUMMARY, LOCATION and DESCRIPTION are unescaped.
//   - DTSTART gives the date, and the HH:MM time unless it is a DATE value.
//     Values are read as wall-clock: a trailing Z or a TZID does not shift them.
//   - CATEGORIES naming a known type sets the type.
//   - A leading "Lugar: <location>" line in DESCRIPTION, as written by our
//     own export, is dropped from the notes.
//
// VEVENTs without a usable DTSTART are logged and skipped.
func ParseICS(body []byte) ([]model.EventInput, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if !bytes.HasSuffix(body, []byte("\n")) {
		body = append(append([]byte{}, body...), crlf...)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "bytes", len(body))
		return nil, err
	}

	out := make([]model.EventInput, 0)
	for _, ve := range cal.Events() {
		in, perr := parseVEvent(ve)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent skipped", perr, "uid", propValue(ve, ical.ComponentPropertyUniqueId))
			continue
		}
		out = append(out, in)
	}

	appLog.Info("ics parse completed", "event_count", len(out))
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (model.EventInput, error) {
	var in model.EventInput

	in.Title = unescape(propValue(ve, ical.ComponentPropertySummary))
	in.Location = unescape(propValue(ve, ical.ComponentPropertyLocation))
	in.Notes = notesFromDescription(unescape(propValue(ve, ical.ComponentPropertyDescription)), in.Location)

	for _, cat := range strings.Split(propValue(ve, ical.ComponentPropertyCategories), ",") {
		if t := strings.ToLower(strings.TrimSpace(cat)); model.IsKnownType(t) {
			in.Type = t
			break
		}
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || strings.TrimSpace(dtStart.Value) == "" {
		return in, errors.New("missing DTSTART")
	}
	start, allDay, err := parseICSTime(dtStart.Value)
	if err != nil {
		return in, err
	}
	if params := dtStart.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			allDay = true
		}
	}

	in.Date = start.Format("2006-01-02")
	if !allDay {
		in.Time = start.Format("15:04")
	}
	return in, nil
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}

// parseICSTime parses a DATE or DATE-TIME value as local wall-clock time.
func parseICSTime(v string) (time.Time, bool, error) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "Z")
	if strings.Contains(v, "T") {
		t, err := time.ParseInLocation(dateTimeLayout, v, time.Local)
		return t, false, err
	}
	t, err := time.ParseInLocation("20060102", v, time.Local)
	return t, true, err
}

// unescape reverses Escape. An unknown escape keeps the escaped character.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func notesFromDescription(desc, location string) string {
	if location == "" {
		return desc
	}
	first, rest, _ := strings.Cut(desc, "\n")
	if first == locationPrefix+location {
		return rest
	}
	return desc
}
