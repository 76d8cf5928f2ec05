package ics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"medula/internal/datemath"
	"medula/internal/model"
)

const (
	ProductID = "-//MEDULA//Portal Paciente//ES"

	// DefaultStart is used for events without a time.
	DefaultStart = "09:00"
	// DurationMinutes is the fixed length of every exported event.
	DurationMinutes = 30

	// AllFilename is the download name of a full export.
	AllFilename = "medula_todos.ics"

	dateTimeLayout = "20060102T150405"
	crlf           = "\r\n"
)

var (
	spaceRe   = regexp.MustCompile(`\s+`)
	nonWordRe = regexp.MustCompile(`[^\w\-]+`)
)

// Escape applies the TEXT escaping rules in order: backslash, newline,
// comma, semicolon. CRLF and lone CR count as a newline.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, ";", `\;`)
	return s
}

// Filename is the download name for a single-event export.
func Filename(title string) string {
	safe := strings.ToLower(title)
	safe = spaceRe.ReplaceAllString(safe, "_")
	safe = nonWordRe.ReplaceAllString(safe, "")
	if safe == "" {
		safe = "evento"
	}
	return "medula_" + safe + ".ics"
}

// SerializeOne renders a complete calendar document holding e.
// stamp is the export instant written to DTSTAMP.
func SerializeOne(e model.Event, stamp time.Time) (string, error) {
	return SerializeAll([]model.Event{e}, stamp)
}

// SerializeAll renders one calendar document with a VEVENT per event, in the
// order given. Lines are CRLF-joined without a trailing CRLF.
func SerializeAll(events []model.Event, stamp time.Time) (string, error) {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProductID,
		"CALSCALE:GREGORIAN",
	}
	for _, e := range events {
		body, err := eventLines(e, stamp)
		if err != nil {
			return "", err
		}
		lines = append(lines, body...)
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, crlf), nil
}

func eventLines(e model.Event, stamp time.Time) ([]string, error) {
	start := e.Time
	if start == "" {
		start = DefaultStart
	}
	end := datemath.AddMinutes(start, DurationMinutes)

	dtStart, err := datemath.ParseDateTime(e.Date, start)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}
	dtEnd, err := datemath.ParseDateTime(e.Date, end)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}

	uid := e.ID
	if uid == "" {
		uid = fmt.Sprintf("%d@medula", stamp.UnixMilli())
	}

	lines := []string{
		"BEGIN:VEVENT",
		"UID:" + uid,
		"DTSTAMP:" + stamp.Format(dateTimeLayout),
		"DTSTART:" + dtStart.Format(dateTimeLayout),
		"DTEND:" + dtEnd.Format(dateTimeLayout),
		"SUMMARY:" + Escape(e.Title),
	}
	if e.Location != "" {
		lines = append(lines, "LOCATION:"+Escape(e.Location))
	}
	if desc := description(e); desc != "" {
		lines = append(lines, "DESCRIPTION:"+Escape(desc))
	}
	return append(lines, "END:VEVENT"), nil
}

// description is "Lugar: <location>" and the notes, one per line, skipping
// whichever is empty.
func description(e model.Event) string {
	var parts []string
	if e.Location != "" {
		parts = append(parts, locationPrefix+e.Location)
	}
	if e.Notes != "" {
		parts = append(parts, e.Notes)
	}
	return strings.Join(parts, "\n")
}

const locationPrefix = "Lugar: "
