package model

import (
	"errors"
	"fmt"
	"strings"

	"medula/internal/datemath"
)

// Known appointment types. Other values are kept verbatim.
const (
	TypeConsulta    = "consulta"
	TypeExamen      = "examen"
	TypeMedicamento = "medicamento"

	// TypeAll disables the type restriction in upcoming queries.
	TypeAll = "all"
)

// Event is a single reminder/appointment record. Records are never edited
// after creation; they are only added and removed.
type Event struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`

	// Date is YYYY-MM-DD without offset.
	Date string `json:"date"`
	// Time is HH:MM or empty for an all-day / unspecified time.
	Time string `json:"time"`

	Location string `json:"location"`
	Notes    string `json:"notes"`

	// CreatedAt is informational only (RFC3339 with milliseconds).
	CreatedAt string `json:"createdAt"`
}

// EventInput carries the raw fields submitted for a new event. Zero values
// mean "absent" and are defaulted by the store.
type EventInput struct {
	Title    string `json:"title" yaml:"title"`
	Type     string `json:"type" yaml:"type"`
	Date     string `json:"date" yaml:"date"`
	Time     string `json:"time" yaml:"time"`
	Location string `json:"location" yaml:"location"`
	Notes    string `json:"notes" yaml:"notes"`
}

// Validate checks a submitted event: title is required, the date must be a
// real calendar day and the time, when present, a real HH:MM clock reading.
// Any type is accepted; unknown ones are displayed verbatim.
func (in EventInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("title is required")
	}
	if _, err := datemath.ParseCanonicalDate(in.Date); err != nil {
		return err
	}
	if in.Time != "" {
		if _, _, err := datemath.ParseTime(in.Time); err != nil {
			return err
		}
	}
	return nil
}

// IsKnownType reports whether t is one of the styled appointment types.
func IsKnownType(t string) bool {
	switch t {
	case TypeConsulta, TypeExamen, TypeMedicamento:
		return true
	}
	return false
}

// TypeLabel is the display label for t; unknown types are returned as-is.
func TypeLabel(t string) string {
	switch t {
	case TypeConsulta:
		return "Consulta"
	case TypeExamen:
		return "Examen"
	case TypeMedicamento:
		return "Medicamento"
	}
	return t
}

// Detail renders the multi-line description shown when an event is opened.
// Empty location or notes lines are left out.
func (e Event) Detail() string {
	lines := []string{e.Title}

	when := e.Date
	if dt, err := datemath.ParseDateTime(e.Date, e.Time); err == nil {
		when = fmt.Sprintf("%02d/%02d/%d", dt.Day(), int(dt.Month()), dt.Year())
		if e.Time != "" {
			when += fmt.Sprintf(" %02d:%02d", dt.Hour(), dt.Minute())
		}
	}
	lines = append(lines, when, TypeLabel(e.Type))

	if e.Location != "" {
		lines = append(lines, e.Location)
	}
	if e.Notes != "" {
		lines = append(lines, e.Notes)
	}
	return strings.Join(lines, "\n")
}

// View is a calendar presentation mode.
type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewList  View = "list"
)

// ParseView reports whether s names a known view.
func ParseView(s string) (View, bool) {
	switch v := View(s); v {
	case ViewMonth, ViewWeek, ViewList:
		return v, true
	}
	return ViewMonth, false
}
