// Package calendar projects an event collection onto month, week and list
// views. Nothing is cached: every call recomputes from the events it is given.
package calendar

import (
	"fmt"
	"time"

	"medula/internal/datemath"
	"medula/internal/model"
	"medula/internal/query"
)

const (
	// MonthGridCells is six full weeks, so the grid height never changes.
	MonthGridCells = 42
	// MonthCellEventCap limits the events listed per month cell; the rest
	// are reported through Cell.Overflow. Week cells are not capped.
	MonthCellEventCap = 3
)

// now is swapped in tests.
var now = time.Now

// Cell is one day of a month or week grid.
type Cell struct {
	Date string `json:"date"`
	Day  int    `json:"day"`
	// Events holds the day's events in input order.
	Events []model.Event `json:"events"`
	// Overflow counts events left out of Events by the month cap.
	Overflow int `json:"overflow"`
	// OutsideMonth marks days that do not belong to the anchor's month.
	OutsideMonth bool `json:"outside_month"`
	Today        bool `json:"today"`
}

// DayGroup is one row of the month list.
type DayGroup struct {
	Date    string        `json:"date"`
	Heading string        `json:"heading"`
	Events  []model.Event `json:"events"`
}

// MonthGrid returns the 42 days starting at the Monday on or before the
// first of anchor's month. events should already be filtered by search.
func MonthGrid(anchor time.Time, events []model.Event) []Cell {
	first := datemath.StartOfMonth(anchor)
	start := first.AddDate(0, 0, -datemath.WeekdayIndex(first))
	byDate := groupByDate(events)
	today := datemath.ToISODate(now())

	cells := make([]Cell, MonthGridCells)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		iso := datemath.ToISODate(d)
		dayEvents := byDate[iso]

		c := Cell{
			Date:         iso,
			Day:          d.Day(),
			Events:       []model.Event{},
			OutsideMonth: d.Month() != first.Month() || d.Year() != first.Year(),
			Today:        iso == today,
		}
		if len(dayEvents) > MonthCellEventCap {
			c.Events = append(c.Events, dayEvents[:MonthCellEventCap]...)
			c.Overflow = len(dayEvents) - MonthCellEventCap
		} else {
			c.Events = append(c.Events, dayEvents...)
		}
		cells[i] = c
	}
	return cells
}

// WeekGrid returns the seven days of the Monday-based week containing anchor,
// each with all of its events.
func WeekGrid(anchor time.Time, events []model.Event) []Cell {
	start := datemath.StartOfWeek(anchor)
	byDate := groupByDate(events)
	today := datemath.ToISODate(now())

	cells := make([]Cell, 7)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		iso := datemath.ToISODate(d)
		cells[i] = Cell{
			Date:         iso,
			Day:          d.Day(),
			Events:       append([]model.Event{}, byDate[iso]...),
			OutsideMonth: d.Month() != anchor.Month() || d.Year() != anchor.Year(),
			Today:        iso == today,
		}
	}
	return cells
}

// MonthList groups the events of anchor's month by day. Days are ascending,
// each day's events are sorted by date-time, and empty days are omitted.
func MonthList(anchor time.Time, events []model.Event) []DayGroup {
	first := datemath.StartOfMonth(anchor)
	monthEvents := query.InMonth(events, first.Year(), first.Month())
	query.SortByDateTime(monthEvents)
	byDate := groupByDate(monthEvents)

	days := daysIn(first)
	out := make([]DayGroup, 0)
	for i := 0; i < days; i++ {
		d := first.AddDate(0, 0, i)
		iso := datemath.ToISODate(d)
		evs := byDate[iso]
		if len(evs) == 0 {
			continue
		}
		out = append(out, DayGroup{Date: iso, Heading: DayHeading(d), Events: evs})
	}
	return out
}

func groupByDate(events []model.Event) map[string][]model.Event {
	m := make(map[string][]model.Event)
	for _, e := range events {
		m[e.Date] = append(m[e.Date], e)
	}
	return m
}

func daysIn(first time.Time) int {
	return first.AddDate(0, 1, -1).Day()
}

// Projection is the render-ready output for one view.
type Projection struct {
	View   model.View `json:"view"`
	Anchor string     `json:"anchor"`
	Title  string     `json:"title"`
	Cells  []Cell     `json:"cells,omitempty"`
	Days   []DayGroup `json:"days,omitempty"`
}

// Project builds the projection for view around anchor.
func Project(view model.View, anchor time.Time, events []model.Event) Projection {
	p := Projection{
		View:   view,
		Anchor: datemath.ToISODate(anchor),
		Title:  fmt.Sprintf("%s %d", MonthName(anchor.Month()), anchor.Year()),
	}
	switch view {
	case model.ViewWeek:
		p.Cells = WeekGrid(anchor, events)
	case model.ViewList:
		p.Days = MonthList(anchor, events)
	default:
		p.View = model.ViewMonth
		p.Cells = MonthGrid(anchor, events)
	}
	return p
}
