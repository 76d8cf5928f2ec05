// Package query derives filtered and ordered views of an event collection.
// Functions take the collection as a parameter and never modify it.
package query

import (
	"sort"
	"strings"
	"time"

	"medula/internal/datemath"
	"medula/internal/model"
)

// Search returns the events whose title, location or notes contain q,
// ignoring case. An empty q returns every event in store order.
func Search(all []model.Event, q string) []model.Event {
	if q == "" {
		return append([]model.Event{}, all...)
	}
	needle := strings.ToLower(q)
	out := make([]model.Event, 0, len(all))
	for _, e := range all {
		if matches(e, needle) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e model.Event, needle string) bool {
	return strings.Contains(strings.ToLower(e.Title), needle) ||
		strings.Contains(strings.ToLower(e.Location), needle) ||
		strings.Contains(strings.ToLower(e.Notes), needle)
}

// ForDate narrows Search(all, q) to events on isoDate.
func ForDate(all []model.Event, q, isoDate string) []model.Event {
	found := Search(all, q)
	out := found[:0]
	for _, e := range found {
		if e.Date == isoDate {
			out = append(out, e)
		}
	}
	return out
}

// Upcoming returns the events starting at or after now, ascending by
// combined date-time. Ties keep their input order. typeFilter "all" or ""
// keeps every type. Events with an unparsable date are left out.
func Upcoming(all []model.Event, typeFilter string, now time.Time) []model.Event {
	type keyed struct {
		at time.Time
		ev model.Event
	}
	ks := make([]keyed, 0, len(all))
	for _, e := range all {
		if typeFilter != "" && typeFilter != model.TypeAll && e.Type != typeFilter {
			continue
		}
		at, err := datemath.ParseDateTime(e.Date, e.Time)
		if err != nil || at.Before(now) {
			continue
		}
		ks = append(ks, keyed{at: at, ev: e})
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].at.Before(ks[j].at) })

	out := make([]model.Event, len(ks))
	for i, k := range ks {
		out[i] = k.ev
	}
	return out
}

// SortByDateTime sorts events in place, ascending by combined date-time,
// keeping the relative order of equal keys. Unparsable dates sort last.
func SortByDateTime(events []model.Event) {
	keys := make(map[int]time.Time, len(events))
	idx := make([]int, len(events))
	for i, e := range events {
		idx[i] = i
		if at, err := datemath.ParseDateTime(e.Date, e.Time); err == nil {
			keys[i] = at
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, okA := keys[idx[a]]
		kb, okB := keys[idx[b]]
		switch {
		case okA && okB:
			return ka.Before(kb)
		case okA:
			return true
		default:
			return false
		}
	})
	sorted := make([]model.Event, len(events))
	for i, j := range idx {
		sorted[i] = events[j]
	}
	copy(events, sorted)
}

// InMonth keeps the events whose date falls in the given year and month.
func InMonth(all []model.Event, year int, month time.Month) []model.Event {
	out := make([]model.Event, 0)
	for _, e := range all {
		d, err := datemath.FromISODate(e.Date)
		if err != nil {
			continue
		}
		if d.Year() == year && d.Month() == month {
			out = append(out, e)
		}
	}
	return out
}
