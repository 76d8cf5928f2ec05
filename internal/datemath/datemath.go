// Package datemath holds the local wall-clock date helpers used by every
// other package. No time zone conversion happens here: all values live in
// time.Local and only their calendar fields matter.
package datemath

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DefaultTime is used wherever a missing or malformed HH:MM must be filled in.
const DefaultTime = "00:00"

var (
	isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	hhmmRe    = regexp.MustCompile(`^\d{2}:\d{2}$`)

	// referenceDay anchors AddMinutes so results never carry into a date.
	referenceDay = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.Local)
)

// ErrParse matches every *ParseError via errors.Is.
var ErrParse = errors.New("datemath: parse error")

// ParseError reports an input that is not a YYYY-MM-DD date or HH:MM time.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("datemath: cannot parse %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ToISODate formats d as YYYY-MM-DD using its own calendar fields.
func ToISODate(d time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), int(d.Month()), d.Day())
}

// FromISODate parses YYYY-MM-DD into local midnight.
//
// Policy: the string must match the pattern exactly, month must be 1..12 and
// day 1..31. A day past the end of its month (e.g. 2024-02-30) is normalized
// by time.Date into the following month.
func FromISODate(iso string) (time.Time, error) {
	m := isoDateRe.FindStringSubmatch(iso)
	if m == nil {
		return time.Time{}, &ParseError{Input: iso, Reason: "expected YYYY-MM-DD"}
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	if mo < 1 || mo > 12 {
		return time.Time{}, &ParseError{Input: iso, Reason: "month out of range"}
	}
	if d < 1 || d > 31 {
		return time.Time{}, &ParseError{Input: iso, Reason: "day out of range"}
	}
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.Local), nil
}

// ParseCanonicalDate is FromISODate without the overflow normalization: a
// day that does not exist in its month is an error.
func ParseCanonicalDate(iso string) (time.Time, error) {
	d, err := FromISODate(iso)
	if err != nil {
		return d, err
	}
	if ToISODate(d) != iso {
		return time.Time{}, &ParseError{Input: iso, Reason: "day does not exist in month"}
	}
	return d, nil
}

// ParseTime splits HH:MM into hour 00..23 and minute 00..59.
func ParseTime(hhmm string) (int, int, error) {
	if !hhmmRe.MatchString(hhmm) {
		return 0, 0, &ParseError{Input: hhmm, Reason: "expected HH:MM"}
	}
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	if h > 23 || m > 59 {
		return 0, 0, &ParseError{Input: hhmm, Reason: "time out of range"}
	}
	return h, m, nil
}

// ValidTime reports whether hhmm is a real HH:MM clock reading.
func ValidTime(hhmm string) bool {
	_, _, err := ParseTime(hhmm)
	return err == nil
}

// ParseDateTime combines an ISO date with an optional HH:MM time.
// An absent, malformed or out-of-range time means midnight; a malformed date
// is an error.
func ParseDateTime(isoDate, hhmm string) (time.Time, error) {
	d, err := FromISODate(isoDate)
	if err != nil {
		return time.Time{}, err
	}
	h, m := splitTime(hhmm)
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, time.Local), nil
}

// WeekdayIndex returns 0 for Monday through 6 for Sunday.
func WeekdayIndex(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// StartOfWeek returns the Monday at or before d, at midnight.
func StartOfWeek(d time.Time) time.Time {
	day := StartOfDay(d)
	return day.AddDate(0, 0, -WeekdayIndex(day))
}

// StartOfDay drops the clock part of d.
func StartOfDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// StartOfMonth returns the first day of d's month at midnight.
func StartOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
}

// AddMinutes shifts an HH:MM clock reading and wraps within the day:
// AddMinutes("23:50", 30) is "00:20". A malformed or out-of-range input is
// treated as 00:00.
func AddMinutes(hhmm string, minutes int) string {
	h, m := splitTime(hhmm)
	t := referenceDay.Add(time.Duration(h*60+m+minutes) * time.Minute)
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func splitTime(hhmm string) (int, int) {
	h, m, err := ParseTime(hhmm)
	if err != nil {
		return 0, 0
	}
	return h, m
}
