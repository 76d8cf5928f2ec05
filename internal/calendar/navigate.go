package calendar

import (
	"fmt"
	"time"

	"medula/internal/datemath"
	"medula/internal/model"
)

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// WeekdayShort are the column headers, Monday first.
var WeekdayShort = [7]string{"Lun", "Mar", "Mié", "Jue", "Vie", "Sáb", "Dom"}

func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// DayHeading renders d as "5 Marzo 2024".
func DayHeading(d time.Time) string {
	return fmt.Sprintf("%d %s %d", d.Day(), MonthName(d.Month()), d.Year())
}

// Navigate moves the anchor by step pages of view. The week view pages by
// seven days; month and list page by one month and land on its first day.
// step 0 means today.
func Navigate(anchor time.Time, view model.View, step int) time.Time {
	if step == 0 {
		return datemath.StartOfDay(now())
	}
	if view == model.ViewWeek {
		return datemath.StartOfDay(anchor).AddDate(0, 0, 7*step)
	}
	return datemath.StartOfMonth(anchor).AddDate(0, step, 0)
}

// AnchorAfterAdd is the anchor shown after e is created: the first day of
// its month.
func AnchorAfterAdd(e model.Event) (time.Time, error) {
	d, err := datemath.FromISODate(e.Date)
	if err != nil {
		return time.Time{}, err
	}
	return datemath.StartOfMonth(d), nil
}
