package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"medula/internal/calendar"
	"medula/internal/model"
)

func writeEventTable(w io.Writer, events []model.Event) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "sin eventos")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFECHA\tHORA\tTIPO\tTÍTULO\tLUGAR")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Time, model.TypeLabel(e.Type), e.Title, e.Location)
	}
	return tw.Flush()
}

func renderProjection(w io.Writer, p calendar.Projection) error {
	var b strings.Builder
	b.WriteString(p.Title)
	b.WriteByte('\n')

	switch p.View {
	case model.ViewWeek:
		for i, c := range p.Cells {
			fmt.Fprintf(&b, "%s %02d%s\n", calendar.WeekdayShort[i], c.Day, todayMark(c))
			for _, e := range c.Events {
				fmt.Fprintf(&b, "  %s\n", eventLine(e))
			}
		}
	case model.ViewList:
		if len(p.Days) == 0 {
			b.WriteString("sin eventos\n")
		}
		for _, d := range p.Days {
			b.WriteString(d.Heading)
			b.WriteByte('\n')
			for _, e := range d.Events {
				fmt.Fprintf(&b, "  %s\n", eventLine(e))
			}
		}
	default:
		for _, name := range calendar.WeekdayShort {
			fmt.Fprintf(&b, "%-6s", name)
		}
		b.WriteByte('\n')
		for i, c := range p.Cells {
			b.WriteString(monthCell(c))
			if i%7 == 6 {
				b.WriteByte('\n')
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// monthCell is six columns wide: the day number and the event count.
// Days of the neighbouring months are dimmed to a dot.
func monthCell(c calendar.Cell) string {
	if c.OutsideMonth {
		return fmt.Sprintf("%-6s", " .")
	}
	n := len(c.Events) + c.Overflow
	mark := ""
	if n > 0 {
		mark = fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%2d%-4s", c.Day, mark)
}

func todayMark(c calendar.Cell) string {
	if c.Today {
		return " (hoy)"
	}
	return ""
}

func eventLine(e model.Event) string {
	t := e.Time
	if t == "" {
		t = "--:--"
	}
	line := fmt.Sprintf("%s %s [%s]", t, e.Title, model.TypeLabel(e.Type))
	if e.Location != "" {
		line += " @ " + e.Location
	}
	return line
}
