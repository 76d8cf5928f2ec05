package ics

import (
	"fmt"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medula/internal/model"
)

var stamp = time.Date(2024, 3, 1, 10, 11, 12, 0, time.Local)

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\,b\;c\nd\\e`, Escape("a,b;c\nd\\e"))
	assert.Equal(t, `\\n`, Escape(`\n`))
	assert.Equal(t, "plain", Escape("plain"))
	assert.Equal(t, `linea1\nlinea2\nlinea3`, Escape("linea1\r\nlinea2\rlinea3"))
}

func TestSerializeNotesWithCRLF(t *testing.T) {
	e := model.Event{ID: "n-1", Title: "Control", Date: "2024-03-05", Notes: "linea1\r\nlinea2"}
	got, err := SerializeOne(e, stamp)
	require.NoError(t, err)
	assert.Contains(t, got, "\r\nDESCRIPTION:")
	assert.Contains(t, got, `linea1\nlinea2`+"\r\n")
	for _, line := range strings.Split(got, "\r\n") {
		assert.NotContains(t, line, "\r", line)
		assert.NotContains(t, line, "\n", line)
	}
}

func TestSerializeOneExactLayout(t *testing.T) {
	e := model.Event{
		ID: "abc-123", Title: "Vacuna, dosis; 2", Type: model.TypeMedicamento,
		Date: "2024-03-05", Time: "09:00", Location: "CESFAM La Florida", Notes: "Dosis anual",
	}
	got, err := SerializeOne(e, stamp)
	require.NoError(t, err)

	want := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//MEDULA//Portal Paciente//ES",
		"CALSCALE:GREGORIAN",
		"BEGIN:VEVENT",
		"UID:abc-123",
		"DTSTAMP:20240301T101112",
		"DTSTART:20240305T090000",
		"DTEND:20240305T093000",
		`SUMMARY:Vacuna\, dosis\; 2`,
		"LOCATION:CESFAM La Florida",
		`DESCRIPTION:Lugar: CESFAM La Florida\nDosis anual`,
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n")
	assert.Equal(t, want, got)
}

func TestSerializeOneOmitsEmptyOptionalFields(t *testing.T) {
	got, err := SerializeOne(model.Event{ID: "x", Title: "Control", Date: "2024-03-13"}, stamp)
	require.NoError(t, err)
	assert.NotContains(t, got, "LOCATION:")
	assert.NotContains(t, got, "DESCRIPTION:")
	// No time means 09:00 for thirty minutes.
	assert.Contains(t, got, "\r\nDTSTART:20240313T090000\r\n")
	assert.Contains(t, got, "\r\nDTEND:20240313T093000\r\n")
	assert.False(t, strings.HasSuffix(got, "\r\n"))
}

func TestSerializeDescriptionVariants(t *testing.T) {
	got, err := SerializeOne(model.Event{ID: "x", Title: "t", Date: "2024-03-13", Notes: "solo notas"}, stamp)
	require.NoError(t, err)
	assert.Contains(t, got, "\r\nDESCRIPTION:solo notas\r\n")
	assert.NotContains(t, got, "LOCATION:")

	got, err = SerializeOne(model.Event{ID: "x", Title: "t", Date: "2024-03-13", Location: "Lab"}, stamp)
	require.NoError(t, err)
	assert.Contains(t, got, "\r\nLOCATION:Lab\r\nDESCRIPTION:Lugar: Lab\r\n")
}

func TestSerializeEndWrapsWithoutDateCarry(t *testing.T) {
	got, err := SerializeOne(model.Event{ID: "x", Title: "t", Date: "2024-03-13", Time: "23:50"}, stamp)
	require.NoError(t, err)
	assert.Contains(t, got, "DTSTART:20240313T235000")
	assert.Contains(t, got, "DTEND:20240313T002000")
}

func TestSerializeFallbackUID(t *testing.T) {
	got, err := SerializeOne(model.Event{Title: "t", Date: "2024-03-13"}, stamp)
	require.NoError(t, err)
	assert.Contains(t, got, fmt.Sprintf("\r\nUID:%d@medula\r\n", stamp.UnixMilli()))
}

func TestSerializeAllKeepsOrder(t *testing.T) {
	events := []model.Event{
		{ID: "b", Title: "Segundo", Date: "2024-04-01", Time: "10:00"},
		{ID: "a", Title: "Primero", Date: "2024-03-01", Time: "10:00"},
	}
	got, err := SerializeAll(events, stamp)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(got, "BEGIN:VEVENT"))
	assert.Equal(t, 2, strings.Count(got, "END:VEVENT"))
	assert.Equal(t, 1, strings.Count(got, "BEGIN:VCALENDAR"))
	assert.Less(t, strings.Index(got, "UID:b"), strings.Index(got, "UID:a"))
	assert.True(t, strings.HasPrefix(got, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n"))
	assert.True(t, strings.HasSuffix(got, "END:VEVENT\r\nEND:VCALENDAR"))

	cal, err := ical.ParseCalendar(strings.NewReader(got + "\r\n"))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 2)
	assert.Equal(t, "b", cal.Events()[0].GetProperty(ical.ComponentPropertyUniqueId).Value)
}

func TestSerializeRejectsMalformedDate(t *testing.T) {
	_, err := SerializeAll([]model.Event{{ID: "x", Title: "t", Date: "13/03/2024"}}, stamp)
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "medula_vacuna_influenza.ics", Filename("Vacuna Influenza"))
	assert.Equal(t, "medula_control_nutricin.ics", Filename("Control   nutrición"))
	assert.Equal(t, "medula_rx-torax.ics", Filename("RX-Torax!"))
	assert.Equal(t, "medula_evento.ics", Filename("¿¡!?"))
	assert.Equal(t, "medula_evento.ics", Filename(""))
}
