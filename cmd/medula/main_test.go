package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medula/internal/blob"
	"medula/internal/calendar"
	appLog "medula/internal/log"
	"medula/internal/model"
	"medula/internal/store"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "medula.yaml")
	yaml := "log_level: error\nseed_on_empty: false\nstorage:\n  type: file\n  path: " + filepath.Join(dir, "data") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestAddListRemove(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, cfg, "add", "--title", "Control cardiología", "--date", "2024-03-05", "--time", "09:30", "--location", "Hospital")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	_, err = run(t, cfg, "add", "--title", "Hemograma", "--date", "2024-03-06", "--type", "examen")
	require.NoError(t, err)

	out, err = run(t, cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Control cardiología")
	assert.Contains(t, out, "Hemograma")
	assert.Contains(t, out, "Examen")

	out, err = run(t, cfg, "list", "--query", "HOSPITAL")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.NotContains(t, out, "Hemograma")

	out, err = run(t, cfg, "list", "--date", "2024-03-06")
	require.NoError(t, err)
	assert.Contains(t, out, "Hemograma")
	assert.NotContains(t, out, "Control")

	out, err = run(t, cfg, "remove", id)
	require.NoError(t, err)
	assert.Contains(t, out, "removed "+id)

	_, err = run(t, cfg, "remove", id)
	assert.Error(t, err)
}

func TestAddValidation(t *testing.T) {
	cfg := writeTestConfig(t)

	_, err := run(t, cfg, "add", "--date", "2024-03-05")
	assert.Error(t, err)
	_, err = run(t, cfg, "add", "--title", "x", "--date", "05-03-2024")
	assert.Error(t, err)
	_, err = run(t, cfg, "add", "--title", "x", "--date", "2024-03-05", "--time", "9h")
	assert.Error(t, err)

	out, err := run(t, cfg, "list")
	require.NoError(t, err)
	assert.Equal(t, "sin eventos\n", out)
}

func TestClearNeedsConfirmation(t *testing.T) {
	cfg := writeTestConfig(t)
	_, err := run(t, cfg, "add", "--title", "x", "--date", "2024-03-05")
	require.NoError(t, err)

	_, err = run(t, cfg, "clear")
	assert.Error(t, err)

	_, err = run(t, cfg, "clear", "--yes")
	require.NoError(t, err)
	out, err := run(t, cfg, "list")
	require.NoError(t, err)
	assert.Equal(t, "sin eventos\n", out)
}

func TestExport(t *testing.T) {
	cfg := writeTestConfig(t)

	_, err := run(t, cfg, "export", "--out=-")
	assert.ErrorIs(t, err, errNoEvents)

	out, err := run(t, cfg, "add", "--title", "Vacuna", "--date", "2024-03-05", "--time", "10:00")
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	out, err = run(t, cfg, "export", "--out=-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, out, "\r\nUID:"+id+"\r\n")
	assert.Contains(t, out, "\r\nDTEND:20240305T103000\r\n")

	target := filepath.Join(t.TempDir(), "one.ics")
	out, err = run(t, cfg, "export", "--id", id, "--out", target)
	require.NoError(t, err)
	assert.Equal(t, target+"\n", out)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SUMMARY:Vacuna")

	_, err = run(t, cfg, "export", "--id", "missing", "--out=-")
	assert.Error(t, err)
}

func TestExportAddSavesEvent(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, cfg, "export", "--add", "--title", "Control dental", "--date", "2024-06-10", "--out=-")
	require.NoError(t, err)
	assert.Contains(t, out, "\r\nSUMMARY:Control dental\r\n")
	assert.Contains(t, out, "\r\nDTSTART:20240610T090000\r\n")

	out, err = run(t, cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Control dental")

	_, err = run(t, cfg, "export", "--add", "--title", "", "--date", "2024-06-10", "--out=-")
	assert.Error(t, err)
	_, err = run(t, cfg, "export", "--add", "--id", "x", "--title", "t", "--date", "2024-06-10")
	assert.Error(t, err)
}

func TestImportFile(t *testing.T) {
	cfg := writeTestConfig(t)

	icsPath := filepath.Join(t.TempDir(), "in.ics")
	doc := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:a@x\r\nDTSTART:20240412T083000\r\nSUMMARY:Ecografía\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	require.NoError(t, os.WriteFile(icsPath, []byte(doc), 0o600))

	out, err := run(t, cfg, "import", "--file", icsPath)
	require.NoError(t, err)
	assert.Equal(t, "imported 1, skipped 0\n", out)

	out, err = run(t, cfg, "list", "--date", "2024-04-12")
	require.NoError(t, err)
	assert.Contains(t, out, "Ecografía")
	assert.Contains(t, out, "08:30")

	_, err = run(t, cfg, "import")
	assert.Error(t, err)
	_, err = run(t, cfg, "import", "--file", icsPath, "--url", "https://example.com/a.ics")
	assert.Error(t, err)
}

func TestCalendarCommand(t *testing.T) {
	cfg := writeTestConfig(t)
	_, err := run(t, cfg, "add", "--title", "Control", "--date", "2024-03-05", "--time", "09:00")
	require.NoError(t, err)

	out, err := run(t, cfg, "calendar", "--view", "month", "--date", "2024-03-15")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "Marzo 2024", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Lun"))
	assert.Contains(t, lines[3], " 5+1")

	out, err = run(t, cfg, "calendar", "--view", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "5 Marzo 2024\n  09:00 Control [Consulta]\n")

	// The last view and date are remembered; --step pages from them.
	out, err = run(t, cfg, "calendar", "--step", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Abril 2024\nsin eventos\n"))

	_, err = run(t, cfg, "calendar", "--view", "agenda")
	assert.Error(t, err)
}

func TestFollowAnchorLogsSaveFailure(t *testing.T) {
	var logs bytes.Buffer
	appLog.SetOutput(&logs)
	t.Cleanup(func() { appLog.SetOutput(os.Stderr) })

	b := blob.NewMemory()
	st := store.New(b)
	ev, err := st.Add(context.Background(), model.EventInput{Title: "Control", Date: "2024-03-05"})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	followAnchor(context.Background(), &app{store: st, blob: b}, ev)
	assert.Contains(t, logs.String(), "save calendar anchor failed")
	assert.Contains(t, logs.String(), ev.ID)
}

func TestMonthCell(t *testing.T) {
	assert.Equal(t, " .    ", monthCell(calendar.Cell{Day: 28, OutsideMonth: true}))
	assert.Equal(t, " 5    ", monthCell(calendar.Cell{Day: 5}))
	assert.Equal(t, "12+5  ", monthCell(calendar.Cell{Day: 12, Events: make([]model.Event, 3), Overflow: 2}))
}

func TestEventLine(t *testing.T) {
	assert.Equal(t, "--:-- Hemograma [Examen]", eventLine(model.Event{Title: "Hemograma", Type: model.TypeExamen}))
	assert.Equal(t, "09:00 Control [Consulta] @ CESFAM", eventLine(model.Event{Title: "Control", Type: model.TypeConsulta, Time: "09:00", Location: "CESFAM"}))
}
