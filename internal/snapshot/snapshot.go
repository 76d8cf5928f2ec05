// Package snapshot periodically writes the full ICS export to disk so an
// external calendar client can subscribe to a plain file.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"medula/internal/ics"
	appLog "medula/internal/log"
	"medula/internal/metrics"
	"medula/internal/model"
)

// Source is the part of the event store a snapshot reads.
type Source interface {
	Events() []model.Event
}

// Job exports every event of a Source to a file on a cron schedule.
type Job struct {
	src  Source
	path string
	spec string
	now  func() time.Time

	cron *cron.Cron
}

// New builds a job writing to path on the cron schedule spec. An empty spec
// yields a job that only runs when Run is called directly.
func New(src Source, path, spec string) *Job {
	return &Job{src: src, path: path, spec: spec, now: time.Now}
}

// Run writes one snapshot. An empty store is skipped; the previous file, if
// any, is left in place.
func (j *Job) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	events := j.src.Events()
	if len(events) == 0 {
		appLog.Info("snapshot skipped: no events", "path", j.path)
		return nil
	}

	doc, err := ics.SerializeAll(events, j.now())
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}
	if err := writeAtomic(j.path, []byte(doc)); err != nil {
		return fmt.Errorf("write snapshot %s: %w", j.path, err)
	}

	metrics.Exports.WithLabelValues("snapshot").Inc()
	appLog.Info("snapshot written", "path", j.path, "events", len(events), "bytes", len(doc))
	return nil
}

// Start schedules Run. It fails when the schedule does not parse.
func (j *Job) Start() error {
	if j.spec == "" {
		return errors.New("snapshot schedule is empty")
	}
	if j.cron != nil {
		return errors.New("snapshot job already started")
	}
	c := cron.New()
	if _, err := c.AddFunc(j.spec, func() {
		if err := j.Run(context.Background()); err != nil {
			appLog.Error("snapshot failed", err, "path", j.path)
		}
	}); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", j.spec, err)
	}
	c.Start()
	j.cron = c
	appLog.Info("snapshot scheduled", "cron", j.spec, "path", j.path)
	return nil
}

// Stop halts the schedule and waits for a running snapshot to finish.
func (j *Job) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.cron = nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".medula-snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
