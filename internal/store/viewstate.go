package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appLog "medula/internal/log"
	"medula/internal/model"
)

// ViewState is the persisted presentation state: view mode and anchor date.
type ViewState struct {
	View    model.View `json:"view"`
	Current time.Time  `json:"current"`
}

// currentDate is the stored shape of the anchor date. Month is 0-based.
type currentDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// LoadViewState reads the view mode and anchor date. Missing or unreadable
// values fall back to the default view and today.
func (s *Store) LoadViewState(ctx context.Context) ViewState {
	now := s.now()
	st := ViewState{
		View:    s.defaultView,
		Current: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local),
	}

	if raw, ok, err := s.blob.Get(ctx, KeyView); err != nil {
		appLog.Error("read view failed", err)
	} else if ok {
		if v, known := model.ParseView(string(raw)); known {
			st.View = v
		}
	}

	raw, ok, err := s.blob.Get(ctx, KeyCurrent)
	if err != nil {
		appLog.Error("read current date failed", err)
		return st
	}
	if !ok {
		return st
	}
	var c currentDate
	if err := json.Unmarshal(raw, &c); err != nil || c.Year == 0 || c.Month < 0 || c.Month > 11 || c.Day < 1 || c.Day > 31 {
		appLog.Error("stored current date is invalid; using today", err, "raw", string(raw))
		return st
	}
	st.Current = time.Date(c.Year, time.Month(c.Month+1), c.Day, 0, 0, 0, 0, time.Local)
	return st
}

// SaveView persists the view mode.
func (s *Store) SaveView(ctx context.Context, v model.View) error {
	if _, ok := model.ParseView(string(v)); !ok {
		return fmt.Errorf("unknown view %q", v)
	}
	return s.blob.Put(ctx, KeyView, []byte(v))
}

// SaveCurrent persists the anchor date.
func (s *Store) SaveCurrent(ctx context.Context, d time.Time) error {
	data, err := json.Marshal(currentDate{Year: d.Year(), Month: int(d.Month()) - 1, Day: d.Day()})
	if err != nil {
		return err
	}
	return s.blob.Put(ctx, KeyCurrent, data)
}
