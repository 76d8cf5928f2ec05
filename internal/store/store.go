// Package store owns the ordered event collection and writes it through to a
// blob store. The whole collection is serialized under a single key on every
// mutation.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"medula/internal/blob"
	appLog "medula/internal/log"
	"medula/internal/metrics"
	"medula/internal/model"
)

// Blob store keys.
const (
	KeyEvents  = "events"
	KeyView    = "view"
	KeyCurrent = "current"
)

const createdAtLayout = "2006-01-02T15:04:05.000Z"

// Store is the single logical writer for events. All access, including
// concurrent HTTP handlers, goes through its methods.
type Store struct {
	mu     sync.Mutex
	blob   blob.Store
	events []model.Event

	now         func() time.Time
	newID       func() string
	defaultView model.View
}

type Option func(*Store)

// WithClock replaces time.Now for CreatedAt stamps and seeding.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDefaultView sets the view reported before one has been saved.
func WithDefaultView(v model.View) Option {
	return func(s *Store) {
		if _, ok := model.ParseView(string(v)); ok {
			s.defaultView = v
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func New(b blob.Store, opts ...Option) *Store {
	s := &Store{
		blob:        b,
		events:      []model.Event{},
		now:         time.Now,
		newID:       uuid.NewString,
		defaultView: model.ViewMonth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize applies the defaults shared by every creation path: title is
// trimmed, type defaults to consulta. Time, location and notes stay empty
// when absent.
func Normalize(in model.EventInput) model.EventInput {
	in.Title = strings.TrimSpace(in.Title)
	if in.Type == "" {
		in.Type = model.TypeConsulta
	}
	return in
}

type addOptions struct {
	persist bool
}

type AddOption func(*addOptions)

// WithoutPersist appends the event in memory only.
func WithoutPersist() AddOption {
	return func(o *addOptions) { o.persist = false }
}

// Add creates an event from in and appends it. The date is not validated.
// When persisting fails the append is undone and the error returned.
func (s *Store) Add(ctx context.Context, in model.EventInput, opts ...AddOption) (model.Event, error) {
	o := addOptions{persist: true}
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev := s.build(in)
	s.events = append(s.events, ev)
	if o.persist {
		if err := s.persistLocked(ctx); err != nil {
			s.events = s.events[:len(s.events)-1]
			return model.Event{}, err
		}
	}

	metrics.EventMutations.WithLabelValues("add").Inc()
	metrics.StoredEvents.Set(float64(len(s.events)))
	appLog.Debug("event added", "id", ev.ID, "date", ev.Date, "time", ev.Time, "type", ev.Type, "persist", o.persist)
	return ev, nil
}

func (s *Store) build(in model.EventInput) model.Event {
	in = Normalize(in)
	return model.Event{
		ID:        s.newID(),
		Title:     in.Title,
		Type:      in.Type,
		Date:      in.Date,
		Time:      in.Time,
		Location:  in.Location,
		Notes:     in.Notes,
		CreatedAt: s.now().UTC().Format(createdAtLayout),
	}
}

// RemoveByID removes the first event with id. ok is false when no event
// matched; that is not an error.
func (s *Store) RemoveByID(ctx context.Context, id string) (model.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, e := range s.events {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Event{}, false, nil
	}

	prev := s.events
	removed := prev[idx]
	next := make([]model.Event, 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	s.events = next

	if err := s.persistLocked(ctx); err != nil {
		s.events = prev
		return model.Event{}, false, err
	}

	metrics.EventMutations.WithLabelValues("remove").Inc()
	metrics.StoredEvents.Set(float64(len(s.events)))
	appLog.Debug("event removed", "id", id)
	return removed, true, nil
}

// Clear drops every event.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.events
	s.events = []model.Event{}
	if err := s.persistLocked(ctx); err != nil {
		s.events = prev
		return err
	}

	metrics.EventMutations.WithLabelValues("clear").Inc()
	metrics.StoredEvents.Set(0)
	appLog.Debug("events cleared", "count", len(prev))
	return nil
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Seed adds the example events when the loaded collection is empty.
	Seed bool
	// Anchor picks the month the seed events land in; zero means now.
	Anchor time.Time
}

// Load replaces the in-memory collection with the persisted one. A missing
// key, read failure or corrupt payload yields an empty collection; Load never
// fails.
func (s *Store) Load(ctx context.Context, opts LoadOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = s.readLocked(ctx)

	if len(s.events) == 0 && opts.Seed {
		anchor := opts.Anchor
		if anchor.IsZero() {
			anchor = s.now()
		}
		for _, in := range SeedEvents(anchor) {
			s.events = append(s.events, s.build(in))
		}
		if err := s.persistLocked(ctx); err != nil {
			appLog.Error("persist seed events failed", err)
		}
		metrics.EventMutations.WithLabelValues("seed").Inc()
		appLog.Info("seeded example events", "count", len(s.events), "month", anchor.Format("2006-01"))
	}

	metrics.StoredEvents.Set(float64(len(s.events)))
}

func (s *Store) readLocked(ctx context.Context) []model.Event {
	data, ok, err := s.blob.Get(ctx, KeyEvents)
	if err != nil {
		appLog.Error("read events failed; starting empty", err)
		return []model.Event{}
	}
	if !ok || len(data) == 0 {
		return []model.Event{}
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		appLog.Error("stored events are corrupt; starting empty", err, "bytes", len(data))
		return []model.Event{}
	}
	if events == nil {
		events = []model.Event{}
	}
	return events
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	if err := s.blob.Put(ctx, KeyEvents, data); err != nil {
		metrics.PersistFailures.Inc()
		return fmt.Errorf("persist events: %w", err)
	}
	return nil
}

// Events returns a copy of the collection in store order.
func (s *Store) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Get returns the event with id.
func (s *Store) Get(id string) (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
