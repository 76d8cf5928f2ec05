package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"medula/internal/calendar"
	"medula/internal/datemath"
	"medula/internal/ics"
	appLog "medula/internal/log"
	"medula/internal/metrics"
	"medula/internal/model"
	"medula/internal/query"
)

const (
	maxJSONBody   = 64 << 10
	maxImportBody = 10 << 20
)

// errNoEvents is returned to clients asking for an export of an empty store.
const errNoEvents = "no hay eventos para exportar"

func decodeInput(r *http.Request) (model.EventInput, error) {
	var in model.EventInput
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return in, errors.New("invalid JSON body")
	}
	return in, in.Validate()
}

// addAndFollow adds in and moves the persisted calendar anchor to the
// event's month.
func (s *Server) addAndFollow(r *http.Request, in model.EventInput) (model.Event, error) {
	ev, err := s.store.Add(r.Context(), in)
	if err != nil {
		return ev, err
	}
	if anchor, err := calendar.AnchorAfterAdd(ev); err == nil {
		if err := s.store.SaveCurrent(r.Context(), anchor); err != nil {
			appLog.Error("save calendar anchor failed", err, "id", ev.ID)
		}
	}
	return ev, nil
}

// GET /api/events?q=&date=
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	all := s.store.Events()

	if date := q.Get("date"); date != "" {
		if _, err := datemath.FromISODate(date); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, query.ForDate(all, q.Get("q"), date))
		return
	}
	writeJSON(w, http.StatusOK, query.Search(all, q.Get("q")))
}

// POST /api/events
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := s.addAndFollow(r, in)
	if err != nil {
		appLog.Error("add event failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save event")
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// DELETE /api/events
func (s *Server) handleClearEvents(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		appLog.Error("clear events failed", err)
		writeError(w, http.StatusInternalServerError, "failed to clear events")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/events/{id}
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ev, ok, err := s.store.RemoveByID(r.Context(), id)
	if err != nil {
		appLog.Error("remove event failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to remove event")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// GET /api/events/{id}/ics
func (s *Server) handleEventICS(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	doc, err := ics.SerializeOne(ev, s.now())
	if err != nil {
		appLog.Error("serialize event failed", err, "id", ev.ID)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	metrics.Exports.WithLabelValues("one").Inc()
	writeICS(w, ics.Filename(ev.Title), doc)
}

// GET /api/upcoming?type=
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	typeFilter := r.URL.Query().Get("type")
	writeJSON(w, http.StatusOK, query.Upcoming(s.store.Events(), typeFilter, s.now()))
}

// GET /api/calendar?view=&date=&q=
//
// view and date default to the persisted view state.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := s.store.LoadViewState(r.Context())

	view := state.View
	if raw := q.Get("view"); raw != "" {
		v, ok := model.ParseView(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown view "+strconv.Quote(raw))
			return
		}
		view = v
	}

	anchor := state.Current
	if raw := q.Get("date"); raw != "" {
		d, err := datemath.FromISODate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		anchor = d
	}

	events := query.Search(s.store.Events(), q.Get("q"))
	writeJSON(w, http.StatusOK, calendar.Project(view, anchor, events))
}

type viewResponse struct {
	View    model.View `json:"view"`
	Current string     `json:"current"`
}

// viewRequest updates the view state. Step pages the anchor after Date is
// applied; a zero step jumps to today.
type viewRequest struct {
	View string `json:"view"`
	Date string `json:"date"`
	Step *int   `json:"step"`
}

// GET /api/view
func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	st := s.store.LoadViewState(r.Context())
	writeJSON(w, http.StatusOK, viewResponse{View: st.View, Current: datemath.ToISODate(st.Current)})
}

// PUT /api/view
func (s *Server) handlePutView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	st := s.store.LoadViewState(ctx)

	if req.View != "" {
		v, ok := model.ParseView(req.View)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown view "+strconv.Quote(req.View))
			return
		}
		st.View = v
	}
	if req.Date != "" {
		d, err := datemath.FromISODate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		st.Current = d
	}
	if req.Step != nil {
		st.Current = calendar.Navigate(st.Current, st.View, *req.Step)
	}

	if err := s.store.SaveView(ctx, st.View); err != nil {
		appLog.Error("save view failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save view")
		return
	}
	if err := s.store.SaveCurrent(ctx, st.Current); err != nil {
		appLog.Error("save current date failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save view")
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{View: st.View, Current: datemath.ToISODate(st.Current)})
}

// GET /api/export.ics
func (s *Server) handleExportAll(w http.ResponseWriter, _ *http.Request) {
	events := s.store.Events()
	if len(events) == 0 {
		writeError(w, http.StatusConflict, errNoEvents)
		return
	}
	doc, err := ics.SerializeAll(events, s.now())
	if err != nil {
		appLog.Error("serialize export failed", err, "events", len(events))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	metrics.Exports.WithLabelValues("all").Inc()
	writeICS(w, ics.AllFilename, doc)
}

// POST /api/export saves the submitted event and returns it as ICS.
func (s *Server) handleExportNew(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := s.addAndFollow(r, in)
	if err != nil {
		appLog.Error("add event for export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save event")
		return
	}
	doc, err := ics.SerializeOne(ev, s.now())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	metrics.Exports.WithLabelValues("one").Inc()
	w.Header().Set("X-Event-Id", ev.ID)
	writeICS(w, ics.Filename(ev.Title), doc)
}

type importResponse struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Events   []model.Event `json:"events"`
}

// POST /api/import[?url=]
//
// The ICS document is the request body, or is downloaded from url when its
// host is listed in import_allowed_hosts.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body []byte
	if src := r.URL.Query().Get("url"); src != "" {
		if len(s.cfg.ImportAllowedHosts) == 0 {
			writeError(w, http.StatusForbidden, "URL import is disabled")
			return
		}
		b, err := s.fetcher.Fetch(ctx, src)
		if errors.Is(err, ics.ErrHostNotAllowed) {
			writeError(w, http.StatusForbidden, "import host not allowed")
			return
		}
		if err != nil {
			writeError(w, http.StatusBadGateway, "failed to fetch calendar")
			return
		}
		body = b
	} else {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}
		body = b
	}

	inputs, err := ics.ParseICS(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ICS: "+err.Error())
		return
	}

	resp := importResponse{Events: []model.Event{}}
	for _, in := range inputs {
		if err := in.Validate(); err != nil {
			appLog.Info("import: skipping event", "title", in.Title, "date", in.Date, "reason", err.Error())
			resp.Skipped++
			continue
		}
		ev, err := s.store.Add(ctx, in)
		if err != nil {
			appLog.Error("import: add failed", err, "imported", resp.Imported)
			writeError(w, http.StatusInternalServerError, "failed to save imported events")
			return
		}
		resp.Imported++
		resp.Events = append(resp.Events, ev)
	}
	metrics.ImportedEvents.Add(float64(resp.Imported))
	appLog.Info("import finished", "imported", resp.Imported, "skipped", resp.Skipped)
	writeJSON(w, http.StatusOK, resp)
}
