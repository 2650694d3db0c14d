package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/arthur-debert/accords/accords"
	"github.com/arthur-debert/accords/accords/filter"
	"github.com/arthur-debert/accords/accords/page"
	"github.com/arthur-debert/accords/accords/session"
	"github.com/arthur-debert/accords/accords/view"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves the {id} path variable to a live session.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		sess, ok := s.explorer.Session(id)
		if !ok {
			s.writeJSONError(w, http.StatusNotFound, "unknown session "+id)
			return
		}
		h(w, r, sess)
	}
}

type sessionResponse struct {
	ID      string       `json:"id"`
	Filters filter.State `json:"filters"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.explorer.NewSession()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, Filters: sess.Filters()})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.explorer.CloseSession(id) {
		s.writeJSONError(w, http.StatusNotFound, "unknown session "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getFilters(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Filters: sess.Filters()})
}

// putFilters replaces the filter state. Unless wait=false is given, the
// response is sent once the results for the new state are applied.
func (s *Server) putFilters(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var st filter.State
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid filter state: "+err.Error())
		return
	}
	for _, l := range st.Locations {
		if _, err := filter.ParseGranularity(string(l.Granularity)); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	sess.SetFilters(st)

	if r.URL.Query().Get("wait") != "false" {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.SettleTimeout)
		defer cancel()
		if err := sess.Settled(ctx); err != nil {
			s.writeJSONError(w, http.StatusGatewayTimeout, "results not ready: "+err.Error())
			return
		}
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Filters: sess.Filters()})
}

type resultsResponse struct {
	Rows      []accords.Agreement `json:"rows"`
	Page      page.Info           `json:"page"`
	Counter   string              `json:"counter"`
	Loading   bool                `json:"loading"`
	Predicate string              `json:"predicate"`
	Error     string              `json:"error,omitempty"`
}

func (s *Server) results(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "invalid page "+strconv.Quote(raw))
			return
		}
		if err := sess.SetPage(n); err != nil {
			s.writeError(w, err)
			return
		}
	}

	rows, info, err := sess.Page()
	if err != nil {
		s.writeError(w, err)
		return
	}
	rs := sess.Results()
	resp := resultsResponse{
		Rows:      rows,
		Page:      info,
		Counter:   info.String(),
		Loading:   sess.Loading(),
		Predicate: rs.Predicate,
	}
	if rs.Err != nil {
		resp.Error = rs.Err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.writeJSON(w, http.StatusOK, sess.Stats())
}

func (s *Server) mapLayer(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.writeJSON(w, http.StatusOK, sess.Map())
}

func (s *Server) record(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id := mux.Vars(r)["recordID"]
	d, ok := sess.Record(id)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no record "+id+" in current results")
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

// sectorSuggestions completes ?q= against the loaded sectors. With
// ?session=, that session's selections are left out.
func (s *Server) sectorSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess, ok := s.optionalSession(w, q.Get("session"))
	if !ok {
		return
	}
	if sess != nil {
		s.writeJSON(w, http.StatusOK, sess.SectorSuggestions(q.Get("q")))
		return
	}
	s.writeJSON(w, http.StatusOK, view.SectorSuggestions(s.explorer.Sectors(), q.Get("q"), nil))
}

func (s *Server) locationSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess, ok := s.optionalSession(w, q.Get("session"))
	if !ok {
		return
	}
	if sess != nil {
		s.writeJSON(w, http.StatusOK, sess.LocationSuggestions(q.Get("q")))
		return
	}
	s.writeJSON(w, http.StatusOK, view.LocationSuggestions(s.explorer.LocationOptions(), q.Get("q"), nil))
}

func (s *Server) optionalSession(w http.ResponseWriter, id string) (*session.Session, bool) {
	if id == "" {
		return nil, true
	}
	sess, ok := s.explorer.Session(id)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "unknown session "+id)
		return nil, false
	}
	return sess, true
}

// importLocal replaces the dataset with the request body, line-delimited
// JSON. Every session's filters are reset.
func (s *Server) importLocal(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSONError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "import.jsonl"
	}
	ds, err := s.explorer.LoadLocal(r.Context(), name, string(body))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ds)
}

func (s *Server) dataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.explorer.Dataset()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ds)
}

type reloadRequest struct {
	Source string `json:"source"`
}

// reload loads a parquet source; sessions keep their filters.
func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	var req reloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Source) == "" {
		s.writeJSONError(w, http.StatusBadRequest, "a source is required")
		return
	}
	ds, err := s.explorer.LoadRemote(r.Context(), req.Source)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ds)
}

type healthResponse struct {
	Status   string `json:"status"`
	Loaded   bool   `json:"loaded"`
	Sessions int    `json:"sessions"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	_, err := s.explorer.Dataset()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Loaded:   err == nil,
		Sessions: s.explorer.Sessions(),
	})
}
