// Package timeapitest provides an in-process fake of the time service for tests.
package timeapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/tzclock/pkg/timeapi"
)

// Call records one request received by the fake.
type Call struct {
	Path    string
	Query   string
	Local   *timeapi.LocalTimeRequest
	Convert *timeapi.ConvertTimeRequest
}

// Service is a fake time service. It resolves zones with the Go tz database
// against a fixed Now.
type Service struct {
	*httptest.Server

	// Now is the instant every request is answered for.
	Now time.Time

	mu        sync.Mutex
	zones     []string
	calls     []Call
	failPaths map[string]int
	block     map[string]chan struct{}
}

// New starts a fake serving zones.
func New(zones ...string) *Service {
	s := &Service{
		Now:       time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		zones:     zones,
		failPaths: make(map[string]int),
		block:     make(map[string]chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+timeapi.PathTimezones, s.handleTimezones)
	mux.HandleFunc("POST "+timeapi.PathLocal, s.handleLocal)
	mux.HandleFunc("POST "+timeapi.PathConvert, s.handleConvert)
	mux.HandleFunc("GET "+timeapi.PathHealth, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	s.Server = httptest.NewServer(mux)
	return s
}

// FailWith makes every request to path answer with code.
func (s *Service) FailWith(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPaths[path] = code
}

// Block holds the next request to path until the returned function is
// called. Later requests are answered normally.
func (s *Service) Block(path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.block[path] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

// Calls returns the requests received so far.
func (s *Service) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the requests received for path.
func (s *Service) CallsTo(path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (s *Service) record(c Call) (failCode int, wait chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	wait = s.block[c.Path]
	delete(s.block, c.Path)
	return s.failPaths[c.Path], wait
}

func (s *Service) handleTimezones(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	code, wait := s.record(Call{Path: timeapi.PathTimezones, Query: query})
	if wait != nil {
		<-wait
	}
	if code != 0 {
		http.Error(w, "unavailable", code)
		return
	}

	out := make([]string, 0, len(s.zones))
	for _, z := range s.zones {
		if query == "" || strings.Contains(strings.ToLower(z), strings.ToLower(query)) {
			out = append(out, z)
		}
	}
	writeJSON(w, out)
}

func (s *Service) handleLocal(w http.ResponseWriter, r *http.Request) {
	var req timeapi.LocalTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	code, wait := s.record(Call{Path: timeapi.PathLocal, Local: &req})
	if wait != nil {
		<-wait
	}
	if code != 0 {
		http.Error(w, "unavailable", code)
		return
	}

	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		http.Error(w, `{"detail":"Invalid timezone: `+req.Timezone+`"}`, http.StatusBadRequest)
		return
	}
	shifted := s.Now.Add(time.Duration(req.OffsetHours * float64(time.Hour))).In(loc)
	writeJSON(w, response(req.Timezone, shifted, req.OffsetHours))
}

func (s *Service) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req timeapi.ConvertTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	code, wait := s.record(Call{Path: timeapi.PathConvert, Convert: &req})
	if wait != nil {
		<-wait
	}
	if code != 0 {
		http.Error(w, "unavailable", code)
		return
	}

	if _, err := time.LoadLocation(req.FromTimezone); err != nil {
		http.Error(w, `{"detail":"Invalid timezone: `+req.FromTimezone+`"}`, http.StatusBadRequest)
		return
	}
	to, err := time.LoadLocation(req.ToTimezone)
	if err != nil {
		http.Error(w, `{"detail":"Invalid timezone: `+req.ToTimezone+`"}`, http.StatusBadRequest)
		return
	}
	shifted := s.Now.Add(time.Duration(req.OffsetHours * float64(time.Hour))).In(to)
	writeJSON(w, response(req.ToTimezone, shifted, req.OffsetHours))
}

func response(zone string, t time.Time, offset float64) timeapi.TimeResponse {
	return timeapi.TimeResponse{
		Timezone:           zone,
		DatetimeISO:        t.Format("2006-01-02T15:04:05.000000-07:00"),
		Formatted:          t.Format("2006-01-02 15:04:05 MST"),
		OffsetHoursApplied: offset,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
