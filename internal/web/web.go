// Package web serves tracker views, rendered heatmaps and the entry API.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/config"
	appLog "heatmaptracker/internal/log"
	"heatmaptracker/internal/model"
	"heatmaptracker/internal/render"
	"heatmaptracker/internal/stats"
	"heatmaptracker/internal/store"
	"heatmaptracker/internal/tracker"
)

// ViewCacheTTL bounds how long a computed view is reused.
const ViewCacheTTL = 30 * time.Second

const maxEntryBody = 1 << 20

var (
	ErrTrackerNotFound = errors.New("tracker not found")
	ErrStoreDisabled   = errors.New("entry store is not configured")
	errBadRequest      = errors.New("bad request")
)

// Server provides the HTTP API and the tracker pages.
type Server struct {
	cfg       *config.Config
	store     store.EntryStore
	clock     calendar.Clock
	exportDir string
	mux       *http.ServeMux

	viewMu sync.RWMutex
	views  map[viewKey]*viewCache
}

type viewKey struct {
	id   string
	year int
}

// viewCache holds a computed view and when it was computed.
type viewCache struct {
	view      *tracker.View
	updatedAt time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used to mark today and run streaks.
func WithClock(c calendar.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithExportDir sets where exported PNGs are read from.
func WithExportDir(dir string) Option {
	return func(s *Server) { s.exportDir = dir }
}

// NewServer constructs a new Server. st may be nil, in which case only the
// entries from the config file are shown and the entry API is disabled.
func NewServer(cfg *config.Config, st store.EntryStore, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		store:     st,
		clock:     calendar.SystemClock,
		exportDir: ExportDir(cfg.DataDir),
		mux:       http.NewServeMux(),
		views:     make(map[viewKey]*viewCache),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// ExportDir is where PNG exports live under dataDir.
func ExportDir(dataDir string) string {
	return filepath.Join(dataDir, "exports")
}

// PNGPath is the export file of one tracker.
func PNGPath(exportDir, id string) string {
	return filepath.Join(exportDir, id+".png")
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials mean auth is off.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="heatmaptracker", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	s.mux.HandleFunc("GET /api/trackers", s.handleTrackers)
	s.mux.HandleFunc("GET /api/trackers/{id}", s.handleView)
	s.mux.HandleFunc("GET /api/trackers/{id}/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/trackers/{id}/entries", s.handleListEntries)
	s.mux.HandleFunc("POST /api/trackers/{id}/entries", s.handleCreateEntry)
	s.mux.HandleFunc("DELETE /api/trackers/{id}/entries/{entryID}", s.handleDeleteEntry)

	s.mux.HandleFunc("GET /trackers/{id}", s.handlePage)
	s.mux.HandleFunc("GET /trackers/{id}/heatmap.svg", s.handleSVG)
	s.mux.HandleFunc("GET /trackers/{id}/heatmap.png", s.handlePNG)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleIndex sends the browser to the first configured tracker.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if len(s.cfg.Trackers) == 0 {
		writeError(w, http.StatusNotFound, "no trackers configured")
		return
	}
	http.Redirect(w, r, "/trackers/"+s.cfg.Trackers[0].ID, http.StatusFound)
}

type trackerSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Year     int    `json:"year,omitempty"`
	Sources  int    `json:"ics_sources"`
}

func (s *Server) handleTrackers(w http.ResponseWriter, _ *http.Request) {
	out := make([]trackerSummary, 0, len(s.cfg.Trackers))
	for _, t := range s.cfg.Trackers {
		out = append(out, trackerSummary{
			ID:       t.ID,
			Title:    t.HeatmapTitle,
			Subtitle: t.HeatmapSubtitle,
			Year:     t.Year,
			Sources:  len(t.ICS),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewFromRequest(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// statsResponse is the JSON response shape for /api/trackers/{id}/stats.
type statsResponse struct {
	ID                        string             `json:"id"`
	Year                      int                `json:"year"`
	Streaks                   model.StreakResult `json:"streaks"`
	CurrentStreakText         string             `json:"current_streak_text"`
	LongestStreakText         string             `json:"longest_streak_text"`
	Insights                  []stats.Result     `json:"insights"`
	TotalTrackingDaysThisYear int                `json:"total_tracking_days_this_year"`
	TotalTrackingDays         int                `json:"total_tracking_days"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewFromRequest(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		ID:                        v.ID,
		Year:                      v.Year,
		Streaks:                   v.Streaks,
		CurrentStreakText:         v.CurrentStreakText,
		LongestStreakText:         v.LongestStreakText,
		Insights:                  v.Insights,
		TotalTrackingDaysThisYear: v.TotalTrackingDaysThisYear,
		TotalTrackingDays:         v.TotalTrackingDays,
	})
}

// entriesResponse is the JSON response shape for GET .../entries.
type entriesResponse struct {
	Tracker string `json:"tracker"`
	// Static are the entries written in the config file.
	Static []model.Entry `json:"static"`
	// Stored are the entries in the store, manual and ingested.
	Stored []store.StoredEntry `json:"stored"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tc, ok := s.cfg.Tracker(id)
	if !ok {
		writeFailure(w, fmt.Errorf("%w: %q", ErrTrackerNotFound, id))
		return
	}
	year, err := parseYear(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	resp := entriesResponse{Tracker: id, Static: []model.Entry{}, Stored: []store.StoredEntry{}}
	if year == 0 {
		resp.Static = append(resp.Static, tc.Entries...)
	} else {
		resp.Static = append(resp.Static, entriesInYear(tc.Entries, year)...)
	}

	if s.store != nil {
		var stored []store.StoredEntry
		if year == 0 {
			stored, err = s.store.ListEntries(r.Context(), id)
		} else {
			stored, err = s.store.ListEntriesForYear(r.Context(), id, year)
		}
		if err != nil {
			writeFailure(w, err)
			return
		}
		resp.Stored = append(resp.Stored, stored...)
	}
	writeJSON(w, http.StatusOK, resp)
}

func entriesInYear(entries []model.Entry, year int) []model.Entry {
	var out []model.Entry
	for _, e := range entries {
		if d, err := calendar.ParseDate(e.Date); err == nil && d.Year() == year {
			out = append(out, e)
		}
	}
	return out
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.cfg.Tracker(id); !ok {
		writeFailure(w, fmt.Errorf("%w: %q", ErrTrackerNotFound, id))
		return
	}
	if s.store == nil {
		writeFailure(w, ErrStoreDisabled)
		return
	}

	var e model.Entry
	dec := json.NewDecoder(io.LimitReader(r.Body, maxEntryBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		writeFailure(w, fmt.Errorf("%w: invalid entry body: %v", errBadRequest, err))
		return
	}

	created, err := s.store.CreateEntry(r.Context(), id, e)
	if err != nil {
		writeFailure(w, err)
		return
	}
	s.Invalidate(id)

	appLog.Info("entry created", "tracker", id, "entry", created.ID.String(), "date", created.Date)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.cfg.Tracker(id); !ok {
		writeFailure(w, fmt.Errorf("%w: %q", ErrTrackerNotFound, id))
		return
	}
	if s.store == nil {
		writeFailure(w, ErrStoreDisabled)
		return
	}
	entryID, err := uuid.Parse(r.PathValue("entryID"))
	if err != nil {
		writeFailure(w, fmt.Errorf("%w: invalid entry id", errBadRequest))
		return
	}

	if err := s.store.DeleteEntry(r.Context(), id, entryID); err != nil {
		writeFailure(w, err)
		return
	}
	s.Invalidate(id)

	appLog.Info("entry deleted", "tracker", id, "entry", entryID.String())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewFromRequest(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	page, err := render.HTMLPage(v, render.SVG(v, render.DefaultSVGOptions()))
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, page)
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewFromRequest(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, render.SVG(v, render.DefaultSVGOptions()))
}

// handlePNG serves the last PNG export of a tracker from disk.
func (s *Server) handlePNG(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.cfg.Tracker(id); !ok {
		writeFailure(w, fmt.Errorf("%w: %q", ErrTrackerNotFound, id))
		return
	}
	path := PNGPath(s.exportDir, id)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "no export yet")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) viewFromRequest(r *http.Request) (*tracker.View, error) {
	year, err := parseYear(r)
	if err != nil {
		return nil, err
	}
	return s.View(r.Context(), r.PathValue("id"), year)
}

func parseYear(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", calendar.ErrInvalidYear, raw)
	}
	if err := calendar.ValidateYear(year); err != nil {
		return 0, err
	}
	return year, nil
}

// View computes (or returns the cached) view of tracker id for year. A
// zero year means the tracker's own year or the current one. Config entries
// and stored entries are merged before the pipeline runs.
func (s *Server) View(ctx context.Context, id string, year int) (*tracker.View, error) {
	key := viewKey{id: id, year: year}
	now := time.Now()

	s.viewMu.RLock()
	vc := s.views[key]
	s.viewMu.RUnlock()
	if vc != nil && now.Sub(vc.updatedAt) < ViewCacheTTL {
		return vc.view, nil
	}

	tc, ok := s.cfg.Tracker(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTrackerNotFound, id)
	}

	data := tc.TrackerData
	data.Entries = slices.Clone(tc.Entries)
	if s.store != nil {
		stored, err := s.store.ListEntries(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("tracker %q: load entries: %w", id, err)
		}
		data.Entries = append(data.Entries, store.Entries(stored)...)
	}

	v, err := tracker.Compute(data, s.cfg.Settings, tracker.Options{
		ID:    id,
		Year:  year,
		Clock: s.clock,
	})
	if err != nil {
		return nil, err
	}

	s.viewMu.Lock()
	for k, c := range s.views {
		if now.Sub(c.updatedAt) >= ViewCacheTTL {
			delete(s.views, k)
		}
	}
	s.views[key] = &viewCache{view: v, updatedAt: time.Now()}
	s.viewMu.Unlock()

	return v, nil
}

// Invalidate drops every cached view of tracker id.
func (s *Server) Invalidate(id string) {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	for k := range s.views {
		if k.id == id {
			delete(s.views, k)
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrTrackerNotFound),
		errors.Is(err, store.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, calendar.ErrInvalidYear),
		errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, calendar.ErrInvalidWeekStartDay),
		errors.Is(err, calendar.ErrInvalidPadding),
		errors.Is(err, store.ErrTrackerRequired):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure maps err to a status and writes it as a JSON error. Server
// errors are logged; their details stay out of the response.
func writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		appLog.Error("request failed", err)
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
