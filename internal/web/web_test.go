package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/config"
	"heatmaptracker/internal/model"
	"heatmaptracker/internal/store"
	"heatmaptracker/internal/tracker"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	gym := config.DefaultTracker("gym")
	gym.HeatmapTitle = "Gym"
	gym.Year = 2024
	gym.Insights = []string{"total_value"}
	gym.Entries = []model.Entry{
		{Date: "2024-03-08", Value: model.Float(2)},
		{Date: "2024-03-09", Value: model.Float(3)},
	}
	cfg.Trackers = []config.TrackerConfig{gym}
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, withStore bool) (*Server, *httptest.Server) {
	t.Helper()
	var st store.EntryStore
	if withStore {
		s, err := store.NewSQLiteStore(cfg.DataDir)
		if err != nil {
			t.Fatalf("NewSQLiteStore: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		st = s
	}
	today, _ := calendar.ParseDate("2024-03-10")
	srv := NewServer(cfg, st, WithClock(calendar.FixedClock(today.Add(8*time.Hour))))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealthAndAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	_, ts := newTestServer(t, cfg, false)

	if resp := do(t, "GET", ts.URL+"/health", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	resp := do(t, "GET", ts.URL+"/api/trackers", "")
	if resp.StatusCode != http.StatusUnauthorized || resp.Header.Get("WWW-Authenticate") == "" {
		t.Errorf("unauthenticated status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest("GET", ts.URL+"/api/trackers", nil)
	req.SetBasicAuth("admin", "secret")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Errorf("authenticated status = %d", authed.StatusCode)
	}
}

func TestTrackersAndView(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), false)

	list := decode[[]trackerSummary](t, do(t, "GET", ts.URL+"/api/trackers", ""))
	if len(list) != 1 || list[0].ID != "gym" || list[0].Title != "Gym" {
		t.Errorf("trackers = %+v", list)
	}

	resp := do(t, "GET", ts.URL+"/api/trackers/gym", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("view status = %d", resp.StatusCode)
	}
	v := decode[tracker.View](t, resp)
	if v.Year != 2024 || v.Today != "2024-03-10" || v.TotalTrackingDays != 2 {
		t.Errorf("view = year %d today %s total %d", v.Year, v.Today, v.TotalTrackingDays)
	}

	v = decode[tracker.View](t, do(t, "GET", ts.URL+"/api/trackers/gym?year=2023", ""))
	if v.Year != 2023 || v.TotalTrackingDaysThisYear != 0 {
		t.Errorf("2023 view = year %d filled %d", v.Year, v.TotalTrackingDaysThisYear)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/trackers/nope", http.StatusNotFound},
		{"/api/trackers/gym?year=abc", http.StatusBadRequest},
		{"/api/trackers/gym?year=-5", http.StatusBadRequest},
		{"/trackers/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		if resp := do(t, "GET", ts.URL+tt.path, ""); resp.StatusCode != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, resp.StatusCode, tt.want)
		}
	}
}

func TestEntriesLifecycle(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), true)
	base := ts.URL + "/api/trackers/gym"

	before := decode[statsResponse](t, do(t, "GET", base+"/stats", ""))
	if before.TotalTrackingDays != 2 || before.Streaks.CurrentStreak != 2 || before.Insights[0].Value != "5" {
		t.Fatalf("stats before = %+v", before)
	}

	resp := do(t, "POST", base+"/entries", `{"date":"2024-03-10","value":4,"content":"legs"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decode[store.StoredEntry](t, resp)
	if created.Date != "2024-03-10" || created.Tracker != "gym" {
		t.Errorf("created = %+v", created)
	}

	after := decode[statsResponse](t, do(t, "GET", base+"/stats", ""))
	if after.TotalTrackingDays != 3 || after.Streaks.CurrentStreak != 3 || after.Insights[0].Value != "9" {
		t.Errorf("stats after create = %+v", after)
	}

	list := decode[entriesResponse](t, do(t, "GET", base+"/entries?year=2024", ""))
	if len(list.Static) != 2 || len(list.Stored) != 1 || list.Stored[0].ID != created.ID {
		t.Errorf("entries = %+v", list)
	}

	if resp := do(t, "DELETE", base+"/entries/"+created.ID.String(), ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	if resp := do(t, "DELETE", base+"/entries/"+created.ID.String(), ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d", resp.StatusCode)
	}
	final := decode[statsResponse](t, do(t, "GET", base+"/stats", ""))
	if final.TotalTrackingDays != 2 {
		t.Errorf("stats after delete = %+v", final)
	}
}

func TestEntryValidation(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), true)
	base := ts.URL + "/api/trackers/gym/entries"

	tests := []struct {
		name   string
		method string
		url    string
		body   string
		want   int
	}{
		{"invalid date", "POST", base, `{"date":"2024-02-30"}`, http.StatusBadRequest},
		{"malformed json", "POST", base, `{"date":`, http.StatusBadRequest},
		{"unknown field", "POST", base, `{"date":"2024-01-01","colour":"red"}`, http.StatusBadRequest},
		{"unknown tracker", "POST", ts.URL + "/api/trackers/nope/entries", `{"date":"2024-01-01"}`, http.StatusNotFound},
		{"bad entry id", "DELETE", base + "/not-a-uuid", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := do(t, tt.method, tt.url, tt.body); resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestEntriesWithoutStore(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), false)
	resp := do(t, "POST", ts.URL+"/api/trackers/gym/entries", `{"date":"2024-01-01"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	list := decode[entriesResponse](t, do(t, "GET", ts.URL+"/api/trackers/gym/entries", ""))
	if len(list.Static) != 2 || len(list.Stored) != 0 {
		t.Errorf("entries = %+v", list)
	}
}

func TestPagesAndImages(t *testing.T) {
	cfg := testConfig(t)
	srv, ts := newTestServer(t, cfg, false)

	resp := do(t, "GET", ts.URL+"/trackers/gym", "")
	page := readAll(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(page, `data-ready="true"`) || !strings.Contains(page, "<svg") {
		t.Errorf("page status = %d", resp.StatusCode)
	}

	resp = do(t, "GET", ts.URL+"/trackers/gym/heatmap.svg", "")
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("svg content type = %q", ct)
	}
	if svg := readAll(t, resp); !strings.Contains(svg, `data-date="2024-03-09"`) {
		t.Error("svg missing entry date")
	}

	if resp := do(t, "GET", ts.URL+"/trackers/gym/heatmap.png", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("png before export = %d", resp.StatusCode)
	}
	if err := os.MkdirAll(srv.exportDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(PNGPath(srv.exportDir, "gym"), []byte("\x89PNG fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp = do(t, "GET", ts.URL+"/trackers/gym/heatmap.png", "")
	if resp.StatusCode != http.StatusOK || readAll(t, resp) != "\x89PNG fake" {
		t.Errorf("png after export = %d", resp.StatusCode)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	idx, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	idx.Body.Close()
	if idx.StatusCode != http.StatusFound || idx.Header.Get("Location") != "/trackers/gym" {
		t.Errorf("index = %d %q", idx.StatusCode, idx.Header.Get("Location"))
	}
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
