package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/model"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateGetDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	created, err := s.CreateEntry(ctx, "reading", model.Entry{
		Date:        "2024-03-05T22:30:00+09:00",
		Intensity:   model.Int(3),
		CustomColor: "#ff0000",
		Content:     "chapter 4",
		Metadata:    map[string]any{"pages": 12},
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if created.Date != "2024-03-05" || created.Value == nil || *created.Value != 3 || created.Intensity != nil {
		t.Errorf("created = %+v", created)
	}

	got, err := s.GetEntry(ctx, "reading", created.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.ID != created.ID || got.Date != "2024-03-05" || got.CustomColor != "#ff0000" || got.Content != "chapter 4" {
		t.Errorf("got = %+v", got)
	}
	md, ok := got.Metadata.(map[string]any)
	if !ok || md["pages"] != float64(12) {
		t.Errorf("metadata = %#v", got.Metadata)
	}

	if _, err := s.GetEntry(ctx, "other", created.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("cross-tracker get err = %v", err)
	}
	if err := s.DeleteEntry(ctx, "reading", created.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := s.DeleteEntry(ctx, "reading", created.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if _, err := s.GetEntry(ctx, "reading", uuid.New()); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("unknown id err = %v", err)
	}
}

func TestCreateEntryValidation(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateEntry(ctx, "", model.Entry{Date: "2024-01-01"}); !errors.Is(err, ErrTrackerRequired) {
		t.Errorf("err = %v, want ErrTrackerRequired", err)
	}
	if _, err := s.CreateEntry(ctx, "reading", model.Entry{Date: "2024-02-30"}); !errors.Is(err, calendar.ErrInvalidDate) {
		t.Errorf("err = %v, want ErrInvalidDate", err)
	}
}

func TestListEntries(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	for _, d := range []string{"2024-05-01", "2023-12-31", "2024-01-01", "2024-12-31", "2025-01-01"} {
		if _, err := s.CreateEntry(ctx, "runs", model.Entry{Date: d, Value: model.Float(1)}); err != nil {
			t.Fatalf("CreateEntry(%s): %v", d, err)
		}
	}
	if _, err := s.CreateEntry(ctx, "other", model.Entry{Date: "2024-06-01"}); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListEntries(ctx, "runs")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(all) != 5 || all[0].Date != "2023-12-31" || all[4].Date != "2025-01-01" {
		t.Errorf("ListEntries = %v", Entries(all))
	}

	year, err := s.ListEntriesForYear(ctx, "runs", 2024)
	if err != nil {
		t.Fatalf("ListEntriesForYear: %v", err)
	}
	if len(year) != 3 || year[0].Date != "2024-01-01" || year[2].Date != "2024-12-31" {
		t.Errorf("ListEntriesForYear = %v", Entries(year))
	}
	if _, err := s.ListEntriesForYear(ctx, "runs", 0); !errors.Is(err, calendar.ErrInvalidYear) {
		t.Errorf("err = %v, want ErrInvalidYear", err)
	}
}

func TestReplaceSourceEntries(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	manual, err := s.CreateEntry(ctx, "gym", model.Entry{Date: "2024-01-01"})
	if err != nil {
		t.Fatal(err)
	}

	n, err := s.ReplaceSourceEntries(ctx, "gym", "feed", []model.Entry{
		{Date: "2024-01-02", Value: model.Float(2)},
		{Date: "2024-01-03", Value: model.Float(1)},
		{Date: "not a date"},
	})
	if err != nil || n != 2 {
		t.Fatalf("first replace = %d, %v", n, err)
	}

	n, err = s.ReplaceSourceEntries(ctx, "gym", "feed", []model.Entry{{Date: "2024-01-05", Value: model.Float(1)}})
	if err != nil || n != 1 {
		t.Fatalf("second replace = %d, %v", n, err)
	}

	all, err := s.ListEntries(ctx, "gym")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != manual.ID || all[1].Date != "2024-01-05" || all[1].Source != "feed" {
		t.Errorf("entries after replace = %+v", all)
	}

	if _, err := s.ReplaceSourceEntries(ctx, "gym", "", nil); !errors.Is(err, ErrSourceRequired) {
		t.Errorf("err = %v, want ErrSourceRequired", err)
	}
}
