package ics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"heatmaptracker/internal/calendar"
	appLog "heatmaptracker/internal/log"
	"heatmaptracker/internal/model"
)

// EntriesFromOccurrences collapses occurrences into one entry per UTC
// calendar day of their start. The entry value is the number of
// occurrences that day, the content lists their summaries, and the metadata
// records the sources and count. Entries come out in date order.
func EntriesFromOccurrences(occs []Occurrence) []model.Entry {
	type bucket struct {
		summaries []string
		sources   map[string]bool
	}
	byDate := make(map[string]*bucket)
	for _, o := range occs {
		date := calendar.FormatISO(o.Start)
		if date == "" {
			continue
		}
		b := byDate[date]
		if b == nil {
			b = &bucket{sources: make(map[string]bool)}
			byDate[date] = b
		}
		b.summaries = append(b.summaries, o.Summary)
		b.sources[o.SourceID] = true
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]model.Entry, 0, len(dates))
	for _, d := range dates {
		b := byDate[d]
		sources := make([]string, 0, len(b.sources))
		for s := range b.sources {
			sources = append(sources, s)
		}
		sort.Strings(sources)

		count := len(b.summaries)
		out = append(out, model.Entry{
			Date:    d,
			Value:   model.Float(float64(count)),
			Content: strings.Join(nonEmpty(b.summaries), "; "),
			Metadata: map[string]any{
				"sources":   sources,
				"count":     count,
				"summaries": b.summaries,
			},
		})
	}
	return out
}

func nonEmpty(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IngestResult is what one feed contributed to a tracker year.
type IngestResult struct {
	Source    Source
	Entries   []model.Entry
	FromCache bool
}

// Ingest fetches, parses and expands every source for the given year and
// returns the per-day entries of each feed that succeeded. Failures are
// joined into the returned error; the results of the other feeds are still
// returned.
func Ingest(ctx context.Context, f *Fetcher, sources []Source, year int) ([]IngestResult, error) {
	if err := calendar.ValidateYear(year); err != nil {
		return nil, err
	}
	cfg := ExpandConfig{
		RangeStart: calendar.FirstDayOfYear(year),
		RangeEnd:   calendar.FirstDayOfYear(year).AddDate(1, 0, 0).Add(-time.Nanosecond),
	}

	fetched, errs := f.FetchAll(ctx, sources)
	results := make([]IngestResult, 0, len(fetched))
	for _, res := range fetched {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics source %q: %w", res.Source.ID, err))
			continue
		}
		expanded, err := ExpandOccurrences(events, cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics source %q: %w", res.Source.ID, err))
			continue
		}
		entries := EntriesFromOccurrences(expanded.Occurrences)
		appLog.Info("ics ingest", "id", res.Source.ID, "year", year, "occurrences", len(expanded.Occurrences), "days", len(entries))
		results = append(results, IngestResult{Source: res.Source, Entries: entries, FromCache: res.FromCache})
	}
	return results, errors.Join(errs...)
}
