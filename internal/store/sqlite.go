// Package store persists tracker entries in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"heatmaptracker/internal/calendar"
	appLog "heatmaptracker/internal/log"
	"heatmaptracker/internal/model"
)

var (
	ErrEntryNotFound   = errors.New("entry not found")
	ErrTrackerRequired = errors.New("tracker id is required")
	ErrSourceRequired  = errors.New("source id is required")
)

// SourceManual tags entries created through the API rather than a feed.
const SourceManual = ""

// StoredEntry is an entry together with its storage identity.
type StoredEntry struct {
	ID        uuid.UUID `json:"id"`
	Tracker   string    `json:"tracker"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	model.Entry
}

// EntryStore stores and loads tracker entries.
type EntryStore interface {
	CreateEntry(ctx context.Context, tracker string, e model.Entry) (StoredEntry, error)
	GetEntry(ctx context.Context, tracker string, id uuid.UUID) (StoredEntry, error)
	DeleteEntry(ctx context.Context, tracker string, id uuid.UUID) error
	ListEntries(ctx context.Context, tracker string) ([]StoredEntry, error)
	ListEntriesForYear(ctx context.Context, tracker string, year int) ([]StoredEntry, error)
	ReplaceSourceEntries(ctx context.Context, tracker, source string, entries []model.Entry) (int, error)
	Close() error
}

// SQLiteStore is the EntryStore backed by a SQLite file.
type SQLiteStore struct {
	conn *sql.DB
	now  func() time.Time
}

var _ EntryStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) dataDir/heatmap.db.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "heatmap.db")
	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under the web server.
	conn.SetMaxOpenConns(1)

	if err := initTables(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	appLog.Info("entry store opened", "path", dbPath)
	return &SQLiteStore{conn: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

func initTables(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			tracker TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			value REAL NULL,
			custom_color TEXT NOT NULL DEFAULT '',
			content TEXT NULL,
			metadata TEXT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entries_tracker_date
		ON entries(tracker, date);

		CREATE INDEX IF NOT EXISTS idx_entries_tracker_source
		ON entries(tracker, source);
	`)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateEntry validates e, normalizes its date to YYYY-MM-DD and stores it
// under a new id.
func (s *SQLiteStore) CreateEntry(ctx context.Context, tracker string, e model.Entry) (StoredEntry, error) {
	if tracker == "" {
		return StoredEntry{}, ErrTrackerRequired
	}
	stored, err := s.newStored(tracker, SourceManual, e)
	if err != nil {
		return StoredEntry{}, err
	}
	if err := insertEntry(ctx, s.conn, stored); err != nil {
		return StoredEntry{}, err
	}
	return stored, nil
}

func (s *SQLiteStore) newStored(tracker, source string, e model.Entry) (StoredEntry, error) {
	date, err := calendar.NormalizeISO(e.Date)
	if err != nil {
		return StoredEntry{}, err
	}
	e.Date = date
	if e.Value == nil && e.Intensity != nil {
		e.Value = model.Float(float64(*e.Intensity))
	}
	e.Intensity = nil
	return StoredEntry{
		ID:        uuid.New(),
		Tracker:   tracker,
		Source:    source,
		CreatedAt: s.now(),
		Entry:     e,
	}, nil
}

func insertEntry(ctx context.Context, db execer, se StoredEntry) error {
	content, err := marshalOptional(se.Content)
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}
	metadata, err := marshalOptional(se.Metadata)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	var value sql.NullFloat64
	if se.Value != nil {
		value = sql.NullFloat64{Float64: *se.Value, Valid: true}
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO entries (id, tracker, source, date, value, custom_color, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		se.ID.String(), se.Tracker, se.Source, se.Date, value, se.CustomColor,
		content, metadata, se.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetEntry loads one entry of tracker.
func (s *SQLiteStore) GetEntry(ctx context.Context, tracker string, id uuid.UUID) (StoredEntry, error) {
	rows, err := s.conn.QueryContext(ctx, selectEntries+` WHERE tracker = ? AND id = ?`, tracker, id.String())
	if err != nil {
		return StoredEntry{}, err
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return StoredEntry{}, err
	}
	if len(entries) == 0 {
		return StoredEntry{}, ErrEntryNotFound
	}
	return entries[0], nil
}

// DeleteEntry removes one entry of tracker.
func (s *SQLiteStore) DeleteEntry(ctx context.Context, tracker string, id uuid.UUID) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM entries WHERE tracker = ? AND id = ?`, tracker, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ListEntries returns every entry of tracker ordered by date.
func (s *SQLiteStore) ListEntries(ctx context.Context, tracker string) ([]StoredEntry, error) {
	rows, err := s.conn.QueryContext(ctx, selectEntries+` WHERE tracker = ? ORDER BY date, created_at, id`, tracker)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ListEntriesForYear returns the entries of tracker dated inside year.
func (s *SQLiteStore) ListEntriesForYear(ctx context.Context, tracker string, year int) ([]StoredEntry, error) {
	if err := calendar.ValidateYear(year); err != nil {
		return nil, err
	}
	from := calendar.FormatISO(calendar.FirstDayOfYear(year))
	to := calendar.FormatISO(calendar.LastDayOfYear(year))
	rows, err := s.conn.QueryContext(ctx,
		selectEntries+` WHERE tracker = ? AND date >= ? AND date <= ? ORDER BY date, created_at, id`,
		tracker, from, to)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ReplaceSourceEntries swaps every entry that source contributed to tracker
// for entries, in one transaction. It returns the number of rows written.
func (s *SQLiteStore) ReplaceSourceEntries(ctx context.Context, tracker, source string, entries []model.Entry) (int, error) {
	if tracker == "" {
		return 0, ErrTrackerRequired
	}
	if source == "" {
		return 0, ErrSourceRequired
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE tracker = ? AND source = ?`, tracker, source); err != nil {
		return 0, err
	}

	written := 0
	for _, e := range entries {
		se, err := s.newStored(tracker, source, e)
		if err != nil {
			appLog.Warn("skipping entry with invalid date", "tracker", tracker, "source", source, "date", e.Date)
			continue
		}
		if err := insertEntry(ctx, tx, se); err != nil {
			return 0, err
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return written, nil
}

const selectEntries = `
	SELECT id, tracker, source, date, value, custom_color, content, metadata, created_at
	FROM entries`

func scanEntries(rows *sql.Rows) ([]StoredEntry, error) {
	defer rows.Close()

	var out []StoredEntry
	for rows.Next() {
		var (
			se        StoredEntry
			id        string
			value     sql.NullFloat64
			content   sql.NullString
			metadata  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&id, &se.Tracker, &se.Source, &se.Date, &value, &se.CustomColor, &content, &metadata, &createdAt); err != nil {
			return nil, err
		}

		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid entry id %q: %w", id, err)
		}
		se.ID = parsed
		if value.Valid {
			se.Value = model.Float(value.Float64)
		}
		if se.Content, err = unmarshalOptional(content); err != nil {
			return nil, err
		}
		if se.Metadata, err = unmarshalOptional(metadata); err != nil {
			return nil, err
		}
		if se.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

func marshalOptional(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalOptional(s sql.NullString) (any, error) {
	if !s.Valid {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Entries strips storage identity, for feeding the heatmap pipeline.
func Entries(stored []StoredEntry) []model.Entry {
	out := make([]model.Entry, len(stored))
	for i, se := range stored {
		out[i] = se.Entry
	}
	return out
}
