// Package storage persists event snapshots, rule catalogues and the pick log.
//
// Snapshots can live in an atomically replaced JSON file or in SQLite; rules live in
// CSV files edited by hand; the pick log is always SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/oddswatch/internal/models"
)

// Storage wraps a SQLite database holding event records and the pick log.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/oddswatch/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "oddswatch", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, now: time.Now}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			tournament  TEXT NOT NULL,
			kind        TEXT NOT NULL,
			url         TEXT,
			matches     TEXT NOT NULL DEFAULT '[]',
			updated_at  INTEGER NOT NULL,
			PRIMARY KEY (tournament, kind)
		)`,
		`CREATE TABLE IF NOT EXISTS picks (
			id           TEXT PRIMARY KEY,
			tournament   TEXT NOT NULL,
			kind         TEXT NOT NULL,
			combo        INTEGER NOT NULL DEFAULT 0,
			players      TEXT NOT NULL,
			odd          TEXT NOT NULL,
			value        TEXT NOT NULL,
			detected_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_picks_detected_at ON picks(detected_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load reads every persisted event record.
func (s *Storage) Load() (map[models.EventKey]*models.EventRecord, error) {
	rows, err := s.db.Query(`SELECT tournament, kind, url, matches FROM events`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	records := make(map[models.EventKey]*models.EventRecord)
	for rows.Next() {
		var tournament, kind, matchesJSON string
		var url sql.NullString
		if err := rows.Scan(&tournament, &kind, &url, &matchesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		rec := &models.EventRecord{
			Tournament: tournament,
			Kind:       models.ParseEventKind(kind),
			URL:        url.String,
		}
		if err := json.Unmarshal([]byte(matchesJSON), &rec.Matches); err != nil {
			return nil, fmt.Errorf("failed to unmarshal matches of %s: %w", rec.Key(), err)
		}
		records[rec.Key()] = rec
	}
	return records, rows.Err()
}

// Save replaces the whole event table with records in one transaction.
func (s *Storage) Save(records map[models.EventKey]*models.EventRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM events`); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}

	now := s.now().UnixNano()
	for _, rec := range records {
		matches := rec.Matches
		if matches == nil {
			matches = []models.QuoteRow{}
		}
		matchesJSON, err := json.Marshal(matches)
		if err != nil {
			return fmt.Errorf("failed to marshal matches of %s: %w", rec.Key(), err)
		}
		if _, err := tx.Exec(`
			INSERT INTO events (tournament, kind, url, matches, updated_at)
			VALUES (?,?,?,?,?)`,
			rec.Tournament, rec.Kind.String(), rec.URL, string(matchesJSON), now,
		); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", rec.Key(), err)
		}
	}

	return tx.Commit()
}

// RecordPicks appends every single and combo pick of one event to the pick log.
func (s *Storage) RecordPicks(key models.EventKey, picks []models.Pick, combos []models.ComboPick) error {
	if len(picks) == 0 && len(combos) == 0 {
		return nil
	}
	now := s.now()

	var records []models.PickRecord
	for _, p := range picks {
		records = append(records, models.PickRecord{
			ID:         uuid.NewString(),
			Event:      key,
			Players:    []string{p.Player},
			Odd:        p.Odd,
			Value:      p.Value(),
			DetectedAt: now,
		})
	}
	for _, c := range combos {
		records = append(records, models.PickRecord{
			ID:         uuid.NewString(),
			Event:      key,
			Combo:      true,
			Players:    c.Players(),
			Odd:        c.CombinedOdd,
			Value:      c.Value(),
			DetectedAt: now,
		})
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range records {
		playersJSON, err := json.Marshal(r.Players)
		if err != nil {
			return fmt.Errorf("failed to marshal players: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO picks (id, tournament, kind, combo, players, odd, value, detected_at)
			VALUES (?,?,?,?,?,?,?,?)`,
			r.ID, r.Event.Tournament, r.Event.Kind.String(), boolToInt(r.Combo),
			string(playersJSON), r.Odd.String(), r.Value, r.DetectedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to insert pick: %w", err)
		}
	}
	return tx.Commit()
}

// RecentPicks returns up to k picks, newest first.
func (s *Storage) RecentPicks(k int) ([]models.PickRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, tournament, kind, combo, players, odd, value, detected_at
		FROM picks ORDER BY detected_at DESC, rowid DESC LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query picks: %w", err)
	}
	defer rows.Close()

	var picks []models.PickRecord
	for rows.Next() {
		var r models.PickRecord
		var kind, playersJSON, odd string
		var combo int
		var detectedAtNano int64

		if err := rows.Scan(&r.ID, &r.Event.Tournament, &kind, &combo, &playersJSON,
			&odd, &r.Value, &detectedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		if err := json.Unmarshal([]byte(playersJSON), &r.Players); err != nil {
			return nil, fmt.Errorf("failed to unmarshal players: %w", err)
		}
		if r.Odd, err = decimal.NewFromString(strings.TrimSpace(odd)); err != nil {
			return nil, fmt.Errorf("failed to parse pick odd %q: %w", odd, err)
		}
		r.Event.Kind = models.ParseEventKind(kind)
		r.Combo = combo != 0
		r.DetectedAt = time.Unix(0, detectedAtNano)
		picks = append(picks, r)
	}
	return picks, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
