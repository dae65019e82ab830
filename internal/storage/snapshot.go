package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rewired-gh/oddswatch/internal/models"
)

// tournamentDoc and eventDoc are the on-disk shape of the snapshot file:
// [{"name": T, "events": [{"name": K, "matches": [[p1, p2, o1, o2]], "url": U}]}]
type tournamentDoc struct {
	Name   string     `json:"name"`
	Events []eventDoc `json:"events"`
}

type eventDoc struct {
	Name    string            `json:"name"`
	Matches []models.QuoteRow `json:"matches"`
	URL     string            `json:"url"`
}

// JSONSnapshotStore keeps event records in a single JSON file that is replaced
// atomically on every save.
type JSONSnapshotStore struct {
	path string
}

// NewJSONSnapshotStore returns a store backed by path. The file is created on first save.
func NewJSONSnapshotStore(path string) *JSONSnapshotStore {
	return &JSONSnapshotStore{path: path}
}

// Load reads the snapshot file. A missing or blank file yields an empty map.
func (s *JSONSnapshotStore) Load() (map[models.EventKey]*models.EventRecord, error) {
	records := make(map[models.EventKey]*models.EventRecord)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	if len(data) < 2 {
		return records, nil
	}

	var docs []tournamentDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot file: %w", err)
	}
	for _, t := range docs {
		for _, e := range t.Events {
			rec := &models.EventRecord{
				Tournament: t.Name,
				Kind:       models.ParseEventKind(e.Name),
				URL:        e.URL,
				Matches:    e.Matches,
			}
			records[rec.Key()] = rec
		}
	}
	return records, nil
}

// Save writes every record, grouped by tournament, to a temporary file and renames it
// over the snapshot file.
func (s *JSONSnapshotStore) Save(records map[models.EventKey]*models.EventRecord) error {
	data, err := json.MarshalIndent(groupByTournament(records), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshots: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func groupByTournament(records map[models.EventKey]*models.EventRecord) []tournamentDoc {
	keys := make([]models.EventKey, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Tournament != keys[j].Tournament {
			return keys[i].Tournament < keys[j].Tournament
		}
		return keys[i].Kind.String() < keys[j].Kind.String()
	})

	docs := []tournamentDoc{}
	for _, k := range keys {
		rec := records[k]
		matches := rec.Matches
		if matches == nil {
			matches = []models.QuoteRow{}
		}
		ev := eventDoc{Name: rec.Kind.String(), Matches: matches, URL: rec.URL}
		if n := len(docs); n > 0 && docs[n-1].Name == rec.Tournament {
			docs[n-1].Events = append(docs[n-1].Events, ev)
			continue
		}
		docs = append(docs, tournamentDoc{Name: rec.Tournament, Events: []eventDoc{ev}})
	}
	return docs
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
