package storage

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rewired-gh/oddswatch/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecords() map[models.EventKey]*models.EventRecord {
	recs := []*models.EventRecord{
		{
			Tournament: "ATP Vienna",
			Kind:       models.ToWinMatch,
			URL:        "https://example.test/atp-vienna",
			Matches: []models.QuoteRow{
				{"John Smith", "Peter Brown", "1.85", "1.95"},
				{"Carl Diaz", "Ivan Petrov", models.PlaceholderOdd, models.PlaceholderOdd},
			},
		},
		{
			Tournament: "ATP Vienna",
			Kind:       models.Handicaps,
			URL:        "https://example.test/atp-vienna-hcp",
			Matches:    []models.QuoteRow{{"John Smith-1.5", "Peter Brown+1.5", "2.10", "1.70"}},
		},
		{
			Tournament: "WTA Linz",
			Kind:       models.ParseEventKind("Set Betting"),
			Matches:    nil,
		},
	}
	out := make(map[models.EventKey]*models.EventRecord)
	for _, r := range recs {
		out[r.Key()] = r
	}
	return out
}

func assertRecords(t *testing.T, got, want map[models.EventKey]*models.EventRecord) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for k, w := range want {
		g, ok := got[k]
		if !ok {
			t.Errorf("record %s missing", k)
			continue
		}
		if g.URL != w.URL {
			t.Errorf("%s: URL = %q, want %q", k, g.URL, w.URL)
		}
		if len(g.Matches) != len(w.Matches) || (len(w.Matches) > 0 && !reflect.DeepEqual(g.Matches, w.Matches)) {
			t.Errorf("%s: matches = %v, want %v", k, g.Matches, w.Matches)
		}
	}
}

func TestStorage_SaveAndLoad(t *testing.T) {
	s := newTestStorage(t)
	want := testRecords()

	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertRecords(t, got, want)
}

func TestStorage_SaveReplaces(t *testing.T) {
	s := newTestStorage(t)
	recs := testRecords()
	if err := s.Save(recs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for k := range recs {
		if k.Tournament == "WTA Linz" {
			delete(recs, k)
		}
	}
	if err := s.Save(recs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertRecords(t, got, recs)
}

func TestStorage_LoadEmpty(t *testing.T) {
	s := newTestStorage(t)
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

func TestStorage_RecordPicks(t *testing.T) {
	s := newTestStorage(t)
	base := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	key := models.EventKey{Tournament: "ATP Vienna", Kind: models.ToWinMatch}
	picks := []models.Pick{{Player: "John Smith", Odd: decimal.RequireFromString("1.85"), BetValue: "10"}}
	if err := s.RecordPicks(key, picks, nil); err != nil {
		t.Fatalf("RecordPicks: %v", err)
	}

	s.now = func() time.Time { return base.Add(time.Minute) }
	combos := []models.ComboPick{{
		Rule: &models.ComboRule{BetValue: "20"},
		Legs: []models.ComboLeg{
			{Player: "John Smith", Odd: decimal.RequireFromString("1.85")},
			{Player: "Ivan Petrov", Odd: decimal.RequireFromString("2")},
		},
		CombinedOdd: decimal.RequireFromString("3.7"),
	}}
	if err := s.RecordPicks(key, nil, combos); err != nil {
		t.Fatalf("RecordPicks: %v", err)
	}

	got, err := s.RecentPicks(10)
	if err != nil {
		t.Fatalf("RecentPicks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d picks, want 2", len(got))
	}

	newest := got[0]
	if !newest.Combo || !reflect.DeepEqual(newest.Players, []string{"John Smith", "Ivan Petrov"}) {
		t.Errorf("newest pick = %+v, want the combo", newest)
	}
	if !newest.Odd.Equal(decimal.RequireFromString("3.7")) || newest.Value != "20" {
		t.Errorf("combo odd/value = %s/%s", newest.Odd, newest.Value)
	}
	if newest.Event != key {
		t.Errorf("event = %v, want %v", newest.Event, key)
	}
	if got[1].Combo || got[1].Value != "10" || !got[1].DetectedAt.Equal(base) {
		t.Errorf("oldest pick = %+v", got[1])
	}
	for _, p := range got {
		if _, err := uuid.Parse(p.ID); err != nil {
			t.Errorf("pick id %q is not a UUID: %v", p.ID, err)
		}
	}
}

func TestStorage_RecentPicksLimit(t *testing.T) {
	s := newTestStorage(t)
	key := models.EventKey{Tournament: "ATP Vienna", Kind: models.Handicaps}
	for i := 0; i < 5; i++ {
		p := []models.Pick{{Player: "P", Odd: decimal.NewFromInt(2), BetValue: "1"}}
		if err := s.RecordPicks(key, p, nil); err != nil {
			t.Fatalf("RecordPicks: %v", err)
		}
	}
	got, err := s.RecentPicks(3)
	if err != nil {
		t.Fatalf("RecentPicks: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d picks, want 3", len(got))
	}
}

func TestStorage_RecordNoPicks(t *testing.T) {
	s := newTestStorage(t)
	if err := s.RecordPicks(models.EventKey{Tournament: "T", Kind: models.ToWinMatch}, nil, nil); err != nil {
		t.Fatalf("RecordPicks: %v", err)
	}
	got, _ := s.RecentPicks(10)
	if len(got) != 0 {
		t.Errorf("got %d picks, want 0", len(got))
	}
}
