// Package models defines the core domain entities: match quotes, event snapshots, persisted records,
// betting rules and the picks they produce.
package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PlaceholderOdd is the price shown for a slot that exists but is not yet open to the market.
const PlaceholderOdd = "1.10"

type eventKindTag int

const (
	kindOther eventKindTag = iota
	kindToWinMatch
	kindHandicaps
)

// Canonical event labels, as produced by label translation upstream.
const (
	LabelToWinMatch = "To Win Match"
	LabelHandicaps  = "Handicaps"
)

// EventKind is a closed variant: ToWinMatch, Handicaps or Other(label).
// It is comparable and safe to use inside map keys.
type EventKind struct {
	tag   eventKindTag
	label string
}

var (
	ToWinMatch = EventKind{tag: kindToWinMatch}
	Handicaps  = EventKind{tag: kindHandicaps}
)

// ParseEventKind maps a canonical label to its variant. Any other label becomes Other(label).
func ParseEventKind(label string) EventKind {
	label = strings.TrimSpace(label)
	switch label {
	case LabelToWinMatch:
		return ToWinMatch
	case LabelHandicaps:
		return Handicaps
	default:
		return EventKind{tag: kindOther, label: label}
	}
}

// IsHandicap reports whether the event is handicap-style.
func (k EventKind) IsHandicap() bool {
	return k.tag == kindHandicaps
}

func (k EventKind) String() string {
	switch k.tag {
	case kindToWinMatch:
		return LabelToWinMatch
	case kindHandicaps:
		return LabelHandicaps
	default:
		return k.label
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	*k = ParseEventKind(string(text))
	return nil
}

// MatchQuote is one priced match inside an event snapshot.
// Identity for diffing is the ordered pair (Player1, Player2).
type MatchQuote struct {
	Player1   string `json:"player1"`
	Player2   string `json:"player2"`
	Odd1      string `json:"odd1"`
	Odd2      string `json:"odd2"`
	StartTime string `json:"start_time,omitempty"`
}

// Odd1Value parses Odd1. ok is false when the text is not numeric.
func (q MatchQuote) Odd1Value() (decimal.Decimal, bool) {
	return ParseOdd(q.Odd1)
}

// Odd2Value parses Odd2. ok is false when the text is not numeric.
func (q MatchQuote) Odd2Value() (decimal.Decimal, bool) {
	return ParseOdd(q.Odd2)
}

// IsHandicap reports whether either player name carries a handicap sign.
func (q MatchQuote) IsHandicap() bool {
	return HasHandicapSign(q.Player1) || HasHandicapSign(q.Player2)
}

// SameMatch reports whether row describes the same ordered player pair.
func (q MatchQuote) SameMatch(row QuoteRow) bool {
	return q.Player1 == row.Player1() && q.Player2 == row.Player2()
}

// Row reduces the quote to its persisted form.
func (q MatchQuote) Row() QuoteRow {
	return QuoteRow{q.Player1, q.Player2, q.Odd1, q.Odd2}
}

func (q MatchQuote) String() string {
	return fmt.Sprintf("%s: @%s / %s: @%s -> %s", q.Player1, q.Odd1, q.Player2, q.Odd2, q.StartTime)
}

// ParseOdd parses decimal odds text. Surrounding whitespace is ignored.
func ParseOdd(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// HasHandicapSign reports whether s contains '+' or '-'.
func HasHandicapSign(s string) bool {
	return strings.ContainsAny(s, "+-")
}

// QuoteRow is the persisted reduction of a quote: player1, player2, odd1, odd2.
type QuoteRow [4]string

func (r QuoteRow) Player1() string { return r[0] }
func (r QuoteRow) Player2() string { return r[1] }
func (r QuoteRow) Odd1() string    { return r[2] }
func (r QuoteRow) Odd2() string    { return r[3] }

// IsPlaceholder reports whether both odds are exactly the placeholder price.
func (r QuoteRow) IsPlaceholder() bool {
	return r[2] == PlaceholderOdd && r[3] == PlaceholderOdd
}

// EventKey identifies one persisted event.
type EventKey struct {
	Tournament string
	Kind       EventKind
}

func (k EventKey) String() string {
	return k.Tournament + " - " + k.Kind.String()
}

// EventSnapshot is one freshly parsed view of an event's matches.
type EventSnapshot struct {
	Tournament string       `json:"tournament"`
	Kind       EventKind    `json:"event"`
	Matches    []MatchQuote `json:"matches"`
	SourceURL  string       `json:"url"`
}

// Key returns the persistence key of the snapshot.
func (s EventSnapshot) Key() EventKey {
	return EventKey{Tournament: s.Tournament, Kind: s.Kind}
}

// Rows reduces every match to its persisted form, preserving order.
func (s EventSnapshot) Rows() []QuoteRow {
	rows := make([]QuoteRow, len(s.Matches))
	for i, m := range s.Matches {
		rows[i] = m.Row()
	}
	return rows
}

// Validate checks snapshot field constraints.
func (s EventSnapshot) Validate() error {
	if strings.TrimSpace(s.Tournament) == "" {
		return errors.New("tournament must not be empty")
	}
	if s.Kind.String() == "" {
		return errors.New("event kind must not be empty")
	}
	return nil
}

// EventRecord is the last-known state of one event.
type EventRecord struct {
	Tournament string
	Kind       EventKind
	URL        string
	Matches    []QuoteRow
}

// Key returns the persistence key of the record.
func (r *EventRecord) Key() EventKey {
	return EventKey{Tournament: r.Tournament, Kind: r.Kind}
}

// Find returns the persisted row for the quote's player pair.
func (r *EventRecord) Find(q MatchQuote) (QuoteRow, bool) {
	for _, row := range r.Matches {
		if q.SameMatch(row) {
			return row, true
		}
	}
	return QuoteRow{}, false
}
