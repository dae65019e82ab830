package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ChangeKind classifies one match of a diff pass.
type ChangeKind int

const (
	ChangeNew ChangeKind = iota
	ChangePlaceholderReleased
	ChangeOddsUpdated
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeNew:
		return "new"
	case ChangePlaceholderReleased:
		return "placeholder-released"
	case ChangeOddsUpdated:
		return "odds-updated"
	default:
		return "unknown"
	}
}

// Change is one non-unchanged match classification, in snapshot order.
type Change struct {
	Kind  ChangeKind
	Quote MatchQuote
}

// NewlyIdentified reports whether the change makes the match eligible for rules.
func (c Change) NewlyIdentified() bool {
	return c.Kind == ChangeNew || c.Kind == ChangePlaceholderReleased
}

// ShowsStartTime reports whether the description carries the start time.
func (c Change) ShowsStartTime() bool {
	return c.NewlyIdentified()
}

// String is a plain human-readable description of the change.
func (c Change) String() string {
	s := fmt.Sprintf("%s: @%s / %s: @%s", c.Quote.Player1, c.Quote.Odd1, c.Quote.Player2, c.Quote.Odd2)
	if c.ShowsStartTime() && c.Quote.StartTime != "" {
		s += " at " + c.Quote.StartTime
	}
	return fmt.Sprintf("[%s] %s", c.Kind, s)
}

// Pick is the notifiable outcome of single-leg rules for one player of one match.
type Pick struct {
	Player    string
	Odd       decimal.Decimal
	Threshold decimal.Decimal
	BetValue  string

	// MaxStake is set when the rule asked for MAX; Stake then holds the computed stake.
	MaxStake bool
	Stake    decimal.Decimal
}

// Value is the display value of the pick.
func (p Pick) Value() string {
	if p.MaxStake {
		return p.Stake.StringFixed(2) + " (MAX)"
	}
	return p.BetValue
}

// ComboLeg is one matched leg of a fired combo.
type ComboLeg struct {
	Player string
	Odd    decimal.Decimal
}

// ComboPick is a fired combo rule, deduplicated by its set of players.
type ComboPick struct {
	Rule        *ComboRule
	Legs        []ComboLeg
	CombinedOdd decimal.Decimal

	MaxStake bool
	Stake    decimal.Decimal
}

// Value is the display value of the combo pick.
func (p ComboPick) Value() string {
	if p.MaxStake {
		return p.Stake.StringFixed(2) + " (MAX)"
	}
	return p.Rule.BetValue
}

// Players lists the leg players in leg order.
func (p ComboPick) Players() []string {
	names := make([]string, len(p.Legs))
	for i, l := range p.Legs {
		names[i] = l.Player
	}
	return names
}

// PickRecord is one dispatched pick as kept in the pick log.
type PickRecord struct {
	ID         string
	Event      EventKey
	Combo      bool
	Players    []string
	Odd        decimal.Decimal
	Value      string
	DetectedAt time.Time
}

// String is a one-line summary used by the /picks command.
func (r PickRecord) String() string {
	kind := "single"
	if r.Combo {
		kind = "combo"
	}
	return fmt.Sprintf("%s %s [%s] %s @ %s, value %s",
		r.DetectedAt.Format("02-01 15:04"), kind, r.Event, strings.Join(r.Players, " + "), r.Odd.StringFixed(2), r.Value)
}
