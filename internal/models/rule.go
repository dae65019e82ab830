package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxBetValue asks for the stake table to size the bet.
const MaxBetValue = "MAX"

// IsMaxBet reports whether a bet value requests a computed maximum stake.
func IsMaxBet(betValue string) bool {
	return strings.EqualFold(strings.TrimSpace(betValue), MaxBetValue)
}

// SingleLegRule fires on one side of one match.
// Substrings are stored uppercase; an empty OpponentSubstring matches any opponent.
type SingleLegRule struct {
	PlayerSubstring   string
	OpponentSubstring string
	ThresholdOdd      decimal.Decimal
	BetValue          string
	Consumed          bool
}

// IsHandicap reports whether the rule targets handicap-style names.
func (r *SingleLegRule) IsHandicap() bool {
	return HasHandicapSign(r.PlayerSubstring)
}

// ComboRuleLeg is one positional condition of a combo rule.
type ComboRuleLeg struct {
	PlayerSubstring   string
	OpponentSubstring string
	MinOdd            decimal.Decimal
}

// IsHandicap reports whether the leg targets handicap-style names.
func (l ComboRuleLeg) IsHandicap() bool {
	return HasHandicapSign(l.PlayerSubstring)
}

// ComboRule fires when every leg is satisfied by a distinct newly identified match
// and the product of the matched odds reaches CombinedThresholdOdd.
type ComboRule struct {
	Legs                 []ComboRuleLeg
	CombinedThresholdOdd decimal.Decimal
	BetValue             string
	Consumed             bool

	// Extra holds columns of the source row that the engine does not interpret.
	Extra map[string]string
}

// SideMatch checks one player/opponent condition against both sides of q, player1 first.
// It returns the matched player name and that side's odd.
func SideMatch(playerSub, opponentSub string, minOdd decimal.Decimal, q MatchQuote) (string, decimal.Decimal, bool) {
	p1 := strings.ToUpper(q.Player1)
	p2 := strings.ToUpper(q.Player2)
	playerSub = strings.ToUpper(playerSub)
	opponentSub = strings.ToUpper(opponentSub)

	if odd, ok := q.Odd1Value(); ok && odd.GreaterThanOrEqual(minOdd) {
		if strings.Contains(p1, playerSub) && (opponentSub == "" || strings.Contains(p2, opponentSub)) {
			return q.Player1, odd, true
		}
	}
	if odd, ok := q.Odd2Value(); ok && odd.GreaterThanOrEqual(minOdd) {
		if strings.Contains(p2, playerSub) && (opponentSub == "" || strings.Contains(p1, opponentSub)) {
			return q.Player2, odd, true
		}
	}
	return "", decimal.Zero, false
}
