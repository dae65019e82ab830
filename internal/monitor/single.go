package monitor

import (
	"github.com/rewired-gh/oddswatch/internal/logger"
	"github.com/rewired-gh/oddswatch/internal/models"
	"github.com/rewired-gh/oddswatch/internal/stake"
)

// singleEligible applies the handicap gate: the rule's handicap style must agree with both
// the event kind and the match's player names.
func singleEligible(rule *models.SingleLegRule, handicapEvent, handicapMatch bool) bool {
	ruleHandicap := rule.IsHandicap()
	return ruleHandicap == handicapEvent && ruleHandicap == handicapMatch
}

// matchSingle evaluates one quote against the single-leg catalogue. Every rule that matches
// is consumed; only the highest-threshold rule per player is returned as a pick.
func (m *Monitor) matchSingle(quote models.MatchQuote, handicapEvent bool) []models.Pick {
	handicapMatch := quote.IsHandicap()

	var (
		picks   []models.Pick
		matched []*models.SingleLegRule
		best    = make(map[string]int)
	)

	for _, rule := range m.singles {
		if rule.Consumed || rule.PlayerSubstring == "" {
			continue
		}
		if !singleEligible(rule, handicapEvent, handicapMatch) {
			continue
		}

		player, odd, ok := models.SideMatch(rule.PlayerSubstring, rule.OpponentSubstring, rule.ThresholdOdd, quote)
		if !ok {
			continue
		}
		matched = append(matched, rule)

		pick := models.Pick{
			Player:    player,
			Odd:       odd,
			Threshold: rule.ThresholdOdd,
			BetValue:  rule.BetValue,
		}
		if models.IsMaxBet(rule.BetValue) {
			pick.MaxStake = true
			pick.Stake = stake.Stake(odd)
		}

		i, seen := best[player]
		switch {
		case !seen:
			best[player] = len(picks)
			picks = append(picks, pick)
		case rule.ThresholdOdd.GreaterThan(picks[i].Threshold):
			picks[i] = pick
		}
	}

	if len(matched) == 0 {
		return nil
	}
	for _, rule := range matched {
		rule.Consumed = true
	}
	logger.Info("%d single rules fired for %s vs %s, %d picks", len(matched), quote.Player1, quote.Player2, len(picks))
	m.flushSingles()

	return picks
}
