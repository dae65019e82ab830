package monitor

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rewired-gh/oddswatch/internal/logger"
	"github.com/rewired-gh/oddswatch/internal/models"
	"github.com/rewired-gh/oddswatch/internal/stake"
)

func (m *Monitor) hasActiveCombos() bool {
	for _, r := range m.combos {
		if !r.Consumed {
			return true
		}
	}
	return false
}

// matchCombos evaluates every active combo rule over all ordered selections of the newly
// identified matches. The cost is C(n,k)*k! per rule and nothing is truncated.
func (m *Monitor) matchCombos(quotes []models.MatchQuote, handicapEvent bool) []models.ComboPick {
	var (
		fired   []*models.ComboRule
		picks   []models.ComboPick
		byNames = make(map[string]int)
	)

	for _, rule := range m.combos {
		k := len(rule.Legs)
		if rule.Consumed || k == 0 || k > len(quotes) {
			continue
		}

		ruleFired := false
		forEachCombination(len(quotes), k, func(sel []int) {
			forEachPermutation(sel, func(order []int) {
				legs, product, ok := satisfyLegs(rule, quotes, order, handicapEvent)
				if !ok || product.LessThan(rule.CombinedThresholdOdd) {
					return
				}
				ruleFired = true

				pick := models.ComboPick{Rule: rule, Legs: legs, CombinedOdd: product}
				if models.IsMaxBet(rule.BetValue) {
					pick.MaxStake = true
					pick.Stake = stake.Stake(product)
				}

				key := playerSetKey(legs)
				i, seen := byNames[key]
				switch {
				case !seen:
					byNames[key] = len(picks)
					picks = append(picks, pick)
				case rule.CombinedThresholdOdd.GreaterThan(picks[i].Rule.CombinedThresholdOdd):
					picks[i] = pick
				}
			})
		})

		if ruleFired {
			fired = append(fired, rule)
		}
	}

	if len(fired) == 0 {
		return nil
	}
	for _, rule := range fired {
		rule.Consumed = true
	}
	logger.Info("%d combo rules fired over %d new matches, %d picks", len(fired), len(quotes), len(picks))
	m.flushCombos()

	return picks
}

// satisfyLegs assigns quotes[order[i]] to leg i. All legs must match.
func satisfyLegs(rule *models.ComboRule, quotes []models.MatchQuote, order []int, handicapEvent bool) ([]models.ComboLeg, decimal.Decimal, bool) {
	legs := make([]models.ComboLeg, 0, len(order))
	product := decimal.NewFromInt(1)
	for i, qi := range order {
		leg := rule.Legs[i]
		if leg.IsHandicap() != handicapEvent {
			return nil, decimal.Zero, false
		}
		player, odd, ok := models.SideMatch(leg.PlayerSubstring, leg.OpponentSubstring, leg.MinOdd, quotes[qi])
		if !ok {
			return nil, decimal.Zero, false
		}
		legs = append(legs, models.ComboLeg{Player: player, Odd: odd})
		product = product.Mul(odd)
	}
	return legs, product, true
}

// playerSetKey is an order-independent key over the matched player names.
func playerSetKey(legs []models.ComboLeg) string {
	names := make([]string, len(legs))
	for i, l := range legs {
		names[i] = l.Player
	}
	sort.Strings(names)
	return strings.Join(names, "\x00")
}

// forEachCombination calls fn with every k-subset of [0,n) in lexicographic order.
// sel is reused between calls.
func forEachCombination(n, k int, fn func(sel []int)) {
	sel := make([]int, k)
	for i := range sel {
		sel[i] = i
	}
	for {
		fn(sel)
		i := k - 1
		for i >= 0 && sel[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		sel[i]++
		for j := i + 1; j < k; j++ {
			sel[j] = sel[j-1] + 1
		}
	}
}

// forEachPermutation calls fn with every ordering of items in lexicographic order of positions.
func forEachPermutation(items []int, fn func(order []int)) {
	order := make([]int, 0, len(items))
	used := make([]bool, len(items))
	var walk func()
	walk = func() {
		if len(order) == len(items) {
			fn(order)
			return
		}
		for i, it := range items {
			if used[i] {
				continue
			}
			used[i] = true
			order = append(order, it)
			walk()
			order = order[:len(order)-1]
			used[i] = false
		}
	}
	walk()
}
