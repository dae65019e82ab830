package monitor

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/rewired-gh/oddswatch/internal/models"
)

func leg(player, opponent, minOdd string) models.ComboRuleLeg {
	return models.ComboRuleLeg{PlayerSubstring: player, OpponentSubstring: opponent, MinOdd: dec(minOdd)}
}

func combo(threshold, value string, legs ...models.ComboRuleLeg) *models.ComboRule {
	return &models.ComboRule{Legs: legs, CombinedThresholdOdd: dec(threshold), BetValue: value}
}

func TestMatchCombos_TwoLegs(t *testing.T) {
	rule := combo("3.00", "20", leg("ALPHA", "", "1.50"), leg("BETA", "", "1.50"))
	f := newFixture(t, nil, []*models.ComboRule{rule})

	res := f.mon.ProcessEvent(snapshot(models.ToWinMatch,
		quote("Alpha", "Gamma", "2.00", "1.70"),
		quote("Delta", "Beta", "2.20", "1.60"),
	))

	if len(res.ComboPicks) != 1 {
		t.Fatalf("ComboPicks = %v, want 1", res.ComboPicks)
	}
	p := res.ComboPicks[0]
	if !reflect.DeepEqual(p.Players(), []string{"Alpha", "Beta"}) {
		t.Errorf("players = %v", p.Players())
	}
	if !p.CombinedOdd.Equal(dec("3.2")) {
		t.Errorf("combined odd = %s, want 3.2", p.CombinedOdd)
	}
	if !rule.Consumed || f.rules.comboSaves != 1 {
		t.Errorf("Consumed=%v saves=%d", rule.Consumed, f.rules.comboSaves)
	}
}

func TestMatchCombos_PositionalLegs(t *testing.T) {
	// legs are listed in reverse snapshot order; only the swapped ordering satisfies them
	rule := combo("1.00", "5", leg("BETA", "", "1.00"), leg("ALPHA", "", "1.00"))
	f := newFixture(t, nil, []*models.ComboRule{rule})

	res := f.mon.ProcessEvent(snapshot(models.ToWinMatch,
		quote("Alpha", "Gamma", "2.00", "1.70"),
		quote("Beta", "Delta", "1.50", "2.60"),
	))

	if len(res.ComboPicks) != 1 {
		t.Fatalf("ComboPicks = %v, want 1", res.ComboPicks)
	}
	if got := res.ComboPicks[0].Players(); !reflect.DeepEqual(got, []string{"Beta", "Alpha"}) {
		t.Errorf("players = %v, want leg order [Beta Alpha]", got)
	}
}

func TestMatchCombos_BelowCombinedThreshold(t *testing.T) {
	rule := combo("3.50", "20", leg("ALPHA", "", "1.50"), leg("BETA", "", "1.50"))
	f := newFixture(t, nil, []*models.ComboRule{rule})

	res := f.mon.ProcessEvent(snapshot(models.ToWinMatch,
		quote("Alpha", "Gamma", "2.00", "1.70"),
		quote("Delta", "Beta", "2.20", "1.60"),
	))

	if len(res.ComboPicks) != 0 || rule.Consumed {
		t.Errorf("combo below threshold fired: %v", res.ComboPicks)
	}
	if f.rules.comboSaves != 0 {
		t.Errorf("combo saves = %d, want 0", f.rules.comboSaves)
	}
}

func TestMatchCombos_NeedsEnoughNewMatches(t *testing.T) {
	rule := combo("1.00", "20", leg("ALPHA", "", "1.00"), leg("BETA", "", "1.00"))
	f := newFixture(t, nil, []*models.ComboRule{rule})

	// Beta is already known; only Alpha is new in the second pass
	f.mon.ProcessEvent(snapshot(models.ToWinMatch, quote("Delta", "Beta", "2.20", "1.60")))
	if rule.Consumed {
		t.Fatal("rule fired with a single new match")
	}

	res := f.mon.ProcessEvent(snapshot(models.ToWinMatch,
		quote("Delta", "Beta", "2.20", "1.60"),
		quote("Alpha", "Gamma", "2.00", "1.70"),
	))
	if len(res.NewlyIdentified) != 1 {
		t.Fatalf("NewlyIdentified = %v, want only Alpha", res.NewlyIdentified)
	}
	if len(res.ComboPicks) != 0 || rule.Consumed {
		t.Errorf("newly identified scope leaked across passes: %v", res.ComboPicks)
	}
}

func TestMatchCombos_DistinctMatchesPerLeg(t *testing.T) {
	// both legs could match the same quote; a combo needs two distinct matches
	rule := combo("1.00", "20", leg("ALPHA", "", "1.00"), leg("GAMMA", "", "1.00"))
	f := newFixture(t, nil, []*models.ComboRule{rule})

	res := f.mon.ProcessEvent(snapshot(models.ToWinMatch,
		quote("Alpha", "Gamma", "2.00", "1.70"),
		quote("Delta", "Epsilon", "1.50", "2.60"),
	))

	if len(res.ComboPicks) != 0 {
		t.Errorf("one match satisfied two legs: %v", res.ComboPicks)
	}
}

func TestMatchCombos_DedupByPlayerSet(t *testing.T) {
	loose := combo("3.00", "loose", leg("ALPHA", "", "1.00"), leg("BETA", "", "1.00"))
	strict := combo("3.50", "strict", leg("BETA", "", "1.00"), leg("ALPHA", "", "1.00"))
	f := newFixture(t, nil, []*models.ComboRule{loose, strict})

	res := f.mon.ProcessEvent(snapshot(models.ToWinMatch,
		quote("Alpha", "Gamma", "2.00", "1.70"),
		quote("Beta", "Delta", "1.80", "2.10"),
	))

	if len(res.ComboPicks) != 1 {
		t.Fatalf("ComboPicks = %v, want one per player set", res.ComboPicks)
	}
	if res.ComboPicks[0].Rule != strict {
		t.Errorf("kept rule %q, want the 3.50 threshold rule", res.ComboPicks[0].Rule.BetValue)
	}
	if !loose.Consumed || !strict.Consumed {
		t.Errorf("every firing rule must be consumed: loose=%v strict=%v", loose.Consumed, strict.Consumed)
	}
	if f.rules.comboSaves != 1 {
		t.Errorf("combo saves = %d, want 1", f.rules.comboSaves)
	}
}

func TestMatchCombos_HandicapGate(t *testing.T) {
	rule := combo("1.00", "20", leg("ALPHA-", "", "1.00"), leg("BETA+", "", "1.00"))

	f := newFixture(t, nil, []*models.ComboRule{rule})
	res := f.mon.ProcessEvent(snapshot(models.ToWinMatch,
		quote("Alpha-1.5", "Gamma+1.5", "2.00", "1.70"),
		quote("Beta+2.5", "Delta-2.5", "1.80", "2.10"),
	))
	if len(res.ComboPicks) != 0 {
		t.Fatalf("handicap combo fired on a non-handicap event: %v", res.ComboPicks)
	}

	res = f.mon.ProcessEvent(models.EventSnapshot{
		Tournament: "Tournament A",
		Kind:       models.Handicaps,
		Matches: []models.MatchQuote{
			quote("Alpha-1.5", "Gamma+1.5", "2.00", "1.70"),
			quote("Beta+2.5", "Delta-2.5", "1.80", "2.10"),
		},
	})
	if len(res.ComboPicks) != 1 {
		t.Errorf("handicap combo did not fire on a handicap event: %v", res.ComboPicks)
	}
}

func TestMatchCombos_MaxStake(t *testing.T) {
	rule := combo("1.00", "MAX", leg("ALPHA", "", "1.00"), leg("BETA", "", "1.00"))
	f := newFixture(t, nil, []*models.ComboRule{rule})

	res := f.mon.ProcessEvent(snapshot(models.ToWinMatch,
		quote("Alpha", "Gamma", "2.00", "1.70"),
		quote("Beta", "Delta", "1.50", "2.10"),
	))

	if len(res.ComboPicks) != 1 {
		t.Fatalf("ComboPicks = %v", res.ComboPicks)
	}
	p := res.ComboPicks[0]
	// 2.00 * 1.50 = 3.00 -> 62.5
	if !p.MaxStake || !p.Stake.Equal(dec("62.5")) {
		t.Errorf("pick = %+v, want MAX stake 62.5", p)
	}
}

func TestMatchCombos_ConsumedRuleSkipped(t *testing.T) {
	rule := combo("1.00", "20", leg("ALPHA", "", "1.00"))
	rule.Consumed = true
	f := newFixture(t, nil, []*models.ComboRule{rule})

	res := f.mon.ProcessEvent(snapshot(models.ToWinMatch, quote("Alpha", "Gamma", "2.00", "1.70")))
	if len(res.ComboPicks) != 0 || f.rules.comboSaves != 0 {
		t.Errorf("consumed combo fired: %v", res.ComboPicks)
	}
}

func TestMatchCombos_ThreeLegsAmongFour(t *testing.T) {
	rule := combo("1.00", "20", leg("C", "", "1.00"), leg("A", "", "1.00"), leg("D", "", "1.00"))
	f := newFixture(t, nil, []*models.ComboRule{rule})

	res := f.mon.ProcessEvent(snapshot(models.ToWinMatch,
		quote("A", "X", "1.50", "2.50"),
		quote("B", "Y", "1.50", "2.50"),
		quote("C", "Z", "1.50", "2.50"),
		quote("D", "W", "1.50", "2.50"),
	))

	if len(res.ComboPicks) != 1 {
		t.Fatalf("ComboPicks = %v, want 1", res.ComboPicks)
	}
	if got := res.ComboPicks[0].Players(); !reflect.DeepEqual(got, []string{"C", "A", "D"}) {
		t.Errorf("players = %v", got)
	}
	if !res.ComboPicks[0].CombinedOdd.Equal(dec("3.375")) {
		t.Errorf("combined odd = %s, want 3.375", res.ComboPicks[0].CombinedOdd)
	}
}

func TestForEachCombination(t *testing.T) {
	var got []string
	forEachCombination(4, 2, func(sel []int) { got = append(got, fmt.Sprint(sel)) })
	want := []string{"[0 1]", "[0 2]", "[0 3]", "[1 2]", "[1 3]", "[2 3]"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("combinations = %v, want %v", got, want)
	}
}

func TestForEachPermutation(t *testing.T) {
	var got []string
	forEachPermutation([]int{3, 5, 7}, func(order []int) { got = append(got, fmt.Sprint(order)) })
	want := []string{"[3 5 7]", "[3 7 5]", "[5 3 7]", "[5 7 3]", "[7 3 5]", "[7 5 3]"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("permutations = %v, want %v", got, want)
	}
}
