// Package stake sizes maximum-stake bets from a curated odds table that keeps the payout constant.
package stake

import (
	"sort"

	"github.com/shopspring/decimal"
)

type entry struct {
	odds  decimal.Decimal
	stake decimal.Decimal
}

// table is sorted by odds ascending.
var table = mustTable([][2]string{
	{"1.2", "625.0"}, {"1.22", "568.182"}, {"1.25", "500.0"}, {"1.28", "446.429"},
	{"1.3", "416.667"}, {"1.33", "378.788"}, {"1.36", "347.222"}, {"1.4", "312.5"},
	{"1.44", "284.091"}, {"1.5", "250.0"}, {"1.53", "235.849"}, {"1.57", "219.298"},
	{"1.61", "204.918"}, {"1.66", "189.394"}, {"1.72", "173.611"}, {"1.8", "156.25"},
	{"1.83", "150.602"}, {"1.9", "138.889"}, {"2.0", "125.0"}, {"2.1", "113.636"},
	{"2.25", "100.0"}, {"2.37", "91.241"}, {"2.5", "83.333"}, {"2.62", "77.16"},
	{"2.75", "71.429"}, {"3.0", "62.5"}, {"3.25", "55.556"}, {"3.4", "52.083"},
	{"3.75", "45.455"}, {"4.0", "41.667"}, {"4.33", "37.538"}, {"4.5", "35.714"},
	{"5.0", "31.25"}, {"5.5", "27.778"}, {"6.0", "25.0"}, {"6.5", "22.727"},
	{"7.0", "20.833"}, {"8.5", "16.667"}, {"9.0", "15.625"}, {"11.0", "12.5"},
})

func mustTable(pairs [][2]string) []entry {
	t := make([]entry, len(pairs))
	for i, p := range pairs {
		t[i] = entry{odds: decimal.RequireFromString(p[0]), stake: decimal.RequireFromString(p[1])}
	}
	sort.Slice(t, func(i, j int) bool { return t[i].odds.LessThan(t[j].odds) })
	return t
}

// Stake returns the suggested maximum stake for odds.
//
// Below the smallest key it returns the stake of the largest key and above the largest key
// the stake of the smallest key, mirroring the table's own edge behavior. In between it uses
// the largest key <= odds.
func Stake(odds decimal.Decimal) decimal.Decimal {
	first, last := table[0], table[len(table)-1]
	if odds.LessThan(first.odds) {
		return maxStake()
	}
	if odds.GreaterThan(last.odds) {
		return minStake()
	}
	// first index whose odds exceed the input; its predecessor is the floor
	i := sort.Search(len(table), func(i int) bool { return table[i].odds.GreaterThan(odds) })
	return table[i-1].stake
}

func maxStake() decimal.Decimal {
	m := table[0].stake
	for _, e := range table[1:] {
		m = decimal.Max(m, e.stake)
	}
	return m
}

func minStake() decimal.Decimal {
	m := table[0].stake
	for _, e := range table[1:] {
		m = decimal.Min(m, e.stake)
	}
	return m
}
