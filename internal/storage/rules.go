package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rewired-gh/oddswatch/internal/logger"
	"github.com/rewired-gh/oddswatch/internal/models"
)

// ErrMissingColumns is returned when a rule file lacks a required header column.
var ErrMissingColumns = errors.New("rule file is missing required columns")

// Column names of the rule files.
const (
	colPlayer          = "PlayerSubstring"
	colOpponent        = "OpponentSubstring"
	colThreshold       = "ThresholdOdd"
	colBetValue        = "BetValue"
	colSent            = "Sent"
	colPlayers         = "PlayerSubstrings"
	colOpponents       = "OpponentSubstrings"
	colMinOdds         = "MinOddsPerLeg"
	colCombinedOdd     = "CombinedThresholdOdd"
	legSeparator       = "#"
	defaultLegMinOdd   = "1.0"
	defaultCombinedOdd = "999.0"
)

var (
	singleHeader = []string{colPlayer, colOpponent, colThreshold, colBetValue, colSent}
	comboHeader  = []string{colPlayers, colOpponents, colMinOdds, colCombinedOdd, colBetValue, colSent}
)

// CSVRuleStore keeps the single-leg and combo catalogues in two hand-editable CSV files.
// Saves replace the files atomically.
type CSVRuleStore struct {
	singlePath string
	comboPath  string

	// comboExtra is the order of unknown combo columns seen on the last load.
	comboExtra []string
}

// NewCSVRuleStore returns a store over the given single and combo rule files.
func NewCSVRuleStore(singlePath, comboPath string) *CSVRuleStore {
	return &CSVRuleStore{singlePath: singlePath, comboPath: comboPath}
}

// LoadSingleRules reads the single-leg catalogue. A missing file is created with the
// default header and yields no rules.
func (s *CSVRuleStore) LoadSingleRules() ([]*models.SingleLegRule, error) {
	header, rows, err := readTable(s.singlePath, singleHeader)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, singleHeader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.singlePath, err)
	}

	rules := make([]*models.SingleLegRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, &models.SingleLegRule{
			PlayerSubstring:   strings.ToUpper(field(row, idx[colPlayer])),
			OpponentSubstring: strings.ToUpper(field(row, idx[colOpponent])),
			ThresholdOdd:      parseDecimal(field(row, idx[colThreshold]), decimal.Zero),
			BetValue:          field(row, idx[colBetValue]),
			Consumed:          parseSent(field(row, idx[colSent])),
		})
	}
	return rules, nil
}

// SaveSingleRules writes the single-leg catalogue.
func (s *CSVRuleStore) SaveSingleRules(rules []*models.SingleLegRule) error {
	records := [][]string{singleHeader}
	for _, r := range rules {
		records = append(records, []string{
			r.PlayerSubstring,
			r.OpponentSubstring,
			r.ThresholdOdd.StringFixed(2),
			r.BetValue,
			formatSent(r.Consumed),
		})
	}
	return writeTable(s.singlePath, records)
}

// LoadComboRules reads the combo catalogue. Rows whose leg lists disagree in length or
// contain an empty player substring are skipped with a warning.
func (s *CSVRuleStore) LoadComboRules() ([]*models.ComboRule, error) {
	header, rows, err := readTable(s.comboPath, comboHeader)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, comboHeader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.comboPath, err)
	}

	known := make(map[int]bool, len(comboHeader))
	for _, i := range idx {
		known[i] = true
	}
	s.comboExtra = s.comboExtra[:0]
	for i, name := range header {
		if !known[i] && strings.TrimSpace(name) != "" {
			s.comboExtra = append(s.comboExtra, name)
		}
	}

	var rules []*models.ComboRule
	for n, row := range rows {
		line := n + 2
		rule, err := parseComboRow(row, idx)
		if err != nil {
			logger.Warn("Skipping combo rule on line %d: %v", line, err)
			continue
		}
		for i, name := range header {
			if known[i] || strings.TrimSpace(name) == "" {
				continue
			}
			if rule.Extra == nil {
				rule.Extra = make(map[string]string)
			}
			rule.Extra[name] = field(row, i)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parseComboRow(row []string, idx map[string]int) (*models.ComboRule, error) {
	players := strings.Split(field(row, idx[colPlayers]), legSeparator)
	opponents := strings.Split(field(row, idx[colOpponents]), legSeparator)
	minOdds := strings.Split(field(row, idx[colMinOdds]), legSeparator)

	if len(opponents) != len(players) {
		return nil, fmt.Errorf("%d opponent substrings for %d legs", len(opponents), len(players))
	}
	if len(minOdds) != len(players) {
		return nil, fmt.Errorf("%d minimum odds for %d legs", len(minOdds), len(players))
	}

	legs := make([]models.ComboRuleLeg, len(players))
	for i, p := range players {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			return nil, fmt.Errorf("leg %d has an empty player substring", i+1)
		}
		legs[i] = models.ComboRuleLeg{
			PlayerSubstring:   p,
			OpponentSubstring: strings.ToUpper(strings.TrimSpace(opponents[i])),
			MinOdd:            parseDecimal(minOdds[i], decimal.RequireFromString(defaultLegMinOdd)),
		}
	}

	return &models.ComboRule{
		Legs:                 legs,
		CombinedThresholdOdd: parseDecimal(field(row, idx[colCombinedOdd]), decimal.RequireFromString(defaultCombinedOdd)),
		BetValue:             field(row, idx[colBetValue]),
		Consumed:             parseSent(field(row, idx[colSent])),
	}, nil
}

// SaveComboRules writes the combo catalogue, preserving columns it does not interpret.
func (s *CSVRuleStore) SaveComboRules(rules []*models.ComboRule) error {
	extra := append([]string(nil), s.comboExtra...)
	seen := make(map[string]bool, len(extra))
	for _, name := range extra {
		seen[name] = true
	}
	var added []string
	for _, r := range rules {
		for name := range r.Extra {
			if !seen[name] {
				seen[name] = true
				added = append(added, name)
			}
		}
	}
	sort.Strings(added)
	extra = append(extra, added...)

	header := append(append([]string(nil), comboHeader...), extra...)
	records := [][]string{header}
	for _, r := range rules {
		players := make([]string, len(r.Legs))
		opponents := make([]string, len(r.Legs))
		minOdds := make([]string, len(r.Legs))
		for i, l := range r.Legs {
			players[i] = l.PlayerSubstring
			opponents[i] = l.OpponentSubstring
			minOdds[i] = l.MinOdd.StringFixed(2)
		}
		rec := []string{
			strings.Join(players, legSeparator),
			strings.Join(opponents, legSeparator),
			strings.Join(minOdds, legSeparator),
			r.CombinedThresholdOdd.StringFixed(2),
			r.BetValue,
			formatSent(r.Consumed),
		}
		for _, name := range extra {
			rec = append(rec, r.Extra[name])
		}
		records = append(records, rec)
	}
	return writeTable(s.comboPath, records)
}

// readTable reads a CSV file and splits off its header. A missing file is created
// holding only defaultHeader.
func readTable(path string, defaultHeader []string) ([]string, [][]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := writeTable(path, [][]string{defaultHeader}); err != nil {
			return nil, nil, err
		}
		return defaultHeader, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return defaultHeader, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var kept [][]string
	for _, row := range rows {
		if !blankRow(row) {
			kept = append(kept, row)
		}
	}
	return header, kept, nil
}

func writeTable(path string, records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// columnIndex maps each required column to its position, matching names case-insensitively.
func columnIndex(header, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(required))
	for _, want := range required {
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), want) {
				idx[want] = i
				break
			}
		}
	}
	var missing []string
	for _, want := range required {
		if _, ok := idx[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return idx, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseDecimal(s string, fallback decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return d
}

func parseSent(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && n != 0
}

func formatSent(consumed bool) string {
	if consumed {
		return "1"
	}
	return "0"
}
