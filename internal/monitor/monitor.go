package monitor

import (
	"github.com/rewired-gh/oddswatch/internal/logger"
	"github.com/rewired-gh/oddswatch/internal/models"
)

// SnapshotStore persists the last-known state of every event.
type SnapshotStore interface {
	Load() (map[models.EventKey]*models.EventRecord, error)
	Save(records map[models.EventKey]*models.EventRecord) error
}

// RuleStore persists the single-leg and combo rule catalogues.
type RuleStore interface {
	LoadSingleRules() ([]*models.SingleLegRule, error)
	SaveSingleRules(rules []*models.SingleLegRule) error
	LoadComboRules() ([]*models.ComboRule, error)
	SaveComboRules(rules []*models.ComboRule) error
}

// Alerter is the audible-alert hook invoked once per newly identified match.
type Alerter interface {
	Alert() error
}

// Monitor is the diff and rule-matching engine. It owns the persisted records and both
// rule catalogues and must be driven by a single goroutine.
type Monitor struct {
	snapshots SnapshotStore
	rules     RuleStore
	alerter   Alerter

	records map[models.EventKey]*models.EventRecord
	singles []*models.SingleLegRule
	combos  []*models.ComboRule
}

// Result is the outcome of one diff pass over one event snapshot.
type Result struct {
	Changes         []models.Change
	NewlyIdentified []models.MatchQuote
	HasChanges      bool
	// HasNewMatches is set when at least one match was newly identified; update messages
	// without new matches are sent silently.
	HasNewMatches bool

	Picks      []models.Pick
	ComboPicks []models.ComboPick
}

// New builds a Monitor and loads the persisted state. Load failures are logged and the
// corresponding state starts empty. alerter may be nil.
func New(snapshots SnapshotStore, rules RuleStore, alerter Alerter) *Monitor {
	m := &Monitor{
		snapshots: snapshots,
		rules:     rules,
		alerter:   alerter,
		records:   make(map[models.EventKey]*models.EventRecord),
	}

	if records, err := snapshots.Load(); err != nil {
		logger.Warn("Failed to load persisted snapshots: %v", err)
	} else if records != nil {
		m.records = records
		logger.Info("Loaded %d persisted events", len(records))
	}

	if singles, err := rules.LoadSingleRules(); err != nil {
		logger.Warn("Failed to load single bet rules: %v", err)
	} else {
		m.singles = singles
		logger.Info("Loaded %d single bet rules", len(singles))
	}

	if combos, err := rules.LoadComboRules(); err != nil {
		logger.Warn("Failed to load combo rules: %v", err)
	} else {
		m.combos = combos
		logger.Info("Loaded %d combo rules", len(combos))
	}

	return m
}

// ProcessEvent diffs snap against the persisted record for its key, evaluates newly identified
// matches against both rule catalogues and persists whatever changed.
func (m *Monitor) ProcessEvent(snap models.EventSnapshot) Result {
	var res Result
	key := snap.Key()
	record, exists := m.records[key]
	handicapEvent := snap.Kind.IsHandicap()

	for _, quote := range snap.Matches {
		kind, changed := classify(record, quote)
		if !changed {
			continue
		}

		res.Changes = append(res.Changes, models.Change{Kind: kind, Quote: quote})
		res.HasChanges = true
		if kind == models.ChangeOddsUpdated {
			logger.Debug("Odds updated in %s: %s", key, quote)
			continue
		}

		logger.Info("Newly identified match in %s (%s): %s", key, kind, quote)
		res.HasNewMatches = true
		res.NewlyIdentified = append(res.NewlyIdentified, quote)
		m.alert()
		res.Picks = append(res.Picks, m.matchSingle(quote, handicapEvent)...)
	}

	if len(res.NewlyIdentified) > 0 && m.hasActiveCombos() {
		res.ComboPicks = m.matchCombos(res.NewlyIdentified, handicapEvent)
	}

	switch {
	case !exists:
		m.records[key] = &models.EventRecord{
			Tournament: snap.Tournament,
			Kind:       snap.Kind,
			URL:        snap.SourceURL,
			Matches:    snap.Rows(),
		}
		res.HasChanges = true
		m.flushSnapshots()
	case res.HasChanges:
		record.Matches = snap.Rows()
		m.flushSnapshots()
	}

	return res
}

// classify compares quote to its persisted row. changed is false for unchanged matches.
func classify(record *models.EventRecord, quote models.MatchQuote) (models.ChangeKind, bool) {
	if record == nil {
		return models.ChangeNew, true
	}
	old, found := record.Find(quote)
	if !found {
		return models.ChangeNew, true
	}
	if old.Odd1() == quote.Odd1 && old.Odd2() == quote.Odd2 {
		return 0, false
	}
	if old.IsPlaceholder() {
		return models.ChangePlaceholderReleased, true
	}
	return models.ChangeOddsUpdated, true
}

func (m *Monitor) alert() {
	if m.alerter == nil {
		return
	}
	if err := m.alerter.Alert(); err != nil {
		logger.Warn("Audible alert failed: %v", err)
	}
}

// DropEvent removes the persisted record for key, used when its source link is broken.
func (m *Monitor) DropEvent(key models.EventKey) bool {
	if _, ok := m.records[key]; !ok {
		return false
	}
	delete(m.records, key)
	logger.Info("Dropped persisted event %s", key)
	m.flushSnapshots()
	return true
}

func (m *Monitor) record(key models.EventKey) (*models.EventRecord, bool) {
	r, ok := m.records[key]
	return r, ok
}

// RuleCounts summarizes both catalogues.
type RuleCounts struct {
	SingleActive, SingleConsumed int
	ComboActive, ComboConsumed   int
}

func (m *Monitor) RuleCounts() RuleCounts {
	var c RuleCounts
	for _, r := range m.singles {
		if r.Consumed {
			c.SingleConsumed++
		} else {
			c.SingleActive++
		}
	}
	for _, r := range m.combos {
		if r.Consumed {
			c.ComboConsumed++
		} else {
			c.ComboActive++
		}
	}
	return c
}

// ResetRules clears every consumed flag and flushes the catalogues that changed.
func (m *Monitor) ResetRules() (singles, combos int) {
	for _, r := range m.singles {
		if r.Consumed {
			r.Consumed = false
			singles++
		}
	}
	for _, r := range m.combos {
		if r.Consumed {
			r.Consumed = false
			combos++
		}
	}
	if singles > 0 {
		m.flushSingles()
	}
	if combos > 0 {
		m.flushCombos()
	}
	logger.Info("Reset %d single and %d combo rules", singles, combos)
	return singles, combos
}

func (m *Monitor) flushSnapshots() {
	if err := m.snapshots.Save(m.records); err != nil {
		logger.Error("Failed to persist snapshots: %v", err)
	}
}

func (m *Monitor) flushSingles() {
	if err := m.rules.SaveSingleRules(m.singles); err != nil {
		logger.Error("Failed to persist single bet rules: %v", err)
	}
}

func (m *Monitor) flushCombos() {
	if err := m.rules.SaveComboRules(m.combos); err != nil {
		logger.Error("Failed to persist combo rules: %v", err)
	}
}
