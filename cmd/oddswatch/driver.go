package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/oddswatch/internal/compose"
	"github.com/rewired-gh/oddswatch/internal/feed"
	"github.com/rewired-gh/oddswatch/internal/logger"
	"github.com/rewired-gh/oddswatch/internal/models"
	"github.com/rewired-gh/oddswatch/internal/monitor"
	"github.com/rewired-gh/oddswatch/internal/telegram"
)

const defaultRecentPicks = 10

type eventSource interface {
	FetchEvents(ctx context.Context, includeHandicaps bool) (feed.Batch, error)
}

// sink delivers rendered payloads. Implemented by *telegram.Client.
type sink interface {
	Send(text string, silent bool) error
	Broadcast(text string) error
	SendError(cycleErr error) error
	SendRecovery(failureCount int) error
}

type pickLog interface {
	RecordPicks(key models.EventKey, picks []models.Pick, combos []models.ComboPick) error
	RecentPicks(k int) ([]models.PickRecord, error)
}

// driver is the single goroutine that feeds snapshots to the engine, dispatches the
// resulting messages and executes bot commands between cycles.
type driver struct {
	source eventSource
	mon    *monitor.Monitor
	sink   sink    // nil when Telegram is disabled
	picks  pickLog // nil when the pick log is disabled

	handicapEvery       int
	cycle               int
	consecutiveFailures int
}

// runCycle fetches one batch of snapshots and runs every snapshot through the engine.
// Handicap events are polled every handicapEvery cycles.
func (d *driver) runCycle(ctx context.Context) error {
	startTime := time.Now()
	d.cycle++
	includeHandicaps := d.handicapEvery <= 1 || d.cycle%d.handicapEvery == 0
	logger.Info("Starting monitoring cycle %d (handicaps: %v)", d.cycle, includeHandicaps)

	batch, err := d.source.FetchEvents(ctx, includeHandicaps)
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}
	logger.Info("Fetched %d events (%d broken)", len(batch.Snapshots), len(batch.Broken))

	for _, key := range batch.Broken {
		if d.mon.DropEvent(key) {
			logger.Warn("Removed event %s: source link is broken", key)
		}
	}

	var changed, newMatches, picks int
	for _, snap := range batch.Snapshots {
		res := d.mon.ProcessEvent(snap)
		if len(res.Changes) > 0 {
			changed++
		}
		newMatches += len(res.NewlyIdentified)
		picks += len(res.Picks) + len(res.ComboPicks)
		d.dispatch(snap, res)
	}

	logger.Info("Monitoring cycle completed in %v: %d events changed, %d new matches, %d picks",
		time.Since(startTime), changed, newMatches, picks)
	return nil
}

// dispatch delivers the update and picks payloads of one event. Delivery failures are
// logged and never affect engine state.
func (d *driver) dispatch(snap models.EventSnapshot, res monitor.Result) {
	update := compose.UpdateMessage(snap, res.Changes)
	picks := compose.PicksMessage(snap, res.Picks, res.ComboPicks)

	if d.sink != nil && update != "" {
		if err := d.sink.Send(update, !res.HasNewMatches); err != nil {
			logger.Error("Failed to send update for %s: %v", snap.Key(), err)
		}
	}
	if d.sink != nil && picks != "" {
		if err := d.sink.Broadcast(picks); err != nil {
			logger.Error("Failed to broadcast picks for %s: %v", snap.Key(), err)
		} else {
			logger.Info("Broadcast %d picks for %s", len(res.Picks)+len(res.ComboPicks), snap.Key())
		}
	}

	if d.picks != nil {
		if err := d.picks.RecordPicks(snap.Key(), res.Picks, res.ComboPicks); err != nil {
			logger.Warn("Failed to record picks for %s: %v", snap.Key(), err)
		}
	}
}

func (d *driver) handleCycleResult(err error) {
	if err != nil {
		d.consecutiveFailures++
		logger.Error("Monitoring cycle failed: %v", err)
		if d.consecutiveFailures == 1 && d.sink != nil {
			if sendErr := d.sink.SendError(err); sendErr != nil {
				logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
			}
		}
		return
	}
	if d.consecutiveFailures > 0 && d.sink != nil {
		if sendErr := d.sink.SendRecovery(d.consecutiveFailures); sendErr != nil {
			logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
		}
	}
	d.consecutiveFailures = 0
}

// handleCommand executes a bot command on the engine and returns the plain-text reply.
func (d *driver) handleCommand(cmd telegram.Command) string {
	logger.Info("Executing /%s from chat %d", cmd.Name, cmd.ChatID)

	switch cmd.Name {
	case telegram.CommandRules:
		c := d.mon.RuleCounts()
		return fmt.Sprintf("Single rules: %d active, %d consumed\nCombo rules: %d active, %d consumed",
			c.SingleActive, c.SingleConsumed, c.ComboActive, c.ComboConsumed)

	case telegram.CommandReset:
		singles, combos := d.mon.ResetRules()
		return fmt.Sprintf("Reset %d single and %d combo rules", singles, combos)

	case telegram.CommandPicks:
		if d.picks == nil {
			return "Pick log is disabled"
		}
		k := defaultRecentPicks
		if n, err := strconv.Atoi(strings.TrimSpace(cmd.Args)); err == nil && n > 0 {
			k = n
		}
		recent, err := d.picks.RecentPicks(k)
		if err != nil {
			logger.Error("Failed to read pick log: %v", err)
			return "Failed to read pick log"
		}
		if len(recent) == 0 {
			return "No picks recorded yet"
		}
		lines := make([]string, len(recent))
		for i, r := range recent {
			lines[i] = r.String()
		}
		return strings.Join(lines, "\n")
	}
	return "Unknown command"
}
