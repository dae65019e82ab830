// Package feed fetches event snapshots from an HTTP JSON source.
//
// The source lists every visible event with its localized label and priced matches.
// The client translates labels, drops live and unpriced matches, applies the ignore
// lists and returns snapshots ready for the engine.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rewired-gh/oddswatch/internal/logger"
	"github.com/rewired-gh/oddswatch/internal/models"
)

// ErrServer is returned when the source keeps answering with 5xx responses.
var ErrServer = errors.New("feed server error")

// Client provides access to the snapshot feed.
type Client struct {
	url            string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
	filter         Filter
}

// Filter selects which events and matches reach the engine.
type Filter struct {
	Language          string
	IgnoreTournaments []string
	IgnoreHandicaps   bool
}

// Batch is the result of one fetch.
type Batch struct {
	Snapshots []models.EventSnapshot
	// Broken lists events whose source link no longer resolves.
	Broken []models.EventKey
}

type feedResponse struct {
	Events []feedEvent `json:"events"`
}

type feedEvent struct {
	Tournament string      `json:"tournament"`
	Event      string      `json:"event"`
	URL        string      `json:"url"`
	DateLabel  string      `json:"date_label"`
	Broken     bool        `json:"broken"`
	Matches    []feedMatch `json:"matches"`
}

type feedMatch struct {
	Player1   string `json:"player1"`
	Player2   string `json:"player2"`
	Odd1      string `json:"odd1"`
	Odd2      string `json:"odd2"`
	StartTime string `json:"start_time"`
	Live      bool   `json:"live"`
}

// NewClient creates a new feed client.
func NewClient(url string, timeout time.Duration, maxRetries int, retryDelayBase time.Duration, filter Filter) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		url:            url,
		httpClient:     &http.Client{Timeout: timeout},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		filter:         filter,
	}
}

// FetchEvents retrieves the current snapshots. Handicap events are included only when
// includeHandicaps is set and the filter does not ignore them.
func (c *Client) FetchEvents(ctx context.Context, includeHandicaps bool) (Batch, error) {
	body, err := c.doRequest(ctx, c.url)
	if err != nil {
		return Batch{}, fmt.Errorf("failed to fetch events: %w", err)
	}

	var resp feedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Batch{}, fmt.Errorf("failed to decode events: %w", err)
	}

	ignored := make(map[string]bool, len(c.filter.IgnoreTournaments))
	for _, t := range c.filter.IgnoreTournaments {
		ignored[strings.TrimSpace(t)] = true
	}

	var batch Batch
	for _, fe := range resp.Events {
		tournament := strings.TrimSpace(fe.Tournament)
		if ignored[tournament] {
			continue
		}
		kind, keep := TranslateEventLabel(fe.Event, c.filter.Language)
		if !keep {
			continue
		}
		if kind.IsHandicap() && (c.filter.IgnoreHandicaps || !includeHandicaps) {
			continue
		}

		if fe.Broken {
			batch.Broken = append(batch.Broken, models.EventKey{Tournament: tournament, Kind: kind})
			continue
		}

		snap := models.EventSnapshot{
			Tournament: tournament,
			Kind:       kind,
			SourceURL:  fe.URL,
			Matches:    buildMatches(fe),
		}
		if err := snap.Validate(); err != nil {
			logger.Warn("Skipping event %q: %v", fe.Tournament, err)
			continue
		}
		batch.Snapshots = append(batch.Snapshots, snap)
	}
	return batch, nil
}

// buildMatches drops live and unpriced matches and prefixes start times with the event date.
func buildMatches(fe feedEvent) []models.MatchQuote {
	date, hasDate := ParseCzechDate(fe.DateLabel)

	matches := make([]models.MatchQuote, 0, len(fe.Matches))
	for _, m := range fe.Matches {
		if m.Live {
			continue
		}
		q := models.MatchQuote{
			Player1:   strings.TrimSpace(m.Player1),
			Player2:   strings.TrimSpace(m.Player2),
			Odd1:      strings.TrimSpace(m.Odd1),
			Odd2:      strings.TrimSpace(m.Odd2),
			StartTime: strings.TrimSpace(m.StartTime),
		}
		if q.Player1 == "" || q.Player2 == "" || q.Odd1 == "" || q.Odd2 == "" {
			continue
		}
		if hasDate {
			q.StartTime = strings.TrimSpace(date + " " + q.StartTime)
		}
		matches = append(matches, q)
	}
	return matches
}

// doRequest performs an HTTP GET with linear-backoff retry on transport errors and 5xx.
func (c *Client) doRequest(ctx context.Context, urlStr string) ([]byte, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelayBase * time.Duration(i)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%w: %d", ErrServer, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
