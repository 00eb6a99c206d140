// Package scan implements the incremental page-by-page survey of watched
// repositories. The scanner reads progress records but never writes them:
// every state change it wants is returned as a proposed mutation for the
// orchestrator to commit after delivery succeeds.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/tnagatomi/octonotify/internal/constants"
	"github.com/tnagatomi/octonotify/internal/log"
	"github.com/tnagatomi/octonotify/internal/model"
	"github.com/tnagatomi/octonotify/internal/state"
)

// Scanner drives the fetch/halt/dedup algorithm across the watch list.
type Scanner struct {
	store    *state.Store
	sources  SourceFactory
	lookback time.Duration
}

// New creates a scanner. A zero lookback selects the default window.
func New(store *state.Store, sources SourceFactory, lookback time.Duration) *Scanner {
	if lookback <= 0 {
		lookback = constants.LookbackWindow
	}
	return &Scanner{
		store:    store,
		sources:  sources,
		lookback: lookback,
	}
}

// Result is the outcome of scanning the watch list.
type Result struct {
	// Events are the newly discovered items, in watch-list order.
	Events []model.Event

	// Mutations are the proposed state changes, not yet applied.
	Mutations []state.Mutation

	// Incomplete is set when the rate budget ran out before every watched
	// item was fully scanned. Unscanned items are retried next run.
	Incomplete bool

	// RateRemaining is the last observed rate budget, -1 if none was seen.
	RateRemaining int
}

// Run scans every watched item in order, stopping for the rest of the run
// if the upstream rate budget drops below the low-water mark.
func (s *Scanner) Run(ctx context.Context, items []model.WatchedItem) (*Result, error) {
	res := &Result{RateRemaining: -1}

	for i, item := range items {
		rec, err := s.store.Get(item)
		if err != nil {
			return nil, err
		}

		ir, err := s.scanItem(ctx, item, rec)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", item, err)
		}

		res.Events = append(res.Events, ir.events...)
		res.Mutations = append(res.Mutations, ir.mutations...)
		if ir.rateRemaining >= 0 {
			res.RateRemaining = ir.rateRemaining
		}

		if ir.interrupted {
			res.Incomplete = true
			log.Info("rate budget low, stopping scan", "remaining", ir.rateRemaining, "unscanned", len(items)-i-1)
			break
		}
		if ir.rateRemaining >= 0 && ir.rateRemaining < constants.RateLimitLowWatermark {
			if i < len(items)-1 {
				res.Incomplete = true
				log.Info("rate budget low, stopping scan", "remaining", ir.rateRemaining, "unscanned", len(items)-i-1)
			}
			break
		}
	}

	return res, nil
}

// itemResult is the outcome of scanning a single watched item.
type itemResult struct {
	events        []model.Event
	mutations     []state.Mutation
	interrupted   bool
	rateRemaining int
}

func (s *Scanner) scanItem(ctx context.Context, item model.WatchedItem, rec state.Record) (*itemResult, error) {
	// The threshold is the watermark minus the lookback window, clamped to
	// the baseline so a newly watched item never backfills history.
	threshold := rec.WatermarkTime.Add(-s.lookback)
	if threshold.Before(rec.BaselineTime) {
		threshold = rec.BaselineTime
	}

	notified := make(map[string]struct{}, len(rec.RecentlyNotifiedIDs))
	for _, id := range rec.RecentlyNotifiedIDs {
		notified[id] = struct{}{}
	}

	ir := &itemResult{rateRemaining: -1}
	src := s.sources.Source(item)
	cursor := rec.ResumeCursor

	var surfacedIDs []string
	var maxSeen time.Time

	for {
		page, err := src.Fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		ir.rateRemaining = page.RateRemaining

		halted := false
		for _, ev := range page.Events {
			if ev.Timestamp.IsZero() {
				continue
			}
			// The candidate watermark tracks how far we surveyed, even
			// for events the threshold excludes from notification.
			if ev.Timestamp.After(maxSeen) {
				maxSeen = ev.Timestamp
			}
			if ev.Timestamp.Before(threshold) {
				// Events arrive newest first, so the rest of the page
				// is older still.
				halted = true
				break
			}
			if _, dup := notified[ev.ID]; dup {
				continue
			}
			notified[ev.ID] = struct{}{}
			ir.events = append(ir.events, ev)
			surfacedIDs = append(surfacedIDs, ev.ID)
		}

		if halted || !page.HasMore {
			break
		}
		if page.RateRemaining < constants.RateLimitLowWatermark {
			// Keep what was surfaced so far, but save a cursor instead of
			// a watermark: progress must not be marked falsely complete.
			if len(surfacedIDs) > 0 {
				ir.mutations = append(ir.mutations, state.AppendNotified(item, surfacedIDs))
			}
			ir.mutations = append(ir.mutations, state.SetResumeCursor(item, page.NextCursor, state.ReasonRateLimit))
			ir.interrupted = true
			log.Debug("scan interrupted", "item", item.String(), "surfaced", len(surfacedIDs), "remaining", page.RateRemaining)
			return ir, nil
		}
		cursor = page.NextCursor
	}

	if len(surfacedIDs) > 0 {
		ir.mutations = append(ir.mutations, state.AppendNotified(item, surfacedIDs))
	}
	if !maxSeen.IsZero() {
		ir.mutations = append(ir.mutations, state.AdvanceWatermark(item, maxSeen))
	}
	log.Debug("scanned item", "item", item.String(), "surfaced", len(surfacedIDs))
	return ir, nil
}
