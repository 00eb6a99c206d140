// Package run orchestrates a single poll run: reconcile, scan, deliver,
// and conditionally commit.
package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tnagatomi/octonotify/internal/log"
	"github.com/tnagatomi/octonotify/internal/model"
	"github.com/tnagatomi/octonotify/internal/notify"
	"github.com/tnagatomi/octonotify/internal/scan"
	"github.com/tnagatomi/octonotify/internal/state"
)

// Runner sequences one run against the progress store.
type Runner struct {
	store    *state.Store
	scanner  *scan.Scanner
	notifier notify.Notifier

	// DryRun surfaces events through the notifier but never commits scan
	// mutations. Reconciliation and run metadata still persist.
	DryRun bool

	now func() time.Time
}

// New creates a runner.
func New(store *state.Store, scanner *scan.Scanner, notifier notify.Notifier) *Runner {
	return &Runner{
		store:    store,
		scanner:  scanner,
		notifier: notifier,
		now:      time.Now,
	}
}

// Run performs one full run. Delivery failures degrade the run to
// partial_failure without failing the process; scan and store errors are
// fatal for this invocation but the store is still saved with its run
// metadata so reconciliation results are never lost.
func (r *Runner) Run(ctx context.Context, watch []model.WatchedItem) error {
	start := r.now().UTC()
	r.store.BeginRun(start)

	added, removed := r.store.Reconcile(watch, start)
	log.Info("reconciled watch list", "watched", len(watch), "added", added, "removed", removed)

	res, err := r.scanner.Run(ctx, watch)
	if err != nil {
		r.store.FinishRun(state.RunError, -1)
		if saveErr := r.store.Save(); saveErr != nil {
			log.Error("failed to save state after scan error", "error", saveErr)
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	status := state.RunSuccess
	if res.Incomplete {
		status = state.RunIncomplete
	}

	commit := !r.DryRun
	if len(res.Events) > 0 {
		if err := r.notifier.Deliver(ctx, res.Events); err != nil {
			// Not committing keeps every undelivered event eligible for
			// rediscovery next run: at-least-once delivery.
			commit = false
			status = state.RunPartialFailure

			var dErr *notify.DeliveryError
			if errors.As(err, &dErr) {
				log.Warn("delivery failed, scan progress not committed", "failed_targets", dErr.Failed)
			} else {
				log.Warn("delivery failed, scan progress not committed", "error", err)
			}
		}
	}

	if commit {
		for _, m := range res.Mutations {
			if err := r.store.Commit(m); err != nil {
				r.store.FinishRun(state.RunError, res.RateRemaining)
				if saveErr := r.store.Save(); saveErr != nil {
					log.Error("failed to save state after commit error", "error", saveErr)
				}
				return fmt.Errorf("failed to commit scan progress: %w", err)
			}
		}
	}

	r.store.FinishRun(status, res.RateRemaining)
	if err := r.store.Save(); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	log.Info("run finished", "status", status, "events", len(res.Events), "rate_remaining", res.RateRemaining)
	return nil
}
