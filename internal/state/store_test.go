package state

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/tnagatomi/octonotify/internal/constants"
	"github.com/tnagatomi/octonotify/internal/model"
)

var (
	itemRelease = model.WatchedItem{Repo: "cli/cli", Kind: model.KindRelease}
	itemIssue   = model.WatchedItem{Repo: "cli/cli", Kind: model.KindIssue}
	itemOther   = model.WatchedItem{Repo: "golang/go", Kind: model.KindRelease}
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStoreWithPath(filepath.Join(t.TempDir(), "state.json"))
}

func TestReconcileCreatesRecords(t *testing.T) {
	s := newTestStore(t)
	baseline := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	added, removed := s.Reconcile([]model.WatchedItem{itemRelease, itemIssue}, baseline)
	if added != 2 || removed != 0 {
		t.Fatalf("expected 2 added, 0 removed, got %d/%d", added, removed)
	}

	rec, err := s.Get(itemRelease)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.BaselineTime.Equal(baseline) {
		t.Errorf("expected baseline %v, got %v", baseline, rec.BaselineTime)
	}
	if !rec.WatermarkTime.Equal(baseline) {
		t.Errorf("expected watermark %v, got %v", baseline, rec.WatermarkTime)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	baseline := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	s.Reconcile([]model.WatchedItem{itemRelease}, baseline)

	// A later reconcile must not move the baseline
	later := baseline.Add(time.Hour)
	added, removed := s.Reconcile([]model.WatchedItem{itemRelease}, later)
	if added != 0 || removed != 0 {
		t.Fatalf("expected no changes, got %d added, %d removed", added, removed)
	}

	rec, err := s.Get(itemRelease)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.BaselineTime.Equal(baseline) {
		t.Errorf("baseline moved from %v to %v", baseline, rec.BaselineTime)
	}
}

func TestReconcileRemovesUnwatched(t *testing.T) {
	s := newTestStore(t)
	baseline := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	s.Reconcile([]model.WatchedItem{itemRelease, itemIssue, itemOther}, baseline)

	added, removed := s.Reconcile([]model.WatchedItem{itemIssue}, baseline.Add(time.Hour))
	if added != 0 || removed != 2 {
		t.Fatalf("expected 0 added, 2 removed, got %d/%d", added, removed)
	}

	if _, err := s.Get(itemRelease); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for removed item, got %v", err)
	}
	if _, err := s.Get(itemOther); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for removed repo, got %v", err)
	}
	if _, err := s.Get(itemIssue); err != nil {
		t.Errorf("still-watched item should remain: %v", err)
	}
}

func TestGetWithoutReconcile(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get(itemRelease); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCommitAdvanceWatermark(t *testing.T) {
	s := newTestStore(t)
	baseline := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	s.Reconcile([]model.WatchedItem{itemRelease}, baseline)

	// Leave the record interrupted first
	if err := s.Commit(SetResumeCursor(itemRelease, "3", ReasonRateLimit)); err != nil {
		t.Fatal(err)
	}
	rec, _ := s.Get(itemRelease)
	if !rec.Incomplete || rec.ResumeCursor != "3" || rec.Reason != ReasonRateLimit {
		t.Fatalf("expected interrupted record, got %+v", rec)
	}

	to := baseline.Add(2 * time.Hour)
	if err := s.Commit(AdvanceWatermark(itemRelease, to)); err != nil {
		t.Fatal(err)
	}

	rec, _ = s.Get(itemRelease)
	if !rec.WatermarkTime.Equal(to) {
		t.Errorf("expected watermark %v, got %v", to, rec.WatermarkTime)
	}
	if rec.Incomplete || rec.ResumeCursor != "" || rec.Reason != "" {
		t.Errorf("advance should clear interruption state, got %+v", rec)
	}
	if rec.LastSuccessAt == nil {
		t.Error("expected last success to be stamped")
	}
	if rec.WatermarkTime.Before(rec.BaselineTime) {
		t.Error("watermark must never drop below baseline")
	}
}

func TestCommitWatermarkNeverDecreases(t *testing.T) {
	s := newTestStore(t)
	baseline := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	s.Reconcile([]model.WatchedItem{itemRelease}, baseline)

	if err := s.Commit(AdvanceWatermark(itemRelease, baseline.Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}

	rec, _ := s.Get(itemRelease)
	if !rec.WatermarkTime.Equal(baseline) {
		t.Errorf("watermark regressed to %v", rec.WatermarkTime)
	}
}

func TestCommitAppendNotifiedFIFO(t *testing.T) {
	s := newTestStore(t)
	baseline := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	s.Reconcile([]model.WatchedItem{itemRelease}, baseline)

	var ids []string
	for i := range constants.DedupCapacity + 10 {
		ids = append(ids, fmt.Sprintf("id-%d", i))
	}
	if err := s.Commit(AppendNotified(itemRelease, ids)); err != nil {
		t.Fatal(err)
	}

	rec, _ := s.Get(itemRelease)
	if len(rec.RecentlyNotifiedIDs) != constants.DedupCapacity {
		t.Fatalf("expected %d ids, got %d", constants.DedupCapacity, len(rec.RecentlyNotifiedIDs))
	}
	// Oldest entries evicted first
	if rec.RecentlyNotifiedIDs[0] != "id-10" {
		t.Errorf("expected oldest surviving id-10, got %s", rec.RecentlyNotifiedIDs[0])
	}
	if rec.RecentlyNotifiedIDs[len(rec.RecentlyNotifiedIDs)-1] != fmt.Sprintf("id-%d", constants.DedupCapacity+9) {
		t.Errorf("unexpected newest id %s", rec.RecentlyNotifiedIDs[len(rec.RecentlyNotifiedIDs)-1])
	}
}

func TestCommitUnknownRecord(t *testing.T) {
	s := newTestStore(t)

	err := s.Commit(AdvanceWatermark(itemRelease, time.Now()))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	baseline := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	s.Reconcile([]model.WatchedItem{itemRelease}, baseline)
	if err := s.Commit(AppendNotified(itemRelease, []string{"a"})); err != nil {
		t.Fatal(err)
	}

	rec, _ := s.Get(itemRelease)
	rec.RecentlyNotifiedIDs[0] = "mutated"
	rec.WatermarkTime = rec.WatermarkTime.Add(time.Hour)

	fresh, _ := s.Get(itemRelease)
	if fresh.RecentlyNotifiedIDs[0] != "a" {
		t.Error("caller mutation leaked into store")
	}
	if !fresh.WatermarkTime.Equal(baseline) {
		t.Error("caller mutation of watermark leaked into store")
	}
}

func TestRunRecordLifecycle(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	s.BeginRun(start)
	last := s.LastRun()
	if last == nil || last.Status != RunRunning {
		t.Fatalf("expected running record, got %+v", last)
	}
	if last.RateLimit != -1 {
		t.Errorf("expected rate budget -1 before observation, got %d", last.RateLimit)
	}

	s.FinishRun(RunIncomplete, 42)
	last = s.LastRun()
	if last.Status != RunIncomplete || last.RateLimit != 42 {
		t.Fatalf("unexpected finished record: %+v", last)
	}
	if last.FinishedAt.IsZero() {
		t.Error("expected finished time to be set")
	}
}

func TestRecordsSorted(t *testing.T) {
	s := newTestStore(t)
	baseline := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	s.Reconcile([]model.WatchedItem{itemOther, itemIssue, itemRelease}, baseline)

	infos := s.Records()
	if len(infos) != 3 {
		t.Fatalf("expected 3 records, got %d", len(infos))
	}
	if infos[0].Item != itemIssue || infos[1].Item != itemRelease || infos[2].Item != itemOther {
		t.Errorf("unexpected order: %v %v %v", infos[0].Item, infos[1].Item, infos[2].Item)
	}
}
