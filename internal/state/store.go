// Package state persists per-watched-item scan progress between runs.
//
// The store holds one Record per (repository, event kind) pair plus the
// metadata of the most recent run. Records are created and removed by
// Reconcile, and mutated only through Commit so that the orchestrator can
// gate all scan-derived changes on delivery success.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tnagatomi/octonotify/internal/constants"
	"github.com/tnagatomi/octonotify/internal/log"
	"github.com/tnagatomi/octonotify/internal/model"
)

// ErrNotFound is returned by Get when no record exists for a watched item.
// Reconcile runs before every scan, so hitting this indicates a logic defect
// rather than a recoverable condition.
var ErrNotFound = errors.New("no progress record for watched item")

// ReasonRateLimit marks records interrupted because the upstream rate budget
// dropped below the low-water mark.
const ReasonRateLimit = "rate limit"

// Record tracks scan progress for one watched (repository, event kind) pair.
type Record struct {
	// BaselineTime is fixed when the item first appears in the watch list
	// and never changes afterward. Events older than it are never surfaced.
	BaselineTime time.Time `json:"baseline_time"`

	// WatermarkTime is the instant up to which the upstream has been fully
	// surveyed. It never decreases and starts equal to BaselineTime.
	WatermarkTime time.Time `json:"watermark_time"`

	// ResumeCursor is the pagination token saved when a scan was cut short,
	// empty once a scan completes fully.
	ResumeCursor string `json:"resume_cursor,omitempty"`

	// RecentlyNotifiedIDs is a bounded FIFO of already-surfaced identifiers,
	// the primary duplicate guard. Timestamps alone are not a reliable
	// uniqueness key upstream.
	RecentlyNotifiedIDs []string `json:"recently_notified_ids"`

	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	Incomplete    bool       `json:"incomplete,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// clone returns a deep copy so callers cannot mutate stored state directly.
func (r *Record) clone() Record {
	c := *r
	c.RecentlyNotifiedIDs = append([]string(nil), r.RecentlyNotifiedIDs...)
	if r.LastSuccessAt != nil {
		t := *r.LastSuccessAt
		c.LastSuccessAt = &t
	}
	return c
}

// RepoState groups the per-kind records of one repository.
type RepoState struct {
	URL    string                      `json:"url"`
	Events map[model.EventKind]*Record `json:"events"`
}

// RunStatus is the outcome of a single run.
type RunStatus string

const (
	RunRunning        RunStatus = "running"
	RunSuccess        RunStatus = "success"
	RunIncomplete     RunStatus = "incomplete"
	RunPartialFailure RunStatus = "partial_failure"
	RunError          RunStatus = "error"
)

// RunRecord captures the metadata of the most recent run.
type RunRecord struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     RunStatus `json:"status"`

	// RateLimit is the last observed remaining upstream rate budget,
	// -1 if none was observed during the run.
	RateLimit int `json:"rate_limit"`
}

// document is the on-disk layout of the store.
type document struct {
	LastRun *RunRecord            `json:"last_run,omitempty"`
	Repos   map[string]*RepoState `json:"repos"`
}

// Store manages persistence of scan progress.
type Store struct {
	path string
	mu   sync.Mutex
	doc  document
	now  func() time.Time
}

// NewStore creates a store at the default path under the user cache dir.
func NewStore() (*Store, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(cacheDir, "octonotify")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return NewStoreWithPath(filepath.Join(dir, "state.json")), nil
}

// NewStoreWithPath creates a store at the given path.
func NewStoreWithPath(path string) *Store {
	return &Store{
		path: path,
		doc:  document{Repos: make(map[string]*RepoState)},
		now:  time.Now,
	}
}

// Path returns the store's file path.
func (s *Store) Path() string {
	return s.path
}

// Reconcile aligns the store with the current watch list: a record is
// created for every watched item lacking one (baseline = watermark =
// baseline time) and every record whose item is no longer watched is
// removed. It is idempotent and must run before every scan.
func (s *Store) Reconcile(items []model.WatchedItem, baseline time.Time) (added, removed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	baseline = baseline.UTC()

	watched := make(map[model.WatchedItem]struct{}, len(items))
	for _, item := range items {
		watched[item] = struct{}{}

		repo := s.doc.Repos[item.Repo]
		if repo == nil {
			repo = &RepoState{
				URL:    "https://github.com/" + item.Repo,
				Events: make(map[model.EventKind]*Record),
			}
			s.doc.Repos[item.Repo] = repo
		}
		if _, ok := repo.Events[item.Kind]; !ok {
			repo.Events[item.Kind] = &Record{
				BaselineTime:  baseline,
				WatermarkTime: baseline,
			}
			added++
			log.Debug("created progress record", "repo", item.Repo, "kind", item.Kind, "baseline", baseline)
		}
	}

	for repoName, repo := range s.doc.Repos {
		for kind := range repo.Events {
			if _, ok := watched[model.WatchedItem{Repo: repoName, Kind: kind}]; !ok {
				delete(repo.Events, kind)
				removed++
				log.Debug("removed progress record", "repo", repoName, "kind", kind)
			}
		}
		if len(repo.Events) == 0 {
			delete(s.doc.Repos, repoName)
		}
	}

	return added, removed
}

// Get returns a copy of the record for a watched item. Callers must have
// reconciled first; a missing record is an invariant violation.
func (s *Store) Get(item model.WatchedItem) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo := s.doc.Repos[item.Repo]
	if repo == nil {
		return Record{}, fmt.Errorf("%s: %w", item, ErrNotFound)
	}
	rec := repo.Events[item.Kind]
	if rec == nil {
		return Record{}, fmt.Errorf("%s: %w", item, ErrNotFound)
	}
	return rec.clone(), nil
}

// Commit applies one proposed mutation to the store.
func (s *Store) Commit(m Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo := s.doc.Repos[m.Item.Repo]
	if repo == nil || repo.Events[m.Item.Kind] == nil {
		return fmt.Errorf("%s: %w", m.Item, ErrNotFound)
	}
	rec := repo.Events[m.Item.Kind]

	switch m.Op {
	case OpAdvanceWatermark:
		if m.Watermark.After(rec.WatermarkTime) {
			rec.WatermarkTime = m.Watermark.UTC()
		}
		rec.ResumeCursor = ""
		rec.Incomplete = false
		rec.Reason = ""
		now := s.now().UTC()
		rec.LastSuccessAt = &now
		log.Debug("advanced watermark", "repo", m.Item.Repo, "kind", m.Item.Kind, "watermark", rec.WatermarkTime)

	case OpSetResumeCursor:
		rec.ResumeCursor = m.Cursor
		rec.Incomplete = true
		rec.Reason = m.Reason
		log.Debug("saved resume cursor", "repo", m.Item.Repo, "kind", m.Item.Kind, "reason", m.Reason)

	case OpAppendNotified:
		rec.RecentlyNotifiedIDs = append(rec.RecentlyNotifiedIDs, m.IDs...)
		if n := len(rec.RecentlyNotifiedIDs); n > constants.DedupCapacity {
			rec.RecentlyNotifiedIDs = rec.RecentlyNotifiedIDs[n-constants.DedupCapacity:]
		}

	default:
		return fmt.Errorf("unknown mutation op: %d", m.Op)
	}

	return nil
}

// BeginRun records the start of a run with status running.
func (s *Store) BeginRun(startedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.LastRun = &RunRecord{
		StartedAt: startedAt.UTC(),
		Status:    RunRunning,
		RateLimit: -1,
	}
}

// FinishRun records the outcome of the current run together with the last
// observed rate budget.
func (s *Store) FinishRun(status RunStatus, rateRemaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.LastRun == nil {
		s.doc.LastRun = &RunRecord{}
	}
	s.doc.LastRun.FinishedAt = s.now().UTC()
	s.doc.LastRun.Status = status
	s.doc.LastRun.RateLimit = rateRemaining
}

// LastRun returns a copy of the most recent run record, if any.
func (s *Store) LastRun() *RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.LastRun == nil {
		return nil
	}
	r := *s.doc.LastRun
	return &r
}

// RecordInfo pairs a watched item with a snapshot of its record.
type RecordInfo struct {
	Item   model.WatchedItem
	Record Record
}

// Records returns snapshots of all records, sorted by repository then kind.
func (s *Store) Records() []RecordInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var infos []RecordInfo
	for repoName, repo := range s.doc.Repos {
		for kind, rec := range repo.Events {
			infos = append(infos, RecordInfo{
				Item:   model.WatchedItem{Repo: repoName, Kind: kind},
				Record: rec.clone(),
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Item.Repo != infos[j].Item.Repo {
			return infos[i].Item.Repo < infos[j].Item.Repo
		}
		return infos[i].Item.Kind < infos[j].Item.Kind
	})
	return infos
}
