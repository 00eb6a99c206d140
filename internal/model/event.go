// Package model defines the shared types for watched repository activity.
package model

import (
	"fmt"
	"time"
)

// EventKind identifies the class of repository activity being watched.
type EventKind string

const (
	KindRelease     EventKind = "release"
	KindPullRequest EventKind = "pull_request"
	KindIssue       EventKind = "issue"
)

// Kinds returns all supported event kinds.
func Kinds() []EventKind {
	return []EventKind{KindRelease, KindPullRequest, KindIssue}
}

// ParseKind validates a kind string from configuration.
func ParseKind(s string) (EventKind, error) {
	switch EventKind(s) {
	case KindRelease, KindPullRequest, KindIssue:
		return EventKind(s), nil
	}
	return "", fmt.Errorf("unknown event kind: %q (use release, pull_request or issue)", s)
}

// WatchedItem is one (repository, event kind) pair from the watch list.
type WatchedItem struct {
	Repo string
	Kind EventKind
}

// String returns a human-readable key like "cli/cli release".
func (w WatchedItem) String() string {
	return w.Repo + " " + string(w.Kind)
}

// Event represents one newly discovered piece of repository activity.
// Events are transient: they live only for the duration of a run and are
// never persisted.
type Event struct {
	Kind      EventKind
	Repo      string
	ID        string
	Title     string
	URL       string
	Timestamp time.Time
	Author    string

	// Extras carries kind-specific fields, e.g. "tag" for releases or
	// "merged_by" for merged pull requests.
	Extras map[string]string
}
