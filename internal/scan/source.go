package scan

import (
	"context"

	"github.com/tnagatomi/octonotify/internal/model"
)

// Page is one page of upstream results. Events are ordered newest first;
// the scanner relies on that ordering to halt early.
type Page struct {
	Events     []model.Event
	HasMore    bool
	NextCursor string

	// RateRemaining is the upstream rate budget left after this fetch.
	RateRemaining int
}

// PageSource fetches pages of time-ordered activity for one watched item.
// An empty cursor requests the newest page.
type PageSource interface {
	Fetch(ctx context.Context, cursor string) (*Page, error)
}

// SourceFactory builds the page source for a watched item.
type SourceFactory interface {
	Source(item model.WatchedItem) PageSource
}
