package state

import (
	"time"

	"github.com/tnagatomi/octonotify/internal/model"
)

// MutationOp identifies the kind of state change a Mutation describes.
type MutationOp int

const (
	// OpAdvanceWatermark moves the watermark forward, clears any resume
	// cursor and incomplete flag, and stamps the last success time.
	OpAdvanceWatermark MutationOp = iota

	// OpSetResumeCursor saves a pagination token for an interrupted scan
	// and marks the record incomplete.
	OpSetResumeCursor

	// OpAppendNotified appends surfaced identifiers to the dedup FIFO,
	// evicting the oldest entries beyond capacity.
	OpAppendNotified
)

// Mutation is a state change proposed by the scanner but applied only by the
// orchestrator, once delivery has succeeded.
type Mutation struct {
	Item model.WatchedItem
	Op   MutationOp

	Watermark time.Time // OpAdvanceWatermark
	Cursor    string    // OpSetResumeCursor
	Reason    string    // OpSetResumeCursor
	IDs       []string  // OpAppendNotified
}

// AdvanceWatermark proposes moving the item's watermark to the given time.
func AdvanceWatermark(item model.WatchedItem, to time.Time) Mutation {
	return Mutation{Item: item, Op: OpAdvanceWatermark, Watermark: to}
}

// SetResumeCursor proposes saving a resume cursor with a reason.
func SetResumeCursor(item model.WatchedItem, cursor, reason string) Mutation {
	return Mutation{Item: item, Op: OpSetResumeCursor, Cursor: cursor, Reason: reason}
}

// AppendNotified proposes appending surfaced identifiers to the dedup set.
func AppendNotified(item model.WatchedItem, ids []string) Mutation {
	return Mutation{Item: item, Op: OpAppendNotified, IDs: ids}
}
