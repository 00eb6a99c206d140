// Package constants provides a centralized location for the fixed values
// used by the octonotify polling engine.
package constants

import "time"

// Scan constants
const (
	// PageSize is the number of items requested per upstream page.
	PageSize = 25

	// LookbackWindow is subtracted from the watermark when computing the
	// scan threshold, re-covering a trailing interval in case the upstream
	// publishes items slightly out of order.
	LookbackWindow = 30 * time.Minute

	// DedupCapacity is the maximum number of already-notified identifiers
	// retained per watched item. Oldest entries are evicted first.
	DedupCapacity = 100
)

// Rate limiting constants
const (
	// RateLimitLowWatermark is the remaining-request threshold below which
	// scanning stops for the rest of the run. Progress already made is kept;
	// interrupted items save a resume cursor instead of a watermark.
	RateLimitLowWatermark = 100
)

// Delivery constants
const (
	// MaxMessageLen is Telegram's hard limit on message length.
	MaxMessageLen = 4096

	// DigestChunkLen is the target size for digest message chunks, kept
	// under MaxMessageLen to leave headroom for closing HTML tags.
	DigestChunkLen = 4000
)
