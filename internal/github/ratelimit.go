package github

import (
	"sync"
	"time"
)

// RateLimitState tracks the most recently observed GitHub API rate budget.
type RateLimitState struct {
	mu        sync.RWMutex
	remaining int
	limit     int
	resetAt   time.Time
	observed  bool
}

var globalRateLimitState = &RateLimitState{}

// Update updates the rate limit state from response headers.
func (s *RateLimitState) Update(remaining, limit int, resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = remaining
	s.limit = limit
	s.resetAt = resetAt
	s.observed = true
}

// GetStatus returns the current rate limit status. observed is false until
// at least one API response has been seen.
func (s *RateLimitState) GetStatus() (remaining, limit int, resetAt time.Time, observed bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remaining, s.limit, s.resetAt, s.observed
}

// UpdateRateLimit updates the global rate limit state.
func UpdateRateLimit(remaining, limit int, resetAt time.Time) {
	globalRateLimitState.Update(remaining, limit, resetAt)
}

// GetRateLimitStatus returns the global rate limit status.
func GetRateLimitStatus() (remaining, limit int, resetAt time.Time, observed bool) {
	return globalRateLimitState.GetStatus()
}
