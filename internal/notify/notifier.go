// Package notify delivers run digests to the configured recipients.
package notify

import (
	"context"
	"fmt"

	"github.com/tnagatomi/octonotify/internal/model"
)

// Notifier delivers one batch of discovered events per run.
type Notifier interface {
	Deliver(ctx context.Context, events []model.Event) error
}

// DeliveryError reports how many recipients could not be reached. The
// failure signal carries a count only, never recipient identities.
type DeliveryError struct {
	Failed int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("digest delivery failed for %d recipient(s)", e.Failed)
}
