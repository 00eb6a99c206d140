package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/tnagatomi/octonotify/internal/model"
)

// Printer writes discovered events as plain text instead of delivering
// them. It backs the run command's --dry-run mode.
type Printer struct {
	W io.Writer
}

// Deliver prints one line per event and never fails partially.
func (p *Printer) Deliver(_ context.Context, events []model.Event) error {
	for _, ev := range events {
		extra := ""
		if tag := ev.Extras["tag"]; tag != "" {
			extra = " " + tag
		}
		if _, err := fmt.Fprintf(p.W, "%s %s%s: %s (%s)\n", ev.Repo, ev.Kind, extra, ev.Title, ev.URL); err != nil {
			return err
		}
	}
	return nil
}
