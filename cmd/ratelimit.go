package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tnagatomi/octonotify/config"
	"github.com/tnagatomi/octonotify/internal/github"
)

// NewCmdRateLimit creates the ratelimit command.
func NewCmdRateLimit() *cobra.Command {
	return &cobra.Command{
		Use:   "ratelimit",
		Short: "Check GitHub API rate limit status",
		Long:  `Display current GitHub API rate limit status including remaining quota and reset time.`,
		RunE:  runRateLimit,
	}
}

func runRateLimit(cmd *cobra.Command, args []string) error {
	cfg := &config.Config{}

	client, err := github.NewClient(cfg.GetGitHubToken())
	if err != nil {
		return err
	}

	limits, _, err := client.RawClient().RateLimit.Get(client.Context())
	if err != nil {
		return fmt.Errorf("failed to get rate limits: %w", err)
	}

	fmt.Println("GitHub API Rate Limits:")
	fmt.Println()

	if limits.Core != nil {
		resetIn := time.Until(limits.Core.Reset.Time).Round(time.Second)
		if resetIn < 0 {
			resetIn = 0
		}
		remaining := fmt.Sprintf("%d/%d", limits.Core.Remaining, limits.Core.Limit)
		if limits.Core.Remaining == 0 {
			remaining = color.RedString(remaining)
		} else if limits.Core.Remaining < limits.Core.Limit/10 {
			remaining = color.YellowString(remaining)
		}
		fmt.Printf("  Core:   %s remaining, resets in %s\n", remaining, resetIn)
	}
	if limits.Search != nil {
		fmt.Printf("  Search: %d/%d remaining\n", limits.Search.Remaining, limits.Search.Limit)
	}

	return nil
}
