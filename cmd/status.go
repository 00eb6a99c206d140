package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tnagatomi/octonotify/config"
	"github.com/tnagatomi/octonotify/internal/state"
)

// NewCmdStatus creates the status command.
func NewCmdStatus() *cobra.Command {
	var statePath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show scan progress for every watched item",
		Long:  `Display the last run outcome and the per-item progress records from the state file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(statePath)
		},
	}

	cmd.Flags().StringVar(&statePath, "state", "", "Override state file path")

	return cmd
}

func runStatus(statePath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := openStore(cfg, statePath)
	if err != nil {
		return err
	}
	if err := store.Load(); err != nil {
		return err
	}

	printLastRun(store.LastRun())

	infos := store.Records()
	if len(infos) == 0 {
		fmt.Println("No progress records yet. Run 'octonotify run' first.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Repository", "Kind", "Watermark", "Last Success", "Pending", "Dedup IDs"})
	for _, info := range infos {
		rec := info.Record

		lastSuccess := "never"
		if rec.LastSuccessAt != nil {
			lastSuccess = rec.LastSuccessAt.Format(time.RFC3339)
		}

		pending := "-"
		if rec.Incomplete {
			pending = rec.Reason
			if rec.ResumeCursor != "" {
				pending += " (cursor " + rec.ResumeCursor + ")"
			}
		}

		table.Append([]string{
			info.Item.Repo,
			string(info.Item.Kind),
			rec.WatermarkTime.Format(time.RFC3339),
			lastSuccess,
			pending,
			strconv.Itoa(len(rec.RecentlyNotifiedIDs)),
		})
	}
	table.Render()

	return nil
}

func printLastRun(last *state.RunRecord) {
	if last == nil {
		fmt.Println("Last run: none")
		fmt.Println()
		return
	}

	status := string(last.Status)
	switch last.Status {
	case state.RunSuccess:
		status = color.GreenString(status)
	case state.RunIncomplete, state.RunPartialFailure:
		status = color.YellowString(status)
	case state.RunError:
		status = color.RedString(status)
	}

	fmt.Printf("Last run: %s\n", status)
	fmt.Printf("  started:  %s\n", last.StartedAt.Format(time.RFC3339))
	if !last.FinishedAt.IsZero() {
		fmt.Printf("  finished: %s\n", last.FinishedAt.Format(time.RFC3339))
	}
	if last.RateLimit >= 0 {
		fmt.Printf("  rate budget: %d remaining\n", last.RateLimit)
	}
	fmt.Println()
}
