package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tnagatomi/octonotify/config"
	"github.com/tnagatomi/octonotify/internal/github"
	"github.com/tnagatomi/octonotify/internal/log"
	"github.com/tnagatomi/octonotify/internal/notify"
	"github.com/tnagatomi/octonotify/internal/run"
	"github.com/tnagatomi/octonotify/internal/scan"
	"github.com/tnagatomi/octonotify/internal/state"
)

// NewCmdRun creates the run command.
func NewCmdRun() *cobra.Command {
	var (
		verbosity int
		dryRun    bool
		statePath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Perform one poll run and deliver the digest",
		Long: `Survey every watched repository for new activity since the last run,
deliver a digest to the configured Telegram chats, and persist progress.

Progress is only committed after the digest is delivered, so a delivery
failure means the same items are surfaced again next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(verbosity, os.Stderr)
			return runRun(dryRun, statePath)
		},
	}

	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v, -vv, -vvv)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print discovered items instead of delivering, commit nothing")
	cmd.Flags().StringVar(&statePath, "state", "", "Override state file path")

	return cmd
}

func runRun(dryRun bool, statePath string) error {
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

	client, err := github.NewClient(cfg.GetGitHubToken())
	if err != nil {
		return err
	}
	scanner := scan.New(store, github.NewSources(client), cfg.LookbackWindow())

	var notifier notify.Notifier
	if dryRun {
		notifier = &notify.Printer{W: os.Stdout}
	} else {
		notifier, err = notify.NewTelegram(notify.TelegramConfig{
			Token:      cfg.GetTelegramToken(),
			ChatIDs:    cfg.Telegram.ChatIDs,
			RatePerSec: cfg.Telegram.RatePerSec,
		})
		if err != nil {
			return err
		}
	}

	runner := run.New(store, scanner, notifier)
	runner.DryRun = dryRun

	if err := runner.Run(client.Context(), cfg.WatchList()); err != nil {
		return err
	}

	if remaining, limit, resetAt, observed := github.GetRateLimitStatus(); observed {
		log.Info("rate budget after run",
			"remaining", remaining,
			"limit", limit,
			"resets_in", time.Until(resetAt).Round(time.Second))
	}
	return nil
}

// openStore resolves the state file path: flag, then config, then default.
func openStore(cfg *config.Config, statePath string) (*state.Store, error) {
	if statePath == "" {
		statePath = cfg.StatePath
	}
	if statePath != "" {
		return state.NewStoreWithPath(statePath), nil
	}
	return state.NewStore()
}
