package cmd

import (
	"github.com/spf13/cobra"
)

// New creates the root command with all subcommands registered.
func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "octonotify",
		Short: "GitHub repository activity notifier",
		Long: `A CLI tool that surveys watched GitHub repositories for new releases,
merged pull requests and issues, and delivers a deduplicated digest to
Telegram. Each invocation performs one run; scheduling is left to cron
or a systemd timer.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Register subcommands
	rootCmd.AddCommand(NewCmdRun())
	rootCmd.AddCommand(NewCmdStatus())
	rootCmd.AddCommand(NewCmdConfig())
	rootCmd.AddCommand(NewCmdRateLimit())
	rootCmd.AddCommand(NewCmdVersion())

	return rootCmd
}
