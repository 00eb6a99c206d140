package config

import (
	"testing"
	"time"

	"github.com/tnagatomi/octonotify/internal/model"
)

func validConfig() *Config {
	return &Config{
		Repos: []WatchedRepo{
			{Name: "cli/cli", Events: []string{"release", "issue"}},
			{Name: "golang/go", Events: []string{"pull_request"}},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no repos", func(c *Config) { c.Repos = nil }, true},
		{"missing owner", func(c *Config) { c.Repos[0].Name = "cli" }, true},
		{"extra slash", func(c *Config) { c.Repos[0].Name = "a/b/c" }, true},
		{"empty name", func(c *Config) { c.Repos[0].Name = "" }, true},
		{"no events", func(c *Config) { c.Repos[0].Events = nil }, true},
		{"unknown kind", func(c *Config) { c.Repos[0].Events = []string{"stars"} }, true},
		{"duplicate item", func(c *Config) { c.Repos[0].Events = []string{"release", "release"} }, true},
		{"valid lookback", func(c *Config) { c.Lookback = "45m" }, false},
		{"bad lookback", func(c *Config) { c.Lookback = "soon" }, true},
		{"dotted repo name", func(c *Config) { c.Repos[0].Name = "tnagatomi/octonotify.go" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestWatchListOrder(t *testing.T) {
	cfg := validConfig()

	items := cfg.WatchList()
	want := []model.WatchedItem{
		{Repo: "cli/cli", Kind: model.KindRelease},
		{Repo: "cli/cli", Kind: model.KindIssue},
		{Repo: "golang/go", Kind: model.KindPullRequest},
	}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item %d: expected %v, got %v", i, want[i], items[i])
		}
	}
}

func TestLookbackWindow(t *testing.T) {
	cfg := validConfig()

	if d := cfg.LookbackWindow(); d != 0 {
		t.Errorf("expected 0 for unset lookback, got %v", d)
	}

	cfg.Lookback = "45m"
	if d := cfg.LookbackWindow(); d != 45*time.Minute {
		t.Errorf("expected 45m, got %v", d)
	}
}

func TestMergeConfig(t *testing.T) {
	global := &Config{
		Repos:    []WatchedRepo{{Name: "cli/cli", Events: []string{"release"}}},
		Lookback: "30m",
		Telegram: TelegramOverrides{ChatIDs: []int64{1}},
	}
	local := &Config{
		Lookback: "1h",
	}

	merged := mergeConfig(global, local)
	if merged.Lookback != "1h" {
		t.Errorf("local lookback should win, got %s", merged.Lookback)
	}
	if len(merged.Repos) != 1 || merged.Repos[0].Name != "cli/cli" {
		t.Errorf("global repos should be preserved, got %v", merged.Repos)
	}
	if len(merged.Telegram.ChatIDs) != 1 {
		t.Errorf("global chat ids should be preserved, got %v", merged.Telegram.ChatIDs)
	}
}
