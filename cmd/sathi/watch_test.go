package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cropsathi/sathi/internal/config"
)

func TestWatchCmd_Help(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"watch", "--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("watch --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "digest") {
		t.Errorf("expected help to mention digests, got: %s", out)
	}
	if !strings.Contains(out, "--once") {
		t.Errorf("expected help to mention '--once' flag, got: %s", out)
	}
}

func TestCreateAdapter_NoPlatform(t *testing.T) {
	adapter, err := createAdapter(&config.Config{})
	if err != nil {
		t.Fatalf("createAdapter: %v", err)
	}
	if adapter != nil {
		t.Errorf("adapter = %v, want nil for empty platform", adapter)
	}
}

func TestCreateAdapter_Slack(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notify.Platform = "slack"
	cfg.Notify.Slack.BotToken = "xoxb-test"
	cfg.Notify.Slack.ChannelID = "C123"

	adapter, err := createAdapter(cfg)
	if err != nil {
		t.Fatalf("createAdapter: %v", err)
	}
	if adapter == nil {
		t.Fatal("adapter = nil, want slack adapter")
	}
}

func TestCreateAdapter_Discord(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notify.Platform = "discord"
	cfg.Notify.Discord.BotToken = "tok"
	cfg.Notify.Discord.ChannelID = "555"

	adapter, err := createAdapter(cfg)
	if err != nil {
		t.Fatalf("createAdapter: %v", err)
	}
	if adapter == nil {
		t.Fatal("adapter = nil, want discord adapter")
	}
}

func TestCreateAdapter_UnknownPlatform(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notify.Platform = "carrier-pigeon"

	if _, err := createAdapter(cfg); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestCreateAdapter_SlackMissingToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notify.Platform = "slack"
	cfg.Notify.Slack.ChannelID = "C123"

	if _, err := createAdapter(cfg); err == nil {
		t.Fatal("expected error for missing bot token")
	}
}
