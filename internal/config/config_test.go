package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
base_url: https://api.cropsathi.example
language: Telugu
state_dir: /var/lib/sathi

cache:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  user: sathi
  database: sathi_cache

notify:
  platform: slack
  slack:
    bot_token: xoxb-test
    channel_id: C0FARM

watch:
  schedule: "30 5 * * *"
  digest: "0 19 * * *"
  form:
    crop: wheat
    stage_index: 1
    soil_type: loamy
    latitude: 17.38
    longitude: 78.48
    enable_whatsapp: true
`

const minimalYAML = `
base_url: https://api.cropsathi.example
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BaseURL != "https://api.cropsathi.example" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Language != "Telugu" {
		t.Errorf("Language = %q, want Telugu", cfg.Language)
	}
	if cfg.StateDir != "/var/lib/sathi" {
		t.Errorf("StateDir = %q, want /var/lib/sathi", cfg.StateDir)
	}
	if cfg.Cache.Driver != "mysql" {
		t.Errorf("Cache.Driver = %q, want mysql", cfg.Cache.Driver)
	}
	if cfg.Cache.Host != "10.0.0.5" || cfg.Cache.Port != 3307 {
		t.Errorf("Cache host:port = %s:%d, want 10.0.0.5:3307", cfg.Cache.Host, cfg.Cache.Port)
	}
	if cfg.Cache.Database != "sathi_cache" {
		t.Errorf("Cache.Database = %q, want sathi_cache", cfg.Cache.Database)
	}
	if cfg.Notify.Platform != "slack" {
		t.Errorf("Notify.Platform = %q, want slack", cfg.Notify.Platform)
	}
	if cfg.Notify.Slack.ChannelID != "C0FARM" {
		t.Errorf("Slack.ChannelID = %q, want C0FARM", cfg.Notify.Slack.ChannelID)
	}
	if cfg.Watch.Schedule != "30 5 * * *" {
		t.Errorf("Watch.Schedule = %q", cfg.Watch.Schedule)
	}
	if cfg.Watch.Form.Crop != "wheat" || cfg.Watch.Form.StageIndex != 1 {
		t.Errorf("Watch.Form = %+v", cfg.Watch.Form)
	}
	if cfg.Watch.Form.Latitude == nil || *cfg.Watch.Form.Latitude != 17.38 {
		t.Errorf("Watch.Form.Latitude = %v, want 17.38", cfg.Watch.Form.Latitude)
	}
	if !cfg.Watch.Form.EnableWhatsApp {
		t.Error("Watch.Form.EnableWhatsApp = false, want true")
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Language != "English" {
		t.Errorf("Language = %q, want %q (default)", cfg.Language, "English")
	}
	if cfg.StateDir == "" {
		t.Error("StateDir should default to a home-relative directory")
	}
	if cfg.Cache.Driver != "sqlite" {
		t.Errorf("Cache.Driver = %q, want %q (default)", cfg.Cache.Driver, "sqlite")
	}
	if want := filepath.Join(cfg.StateDir, "cache.db"); cfg.Cache.Path != want {
		t.Errorf("Cache.Path = %q, want %q (derived from state_dir)", cfg.Cache.Path, want)
	}
	if cfg.Watch.Schedule != "0 6 * * *" {
		t.Errorf("Watch.Schedule = %q, want default morning refresh", cfg.Watch.Schedule)
	}
	if cfg.Watch.Digest != "0 18 * * *" {
		t.Errorf("Watch.Digest = %q, want default evening digest", cfg.Watch.Digest)
	}
}

func TestParse_ExplicitCachePath_NotOverridden(t *testing.T) {
	yaml := `
base_url: https://api.cropsathi.example
cache:
  path: /tmp/custom.db
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Cache.Path != "/tmp/custom.db" {
		t.Errorf("Cache.Path = %q, want %q (should not be overridden)", cfg.Cache.Path, "/tmp/custom.db")
	}
}

func TestParse_MissingBaseURL(t *testing.T) {
	_, err := Parse([]byte(`language: Hindi`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "base_url is required") {
		t.Errorf("error = %v, want mention of base_url", err)
	}
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	_, err := Parse([]byte("base_url: https://x\nlanguage: Klingon\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), `language "Klingon"`) {
		t.Errorf("error = %v, want language complaint", err)
	}
}

func TestParse_MySQLRequiresDatabase(t *testing.T) {
	yaml := `
base_url: https://x
cache:
  driver: mysql
`
	_, err := Parse([]byte(yaml))
	if err == nil || !strings.Contains(err.Error(), "cache.database is required") {
		t.Errorf("error = %v, want cache.database complaint", err)
	}
}

func TestParse_NotifyValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			"unknown platform",
			"base_url: https://x\nnotify:\n  platform: carrier-pigeon\n",
			`notify.platform "carrier-pigeon"`,
		},
		{
			"slack missing tokens",
			"base_url: https://x\nnotify:\n  platform: slack\n",
			"notify.slack.bot_token is required",
		},
		{
			"discord missing channel",
			"base_url: https://x\nnotify:\n  platform: discord\n  discord:\n    bot_token: t\n",
			"notify.discord.channel_id is required",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sathi.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://api.cropsathi.example" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
