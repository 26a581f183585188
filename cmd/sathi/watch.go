package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cropsathi/sathi/internal/config"
	"github.com/cropsathi/sathi/internal/notify"
	discordadapter "github.com/cropsathi/sathi/internal/notify/discord"
	slackadapter "github.com/cropsathi/sathi/internal/notify/slack"
)

func newWatchCmd() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh advisories on a schedule and deliver digests",
		Long:  "Re-submits the advisory form saved under watch.form in the config on the refresh schedule, caches the results, and posts a daily digest to the configured chat platform.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, configPath, once)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	cmd.Flags().BoolVar(&once, "once", false, "run one refresh and digest cycle, then exit")
	return cmd
}

func runWatch(cmd *cobra.Command, configPath string, once bool) error {
	a, err := newApp(cmd.Context(), configPath)
	if err != nil {
		return err
	}

	if !a.sessions.Current().LoggedIn() {
		return fmt.Errorf("log in first with 'sathi login'")
	}
	if a.cfg.Watch.Form.Crop == "" {
		return fmt.Errorf("watch: no form configured in %s (add watch.form.crop)", configPath)
	}

	st, err := a.openCache()
	if err != nil {
		return err
	}

	orch, err := a.newOrchestrator(st)
	if err != nil {
		return err
	}

	adapter, err := createAdapter(a.cfg)
	if err != nil {
		return err
	}

	watcher, err := notify.NewWatcher(notify.WatcherOpts{
		Submitter: orch,
		Store:     st,
		Adapter:   adapter,
		Form:      a.cfg.Watch.Form,
		Refresh:   a.cfg.Watch.Schedule,
		Digest:    a.cfg.Watch.Digest,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if once {
		if adapter != nil {
			if err := adapter.Connect(); err != nil {
				return err
			}
			defer adapter.Close()
		}
		if err := watcher.Refresh(cmd.Context()); err != nil {
			return err
		}
		if err := watcher.Digest(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(out, "Refresh and digest complete")
		return nil
	}

	fmt.Fprintf(out, "Watching %q (refresh %q, digest %q)... (Ctrl+C to stop)\n",
		a.cfg.Watch.Form.Crop, a.cfg.Watch.Schedule, a.cfg.Watch.Digest)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// createAdapter builds the digest delivery adapter for the configured
// platform. No platform means digests are skipped.
func createAdapter(cfg *config.Config) (notify.Adapter, error) {
	switch cfg.Notify.Platform {
	case "":
		return nil, nil
	case "slack":
		return slackadapter.New(slackadapter.AdapterOpts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.ChannelID,
		})
	case "discord":
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
	default:
		return nil, fmt.Errorf("notify: unknown platform %q", cfg.Notify.Platform)
	}
}
