package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cropsathi/sathi/internal/api"
	"github.com/cropsathi/sathi/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		cached     bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show your past advisories",
		Long:  "Lists your advisory history from the backend, or from the local cache with --cached (works offline and logged out).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cached {
				return runHistoryCached(cmd, configPath, limit)
			}
			return runHistory(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	cmd.Flags().BoolVar(&cached, "cached", false, "read from the local cache instead of the backend")
	cmd.Flags().IntVar(&limit, "limit", 20, "max cached entries to show")
	return cmd
}

func runHistory(cmd *cobra.Command, configPath string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}

	loader, err := history.New(a.client, a.sessions)
	if err != nil {
		return err
	}

	items, err := loader.Load(ctx)
	if err != nil {
		if errors.Is(err, api.ErrAuthRequired) {
			return fmt.Errorf("log in first with 'sathi login'")
		}
		return err
	}

	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No advisories yet")
		return nil
	}
	for _, item := range items {
		fmt.Fprintf(out, "[%s] %s: %s\n", item.DateSent, item.Crop, item.AdvisoryText)
	}
	return nil
}

func runHistoryCached(cmd *cobra.Command, configPath string, limit int) error {
	a, err := newApp(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	st, err := a.openCache()
	if err != nil {
		return err
	}

	records, err := st.RecentAdvisories(limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No cached advisories")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(out, "[%s] %s (%s): %s\n",
			r.ReceivedAt.Format("2006-01-02 15:04"), r.Crop, r.Stage, r.Recommendation)
	}
	return nil
}
