package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local advisory cache",
	}

	cmd.AddCommand(newCacheInfoCmd())
	cmd.AddCommand(newCacheResetCmd())
	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show cache location and contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			st, err := a.openCache()
			if err != nil {
				return err
			}
			advisories, prices, err := st.Counts()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Driver: %s\n", a.cfg.Cache.Driver)
			if a.cfg.Cache.Driver == "sqlite" {
				fmt.Fprintf(out, "Path:   %s\n", a.cfg.Cache.Path)
			} else {
				fmt.Fprintf(out, "Host:   %s:%d/%s\n", a.cfg.Cache.Host, a.cfg.Cache.Port, a.cfg.Cache.Database)
			}
			fmt.Fprintf(out, "Cached advisories: %d\n", advisories)
			fmt.Fprintf(out, "Cached price points: %d\n", prices)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	return cmd
}

func newCacheResetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all cached advisories and prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			st, err := a.openCache()
			if err != nil {
				return err
			}
			if err := st.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	return cmd
}
