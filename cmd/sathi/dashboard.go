package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cropsathi/sathi/internal/advisory"
	"github.com/cropsathi/sathi/internal/dashboard"
	"github.com/cropsathi/sathi/internal/store"
)

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Start the local web dashboard",
		Long:  "Launches a local web dashboard showing the latest advisory, market prices, and cached history with live updates.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	return cmd
}

func runDashboard(cmd *cobra.Command, configPath string, port int) error {
	a, err := newApp(cmd.Context(), configPath)
	if err != nil {
		return err
	}

	var st *store.Store
	var rec advisory.Recorder
	if s, err := a.openCache(); err != nil {
		log.Printf("sathi: open cache: %v", err)
	} else {
		st = s
		rec = s
	}

	orch, err := a.newOrchestrator(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return dashboard.Start(ctx, dashboard.StartOpts{
		Views: orch,
		Store: st,
		Port:  port,
		Out:   cmd.OutOrStdout(),
	})
}
