package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCropsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "crops",
		Short: "List crops, growth stages, and soil types",
		Long:  "Fetches the crop taxonomy from the backend and prints each crop's ordered growth stages with their indexes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			cat, err := a.catalog.Load(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Crops:")
			for _, name := range cat.CropNames() {
				fmt.Fprintf(out, "  %-12s %s\n", name, formatStages(cat.Stages(name)))
			}
			fmt.Fprintln(out, "\nSoil types:")
			for _, soil := range cat.SoilTypes {
				fmt.Fprintf(out, "  %s\n", soil)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	return cmd
}
