package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Recover or reset your password",
	}

	cmd.AddCommand(newPasswordRecoverCmd())
	cmd.AddCommand(newPasswordResetCmd())
	return cmd
}

func newPasswordRecoverCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "recover <phone>",
		Short: "Request a password recovery token by SMS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			msg, err := a.client.RecoverPassword(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	return cmd
}

func newPasswordResetCmd() *cobra.Command {
	var (
		configPath string
		token      string
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password using a recovery token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			password, err := readPassword(cmd, "New password: ")
			if err != nil {
				return err
			}
			msg, err := a.client.ResetPassword(cmd.Context(), token, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	cmd.Flags().StringVar(&token, "token", "", "recovery token from the SMS")
	cmd.MarkFlagRequired("token")
	return cmd
}
