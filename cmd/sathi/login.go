package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	var (
		configPath string
		password   string
	)

	cmd := &cobra.Command{
		Use:   "login <phone>",
		Short: "Log in to the Crop Sathi backend",
		Long:  "Exchanges your phone number and password for an access token, validates it, and persists the session.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, configPath, args[0], password)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	cmd.Flags().StringVar(&password, "password", "", "password (omit to be prompted)")
	return cmd
}

func runLogin(cmd *cobra.Command, configPath, phone, password string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}

	if password == "" {
		password, err = readPassword(cmd, "Password: ")
		if err != nil {
			return err
		}
	}

	if err := a.sessions.Login(ctx, phone, password); err != nil {
		return err
	}

	cur := a.sessions.Current()
	name := phone
	if cur.User != nil && cur.User.Name != "" {
		name = cur.User.Name
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", name)
	return nil
}

func newLogoutCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			a.sessions.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var (
		configPath string
		name       string
		password   string
	)

	cmd := &cobra.Command{
		Use:   "register <phone>",
		Short: "Create an account and log in",
		Long:  "Registers a new farmer account with the backend and logs in with the new credentials.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, configPath, name, args[0], password)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	cmd.Flags().StringVar(&name, "name", "", "your name")
	cmd.Flags().StringVar(&password, "password", "", "password (omit to be prompted)")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runRegister(cmd *cobra.Command, configPath, name, phone, password string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}

	if password == "" {
		password, err = readPassword(cmd, "Password: ")
		if err != nil {
			return err
		}
	}

	if err := a.sessions.Register(ctx, name, phone, password); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", name)
	return nil
}

func newWhoamiCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			cur := a.sessions.Current()
			if !cur.LoggedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:  %s\n", cur.User.Name)
			fmt.Fprintf(out, "Phone: %s\n", cur.User.PhoneNumber)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to Sathi config file")
	return cmd
}

// readPassword prompts without echo on a terminal, and falls back to
// reading a line from stdin when piped.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
