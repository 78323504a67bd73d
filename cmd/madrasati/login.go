package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	var (
		configPath string
		email      string
		password   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the school platform",
		Long:  "Authenticates with the school backend and saves the session for later commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, configPath, email, password)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func runLogin(cmd *cobra.Command, configPath, email, password string) error {
	a, err := appFromConfig(configPath)
	if err != nil {
		return err
	}

	if password == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}

	principal, err := a.sessions.Login(cmd.Context(), email, password)
	if err != nil {
		if msg := a.sessions.LastError(); msg != "" {
			return fmt.Errorf("%s", msg)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", principal.Name, principal.Email)
	return nil
}

func newLogoutCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			a.sessions.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}
