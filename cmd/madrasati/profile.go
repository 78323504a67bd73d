package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moatasem1234/madrasati/internal/session"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile commands",
	}

	cmd.AddCommand(newProfileUpdateCmd())
	return cmd
}

func newProfileUpdateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		email      string
		password   string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the account profile",
		Long:  "Updates name, email, or password on the account. Omitted fields are left unchanged.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			p, err := a.sessions.UpdateProfile(cmd.Context(), session.ProfileUpdate{
				Name:     name,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Profile updated: %s <%s>\n", p.Name, p.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&email, "email", "", "new email")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	return cmd
}
