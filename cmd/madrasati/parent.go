package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moatasem1234/madrasati/internal/cache"
	"github.com/moatasem1234/madrasati/internal/directory"
)

func newParentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parent",
		Short: "Parent administration",
	}

	cmd.AddCommand(newParentAddCmd())
	cmd.AddCommand(newParentUpdateCmd())
	cmd.AddCommand(newParentRemoveCmd())
	return cmd
}

func newParentAddCmd() *cobra.Command {
	var (
		configPath string
		name       string
		email      string
		password   string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a parent account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			out, err := a.store.Mutate(cmd.Context(), func(ctx context.Context) (any, error) {
				return a.dir.CreateParent(ctx, directory.ParentPayload{
					Name:     name,
					Email:    email,
					Password: password,
				})
			}, cache.Tag{Type: directory.TagParent})
			if err != nil {
				return err
			}

			rec, _ := out.(directory.Record)
			fmt.Fprintf(cmd.OutOrStdout(), "Created parent %d (%s)\n", rec.ID, rec.User.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	cmd.Flags().StringVar(&name, "name", "", "parent name")
	cmd.Flags().StringVar(&email, "email", "", "parent email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	return cmd
}

func newParentUpdateCmd() *cobra.Command {
	var (
		configPath string
		name       string
		email      string
	)

	cmd := &cobra.Command{
		Use:   "update <parent-id>",
		Short: "Update a parent account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid parent id %q", args[0])
			}

			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			out, err := a.store.Mutate(cmd.Context(), func(ctx context.Context) (any, error) {
				return a.dir.UpdateParent(ctx, id, directory.ParentPayload{
					Name:  name,
					Email: email,
				})
			}, cache.Tag{Type: directory.TagParent})
			if err != nil {
				return err
			}

			rec, _ := out.(directory.Record)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated parent %d (%s)\n", rec.ID, rec.User.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	cmd.Flags().StringVar(&name, "name", "", "parent name")
	cmd.Flags().StringVar(&email, "email", "", "parent email")
	return cmd
}

func newParentRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <parent-id>",
		Short: "Delete a parent account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid parent id %q", args[0])
			}

			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			_, err = a.store.Mutate(cmd.Context(), func(ctx context.Context) (any, error) {
				return nil, a.dir.DeleteParent(ctx, id)
			}, cache.Tag{Type: directory.TagParent})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed parent %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}
