package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moatasem1234/madrasati/internal/cache"
	"github.com/moatasem1234/madrasati/internal/directory"
)

func newClassroomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classroom",
		Short: "Classroom administration",
	}

	cmd.AddCommand(newClassroomAddCmd())
	cmd.AddCommand(newClassroomUpdateCmd())
	cmd.AddCommand(newClassroomRemoveCmd())
	return cmd
}

func newClassroomAddCmd() *cobra.Command {
	var (
		configPath string
		name       string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a classroom",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			out, err := a.store.Mutate(cmd.Context(), func(ctx context.Context) (any, error) {
				return a.dir.CreateClassroom(ctx, directory.ClassroomPayload{Name: name})
			}, cache.Tag{Type: directory.TagClassroom})
			if err != nil {
				return err
			}

			room, _ := out.(directory.Classroom)
			fmt.Fprintf(cmd.OutOrStdout(), "Created classroom %d (%s)\n", room.ID, room.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	cmd.Flags().StringVar(&name, "name", "", "classroom name")
	return cmd
}

func newClassroomUpdateCmd() *cobra.Command {
	var (
		configPath string
		name       string
	)

	cmd := &cobra.Command{
		Use:   "update <classroom-id>",
		Short: "Rename a classroom",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid classroom id %q", args[0])
			}

			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			out, err := a.store.Mutate(cmd.Context(), func(ctx context.Context) (any, error) {
				return a.dir.UpdateClassroom(ctx, id, directory.ClassroomPayload{Name: name})
			}, cache.Tag{Type: directory.TagClassroom})
			if err != nil {
				return err
			}

			room, _ := out.(directory.Classroom)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated classroom %d (%s)\n", room.ID, room.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	cmd.Flags().StringVar(&name, "name", "", "classroom name")
	return cmd
}

func newClassroomRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <classroom-id>",
		Short: "Delete a classroom",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid classroom id %q", args[0])
			}

			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			_, err = a.store.Mutate(cmd.Context(), func(ctx context.Context) (any, error) {
				return nil, a.dir.DeleteClassroom(ctx, id)
			}, cache.Tag{Type: directory.TagClassroom})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed classroom %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}
